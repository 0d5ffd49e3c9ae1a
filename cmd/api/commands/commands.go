package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/calendo/core/internal/adapters/cache"
	"github.com/calendo/core/internal/adapters/events"
	"github.com/calendo/core/internal/adapters/repository"
	"github.com/calendo/core/internal/application/services"
	"github.com/calendo/core/internal/infrastructure/config"
	"github.com/calendo/core/internal/infrastructure/database"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/infrastructure/metrics"
	"github.com/calendo/core/internal/infrastructure/server"
	"github.com/calendo/core/internal/ports"
)

// Set with -ldflags at build time.
var (
	Version   = "1.0.0"
	GitCommit = "development"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the todo REST server",
		Long:  "Start the todo REST server on the configured store (mongo, postgres, neo4j or memory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Postgres schema migrations",
		Long:  "Manage the postgres todo schema (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	})

	return migrateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Calendo version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Calendo v%s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeRepo()

	listCache, closeCache, err := openListCache(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher := ports.EventPublisher(events.NopPublisher{})
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		appLogger.Infow("Publishing todo events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	var todoMetrics *metrics.TodoMetrics
	if cfg.Metrics.Enabled {
		todoMetrics = metrics.NewTodoMetrics(registry)
	}

	todoService := services.NewTodoService(repo, listCache, publisher, appLogger, services.TodoServiceOptions{
		ToggleMode: ports.ToggleMode(cfg.Todo.ToggleMode),
		ListTTL:    cfg.Redis.ListTTL,
		Metrics:    todoMetrics,
	})

	srv, err := server.New(cfg, todoService, registry, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	appLogger.Infow("Starting Calendo API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
		"toggle_mode", cfg.Todo.ToggleMode,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// openRepository connects the configured todo store and prepares its indexes.
func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.TodoRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		db, err := database.NewMongo(ctx, cfg.Database.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Warnw("Mongo disconnect failed", "error", err)
			}
		}

		repo := repository.NewMongoTodoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		log.Infow("Connected to mongo", "database", cfg.Database.Mongo.Database)
		return repo, closeFn, nil

	case config.DriverPostgres:
		db, err := database.New(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Infow("Connected to postgres", "pool", db.GetConnectionInfo())
		return repository.NewPostgresTodoRepository(db.DB), func() { db.Close() }, nil

	case config.DriverNeo4j:
		driver, err := database.NewNeo4j(ctx, cfg.Database.Neo4j)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		closeFn := func() {
			if err := driver.Close(context.Background()); err != nil {
				log.Warnw("Neo4j close failed", "error", err)
			}
		}

		repo := repository.NewNeo4jTodoRepository(driver, cfg.Database.Neo4j.Database)
		if err := repo.EnsureConstraints(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to create neo4j constraints: %w", err)
		}
		log.Infow("Connected to neo4j", "uri", cfg.Database.Neo4j.URI)
		return repo, closeFn, nil

	default:
		log.Warn("Using in-memory todo store, data is lost on restart")
		return repository.NewMemoryTodoRepository(), func() {}, nil
	}
}

func openListCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.TodoCache, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NopTodoCache{}, func() {}, nil
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("Caching todo list in redis", "addr", cfg.Redis.GetAddr(), "ttl", cfg.Redis.ListTTL)

	return cache.NewRedisTodoCache(rdb), func() { rdb.Close() }, nil
}

func newMigrator(cfg *config.Config) (*migrate.Migrate, func(), error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("migrations only apply to the postgres driver, configured driver is %q", cfg.Database.Driver)
	}

	db, err := database.New(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.Database.Postgres.MigrationsPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, func() { db.Close() }, nil
}

func runMigration(cmd *cobra.Command, direction string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, closeFn, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, closeFn, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}
