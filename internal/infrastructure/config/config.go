package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appName = "calendo"

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Todo     TodoConfig     `mapstructure:"todo"`
	Client   ClientConfig   `mapstructure:"client"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverNeo4j    = "neo4j"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures the todo store
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RedisConfig holds Redis configuration for the list cache
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ListTTL  time.Duration `mapstructure:"list_ttl"`
}

// KafkaConfig holds the todo event stream configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds CORS and rate limiting
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TodoConfig holds store behavior switches
type TodoConfig struct {
	// ToggleMode is "caller" (negate the supplied flag) or "server" (negate the stored flag).
	ToggleMode string `mapstructure:"toggle_mode"`
}

// ClientConfig configures the calendar client commands
type ClientConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from defaults, an optional config file, .env and the environment
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Client.SnapshotPath == "" {
		path, err := DefaultSnapshotPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
		}
		cfg.Client.SnapshotPath = path
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Calendo")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo.database", "calendar-todo")
	v.SetDefault("database.mongo.connect_timeout", "10s")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.name", "calendo")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "5m")
	v.SetDefault("database.postgres.conn_max_idle_time", "30s")
	v.SetDefault("database.postgres.migrations_path", "file://migrations")
	v.SetDefault("database.neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("database.neo4j.user", "neo4j")
	v.SetDefault("database.neo4j.password", "")
	v.SetDefault("database.neo4j.database", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.list_ttl", "15s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "calendo.todos")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "1m")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("todo.toggle_mode", "caller")

	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.snapshot_path", "")
	v.SetDefault("client.timeout", "10s")
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("app.debug", "APP_DEBUG")

	// Server
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.host", "SERVER_HOST")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.mongo.uri", "MONGO_URI")
	v.BindEnv("database.mongo.database", "MONGO_DATABASE")
	v.BindEnv("database.postgres.host", "DB_HOST")
	v.BindEnv("database.postgres.port", "DB_PORT")
	v.BindEnv("database.postgres.name", "DB_NAME")
	v.BindEnv("database.postgres.user", "DB_USER")
	v.BindEnv("database.postgres.password", "DB_PASSWORD")
	v.BindEnv("database.postgres.ssl_mode", "DB_SSL_MODE")
	v.BindEnv("database.neo4j.uri", "NEO4J_URI")
	v.BindEnv("database.neo4j.user", "NEO4J_USER")
	v.BindEnv("database.neo4j.password", "NEO4J_PASSWORD")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Kafka
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")

	// Security
	v.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")

	v.BindEnv("metrics.enabled", "ENABLE_METRICS")
	v.BindEnv("todo.toggle_mode", "TODO_TOGGLE_MODE")

	// Client
	v.BindEnv("client.base_url", "CALENDO_URL")
	v.BindEnv("client.snapshot_path", "CALENDO_SNAPSHOT")
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case DriverMongo:
		if cfg.Database.Mongo.URI == "" || cfg.Database.Mongo.Database == "" {
			return fmt.Errorf("mongo uri and database are required")
		}
	case DriverPostgres:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Name == "" {
			return fmt.Errorf("postgres host and name are required")
		}
	case DriverNeo4j:
		if cfg.Database.Neo4j.URI == "" {
			return fmt.Errorf("neo4j uri is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Todo.ToggleMode != "caller" && cfg.Todo.ToggleMode != "server" {
		return fmt.Errorf("todo toggle mode must be caller or server, got %q", cfg.Todo.ToggleMode)
	}

	if cfg.Kafka.Enabled && (len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}

	return nil
}

// DefaultSnapshotPath returns ~/.config/calendo/todos.json
func DefaultSnapshotPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "todos.json"), nil
}

// GetDSN returns the database connection string
func (cfg *PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetAddr returns the Redis address
func (cfg *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Address returns host:port for the HTTP listener
func (cfg *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}
