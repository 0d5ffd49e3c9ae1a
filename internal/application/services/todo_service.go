package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/infrastructure/metrics"
	"github.com/calendo/core/internal/ports"
)

// TodoServiceOptions tunes TodoService behavior
type TodoServiceOptions struct {
	ToggleMode ports.ToggleMode
	ListTTL    time.Duration
	Metrics    *metrics.TodoMetrics
	Now        func() time.Time
}

// TodoService handles todo store operations
type TodoService struct {
	repo    ports.TodoRepository
	cache   ports.TodoCache
	events  ports.EventPublisher
	logger  *logger.Logger
	metrics *metrics.TodoMetrics

	toggleMode ports.ToggleMode
	listTTL    time.Duration
	now        func() time.Time

	// listGen counts mutations so a list read that raced one is not cached.
	listGen atomic.Uint64
}

var _ ports.TodoService = (*TodoService)(nil)

// NewTodoService creates a new todo service
func NewTodoService(repo ports.TodoRepository, cache ports.TodoCache, events ports.EventPublisher, logger *logger.Logger, opts TodoServiceOptions) *TodoService {
	if opts.ToggleMode == "" {
		opts.ToggleMode = ports.ToggleModeCaller
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &TodoService{
		repo:       repo,
		cache:      cache,
		events:     events,
		logger:     logger.WithComponent("todo_service"),
		metrics:    opts.Metrics,
		toggleMode: opts.ToggleMode,
		listTTL:    opts.ListTTL,
		now:        opts.Now,
	}
}

// ToggleMode reports which toggle semantics PATCH uses
func (s *TodoService) ToggleMode() ports.ToggleMode {
	return s.toggleMode
}

// ListTodos returns all todos, newest date first
func (s *TodoService) ListTodos(ctx context.Context) ([]*entities.Todo, error) {
	cached, err := s.cache.GetList(ctx)
	if err != nil {
		s.logger.Warnw("Todo list cache read failed", "error", err)
	}
	s.metrics.ObserveCache(cached != nil)
	if cached != nil {
		return cached, nil
	}

	gen := s.listGen.Load()
	start := time.Now()
	todos, err := s.repo.List(ctx)
	s.logger.LogDatabaseQuery("list todos", float64(time.Since(start).Microseconds())/1000, err)
	s.metrics.ObserveOperation("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	if s.listTTL > 0 && s.listGen.Load() == gen {
		if err := s.cache.SetList(ctx, todos, s.listTTL); err != nil {
			s.logger.Warnw("Todo list cache write failed", "error", err)
		}
		// a mutation that landed during SetList may have invalidated first
		if s.listGen.Load() != gen {
			s.invalidateList(ctx)
		}
	}

	return todos, nil
}

// UpsertTodo creates a todo or updates the one with the same text and category
func (s *TodoService) UpsertTodo(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error) {
	date, err := entities.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	in := entities.UpsertInput{
		Text:     req.Text,
		Priority: entities.Priority(req.Priority),
		Category: req.Category,
		Date:     date,
	}
	if err := in.Normalize(s.now()); err != nil {
		return nil, err
	}

	todo, err := s.repo.UpsertByTextAndCategory(ctx, in)
	s.metrics.ObserveOperation("upsert", err)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert todo: %w", err)
	}

	s.afterMutation(ctx, ports.TodoEventUpserted, todo)
	s.logger.LogTodoAction("upsert", todo.ID, map[string]interface{}{
		"priority": todo.Priority,
		"category": todo.Category,
		"date":     todo.DateKey(),
	})

	return todo, nil
}

// ToggleDone flips the done flag. In caller mode the result is the negation of
// currentIsDone; in server mode currentIsDone is ignored and the stored flag is negated.
func (s *TodoService) ToggleDone(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error) {
	var (
		todo *entities.Todo
		err  error
	)

	switch s.toggleMode {
	case ports.ToggleModeServer:
		todo, err = s.repo.Toggle(ctx, id)
	default:
		todo, err = s.repo.SetDone(ctx, id, !currentIsDone)
	}
	s.metrics.ObserveOperation("toggle", err)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle todo: %w", err)
	}

	s.afterMutation(ctx, ports.TodoEventToggled, todo)
	s.logger.LogTodoAction("toggle", todo.ID, map[string]interface{}{
		"is_done": todo.IsDone,
		"mode":    string(s.toggleMode),
	})

	return todo, nil
}

// DeleteTodo removes a todo and returns it
func (s *TodoService) DeleteTodo(ctx context.Context, id string) (*entities.Todo, error) {
	todo, err := s.repo.Delete(ctx, id)
	s.metrics.ObserveOperation("delete", err)
	if err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}

	s.afterMutation(ctx, ports.TodoEventDeleted, todo)
	s.logger.LogTodoAction("delete", todo.ID, nil)

	return todo, nil
}

// Ping checks the underlying store
func (s *TodoService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TodoService) afterMutation(ctx context.Context, eventType ports.TodoEventType, todo *entities.Todo) {
	s.listGen.Add(1)
	s.invalidateList(ctx)

	event := ports.TodoEvent{Type: eventType, Todo: todo, OccurredAt: s.now()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Errorw("Todo event publish failed", "type", eventType, "todo_id", todo.ID, "error", err)
	}
}

func (s *TodoService) invalidateList(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warnw("Todo list cache invalidation failed", "error", err)
	}
}
