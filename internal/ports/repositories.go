package ports

import (
	"context"
	"time"

	"github.com/calendo/core/internal/domain/entities"
)

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	// List returns every todo ordered by date descending. Ties keep storage order.
	List(ctx context.Context) ([]*entities.Todo, error)
	GetByID(ctx context.Context, id string) (*entities.Todo, error)
	// UpsertByTextAndCategory overwrites priority, category and date of the todo
	// matching (Text, Category) or inserts a new one with IsDone=false.
	UpsertByTextAndCategory(ctx context.Context, in entities.UpsertInput) (*entities.Todo, error)
	// SetDone stores isDone as given and returns the updated todo.
	SetDone(ctx context.Context, id string, isDone bool) (*entities.Todo, error)
	// Toggle negates the stored isDone flag and returns the updated todo.
	Toggle(ctx context.Context, id string) (*entities.Todo, error)
	// Delete removes the todo and returns it as it was.
	Delete(ctx context.Context, id string) (*entities.Todo, error)
	Ping(ctx context.Context) error
}

// TodoCache caches the full todo list in front of the repository.
type TodoCache interface {
	GetList(ctx context.Context) ([]*entities.Todo, error)
	SetList(ctx context.Context, todos []*entities.Todo, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// EventPublisher emits domain events for todo mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event TodoEvent) error
	Close() error
}

type TodoEventType string

const (
	TodoEventUpserted TodoEventType = "todo.upserted"
	TodoEventToggled  TodoEventType = "todo.toggled"
	TodoEventDeleted  TodoEventType = "todo.deleted"
)

// TodoEvent describes a single mutation.
type TodoEvent struct {
	Type       TodoEventType  `json:"type"`
	Todo       *entities.Todo `json:"todo"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Snapshot is the client cache as persisted: calendar day (2006-01-02) to the
// todos of that day, each bucket in hydration order.
type Snapshot map[string][]*entities.Todo

// SnapshotStore persists the client cache locally.
type SnapshotStore interface {
	// Load returns ok=false when no usable snapshot exists. err explains why
	// an existing snapshot was rejected.
	Load() (snapshot Snapshot, ok bool, err error)
	Save(snapshot Snapshot) error
}
