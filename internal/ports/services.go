package ports

import (
	"context"

	"github.com/calendo/core/internal/domain/entities"
)

// ToggleMode selects how PATCH /api/todo/:id computes the new isDone flag.
type ToggleMode string

const (
	// ToggleModeCaller negates the flag the caller supplies.
	ToggleModeCaller ToggleMode = "caller"
	// ToggleModeServer negates the stored flag and ignores the supplied one.
	ToggleModeServer ToggleMode = "server"
)

func (m ToggleMode) IsValid() bool {
	return m == ToggleModeCaller || m == ToggleModeServer
}

// TodoService is the server-side todo store.
type TodoService interface {
	ListTodos(ctx context.Context) ([]*entities.Todo, error)
	UpsertTodo(ctx context.Context, req UpsertTodoRequest) (*entities.Todo, error)
	ToggleDone(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error)
	DeleteTodo(ctx context.Context, id string) (*entities.Todo, error)
}

// TodoStore is the client's view of the REST backend.
type TodoStore interface {
	List(ctx context.Context) ([]*entities.Todo, error)
	Create(ctx context.Context, req UpsertTodoRequest) (*entities.Todo, error)
	ToggleDone(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error)
	Delete(ctx context.Context, id string) (*entities.Todo, error)
}

// UpsertTodoRequest is the body of POST /api/todo.
type UpsertTodoRequest struct {
	Text     string `json:"text" validate:"required"`
	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	Category string `json:"category,omitempty" validate:"omitempty,ne=all"`
	Date     string `json:"date,omitempty"`
}

// ToggleTodoRequest is the body of PATCH /api/todo/:id.
type ToggleTodoRequest struct {
	IsDone bool `json:"isDone"`
}
