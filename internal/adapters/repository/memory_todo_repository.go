package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

// MemoryTodoRepository keeps todos in process memory. Insertion order is the
// natural storage order used to break date ties.
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	todos []*entities.Todo
	newID func() string
}

// NewMemoryTodoRepository creates an empty in-memory repository
func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{
		newID: func() string { return uuid.New().String() },
	}
}

var _ ports.TodoRepository = (*MemoryTodoRepository)(nil)

func (r *MemoryTodoRepository) List(ctx context.Context) ([]*entities.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Todo, 0, len(r.todos))
	for _, t := range r.todos {
		c := *t
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (r *MemoryTodoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, entities.ErrTodoNotFound
	}
	c := *r.todos[i]
	return &c, nil
}

func (r *MemoryTodoRepository) UpsertByTextAndCategory(ctx context.Context, in entities.UpsertInput) (*entities.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.todos {
		if t.Text == in.Text && t.Category == in.Category {
			t.Priority = in.Priority
			t.Category = in.Category
			t.Date = in.Date
			c := *t
			return &c, nil
		}
	}

	t := &entities.Todo{
		ID:       r.newID(),
		Text:     in.Text,
		Priority: in.Priority,
		Category: in.Category,
		Date:     in.Date,
	}
	r.todos = append(r.todos, t)
	c := *t
	return &c, nil
}

func (r *MemoryTodoRepository) SetDone(ctx context.Context, id string, isDone bool) (*entities.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, entities.ErrTodoNotFound
	}
	r.todos[i].IsDone = isDone
	c := *r.todos[i]
	return &c, nil
}

func (r *MemoryTodoRepository) Toggle(ctx context.Context, id string) (*entities.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, entities.ErrTodoNotFound
	}
	r.todos[i].IsDone = !r.todos[i].IsDone
	c := *r.todos[i]
	return &c, nil
}

func (r *MemoryTodoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, entities.ErrTodoNotFound
	}
	deleted := r.todos[i]
	r.todos = append(r.todos[:i], r.todos[i+1:]...)
	return deleted, nil
}

func (r *MemoryTodoRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryTodoRepository) indexOf(id string) int {
	for i, t := range r.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
