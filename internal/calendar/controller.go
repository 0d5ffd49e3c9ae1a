package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/ports"
)

var (
	ErrNoDateSelected = errors.New("no date selected")
	ErrUnknownFilter  = errors.New("unknown category filter")
)

// Controller holds the calendar view state and applies user actions to the
// cache first and the store second. Store failures are logged and returned
// but never undo the local change.
type Controller struct {
	cache  *Cache
	store  ports.TodoStore
	logger *logger.Logger
	now    func() time.Time

	selectedDate string
	filter       string
}

// NewController creates a controller with the "all" filter and no selected date.
// now defaults to time.Now.
func NewController(cache *Cache, store ports.TodoStore, logger *logger.Logger, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		cache:  cache,
		store:  store,
		logger: logger.WithComponent("calendar_controller"),
		now:    now,
		filter: entities.CategoryAll,
	}
}

// Today is the current UTC day.
func (c *Controller) Today() string {
	return c.now().UTC().Format(entities.DateLayout)
}

// SelectDate makes date (2006-01-02) the active day.
func (c *Controller) SelectDate(date string) error {
	if _, err := time.Parse(entities.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	c.selectedDate = date
	return nil
}

func (c *Controller) SelectedDate() string {
	return c.selectedDate
}

// IsPastDate reports whether the selected day is strictly before today.
func (c *Controller) IsPastDate() bool {
	return c.selectedDate < c.Today()
}

// SetFilter changes the active category filter.
func (c *Controller) SetFilter(category string) error {
	for _, f := range entities.FilterCategories {
		if f == category {
			c.filter = category
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownFilter, category)
}

func (c *Controller) Filter() string {
	return c.filter
}

// HasTodos reports whether the selected day has any todo.
func (c *Controller) HasTodos() bool {
	return c.cache.HasTodos(c.selectedDate)
}

// VisibleTodos is the selected day filtered by category, highest priority first.
func (c *Controller) VisibleTodos() []*entities.Todo {
	var visible []*entities.Todo
	for _, t := range c.cache.Todos(c.selectedDate) {
		if c.filter == entities.CategoryAll || t.Category == c.filter {
			visible = append(visible, t)
		}
	}
	DisplayOrder.Sort(visible)
	return visible
}

// AddTodo creates a todo on the selected day. The new todo takes the active
// filter as category unless the filter is "all".
func (c *Controller) AddTodo(ctx context.Context, text string, priority entities.Priority) (*entities.Todo, error) {
	if c.selectedDate == "" {
		return nil, ErrNoDateSelected
	}
	if c.IsPastDate() {
		return nil, entities.ErrPastDate
	}

	category := entities.CategoryGeneral
	if entities.IsStorableCategory(c.filter) {
		category = c.filter
	}

	todo, err := c.store.Create(ctx, ports.UpsertTodoRequest{
		Text:     text,
		Priority: string(priority),
		Category: category,
		Date:     c.selectedDate,
	})
	if err != nil {
		c.logger.Errorw("Adding todo failed", "error", err, "date", c.selectedDate, "text", text)
		return nil, err
	}

	if err := c.cache.Put(todo); err != nil {
		c.logger.Errorw("Caching added todo failed", "error", err, "todo_id", todo.ID)
	}
	c.logger.Debugw("Todo added", "todo_id", todo.ID, "date", todo.DateKey())

	return todo, nil
}

// ToggleDone flips the todo locally, then asks the store to do the same.
func (c *Controller) ToggleDone(ctx context.Context, id string) (*entities.Todo, error) {
	previous, err := c.cache.Toggle(c.selectedDate, id)
	if errors.Is(err, entities.ErrTodoNotFound) {
		return nil, err
	}
	if err != nil {
		c.logger.Errorw("Persisting toggle failed", "error", err, "todo_id", id)
	}

	todo, err := c.store.ToggleDone(ctx, id, previous)
	if err != nil {
		c.logger.Errorw("Toggling todo failed", "error", err, "todo_id", id)
		return nil, err
	}

	// A server-mode store answers with its own flag.
	if todo.IsDone == previous {
		if err := c.cache.SetDone(c.selectedDate, id, todo.IsDone); err != nil {
			c.logger.Errorw("Reconciling toggle failed", "error", err, "todo_id", id)
		}
	}

	return todo, nil
}

// DeleteTodo removes the todo locally, then from the store.
func (c *Controller) DeleteTodo(ctx context.Context, id string) error {
	err := c.cache.Remove(c.selectedDate, id)
	if errors.Is(err, entities.ErrTodoNotFound) {
		return err
	}
	if err != nil {
		c.logger.Errorw("Persisting delete failed", "error", err, "todo_id", id)
	}

	if _, err := c.store.Delete(ctx, id); err != nil {
		c.logger.Errorw("Deleting todo failed", "error", err, "todo_id", id)
		return err
	}

	return nil
}

// Events derives the calendar events from the cache.
func (c *Controller) Events() []Event {
	return c.cache.Events()
}
