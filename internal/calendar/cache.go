package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/ports"
)

// Where a hydrated cache came from.
const (
	SourceSnapshot = "snapshot"
	SourceStore    = "store"
)

// Event is one calendar entry derived from a todo.
type Event struct {
	TodoID   string            `json:"id"`
	Title    string            `json:"title"`
	Date     string            `json:"start"`
	Priority entities.Priority `json:"priority"`
	Color    string            `json:"color"`
	IsDone   bool              `json:"isDone"`
}

// bucket holds the todos of one day in insertion order.
type bucket struct {
	order []string
	byID  map[string]*entities.Todo
}

func newBucket() *bucket {
	return &bucket{byID: make(map[string]*entities.Todo)}
}

func (b *bucket) put(todo *entities.Todo) {
	if _, ok := b.byID[todo.ID]; !ok {
		b.order = append(b.order, todo.ID)
	}
	b.byID[todo.ID] = todo
}

func (b *bucket) remove(id string) bool {
	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// todos returns copies in insertion order.
func (b *bucket) todos() []*entities.Todo {
	out := make([]*entities.Todo, 0, len(b.order))
	for _, id := range b.order {
		c := *b.byID[id]
		out = append(out, &c)
	}
	return out
}

// Cache mirrors the todo store on the client, keyed by day then by id.
// Every mutation is written through to the snapshot store before it returns.
type Cache struct {
	mu        sync.RWMutex
	days      map[string]*bucket
	snapshots ports.SnapshotStore
	logger    *logger.Logger
}

func NewCache(snapshots ports.SnapshotStore, logger *logger.Logger) *Cache {
	return &Cache{
		days:      make(map[string]*bucket),
		snapshots: snapshots,
		logger:    logger.WithComponent("calendar_cache"),
	}
}

// checkSnapshot rejects snapshots whose todos sit under another day than their own date.
func checkSnapshot(snap ports.Snapshot) error {
	for date, todos := range snap {
		for _, t := range todos {
			if t.DateKey() != date {
				return fmt.Errorf("todo %s dated %s is filed under %s", t.ID, t.DateKey(), date)
			}
		}
	}
	return nil
}

// Hydrate fills the cache from the local snapshot when one is usable,
// otherwise from the store. It reports which source was used.
func (c *Cache) Hydrate(ctx context.Context, store ports.TodoStore) (string, error) {
	snap, ok, err := c.snapshots.Load()
	if ok {
		err = checkSnapshot(snap)
		ok = err == nil
	}
	if err != nil {
		c.logger.Warnw("Ignoring unusable snapshot", "error", err)
	}
	if ok {
		c.mu.Lock()
		c.days = make(map[string]*bucket, len(snap))
		for date, todos := range snap {
			b := newBucket()
			for _, t := range todos {
				b.put(t)
			}
			c.days[date] = b
		}
		c.mu.Unlock()
		c.logger.Debugw("Cache hydrated", "source", SourceSnapshot, "days", len(snap))
		return SourceSnapshot, nil
	}

	todos, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch todos: %w", err)
	}

	grouped := make(map[string][]*entities.Todo)
	for _, t := range todos {
		grouped[t.DateKey()] = append(grouped[t.DateKey()], t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.days = make(map[string]*bucket, len(grouped))
	for date, dayTodos := range grouped {
		HydrationOrder.Sort(dayTodos)
		b := newBucket()
		for _, t := range dayTodos {
			b.put(t)
		}
		c.days[date] = b
	}
	c.logger.Debugw("Cache hydrated", "source", SourceStore, "days", len(grouped), "todos", len(todos))

	return SourceStore, c.persistLocked()
}

// Todos returns the todos of date in insertion order.
func (c *Cache) Todos(date string) []*entities.Todo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.days[date]
	if !ok {
		return nil
	}
	return b.todos()
}

// HasTodos reports whether date has at least one todo.
func (c *Cache) HasTodos(date string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.days[date]
	return ok && len(b.order) > 0
}

// DateOf returns the day holding id.
func (c *Cache) DateOf(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for date, b := range c.days {
		if _, ok := b.byID[id]; ok {
			return date, true
		}
	}
	return "", false
}

// Dates returns the days that have todos, ascending.
func (c *Cache) Dates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.datesLocked()
}

func (c *Cache) datesLocked() []string {
	dates := make([]string, 0, len(c.days))
	for date, b := range c.days {
		if len(b.order) > 0 {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// Events flattens the cache into calendar events, days ascending and each
// day in display order.
func (c *Cache) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var events []Event
	for _, date := range c.datesLocked() {
		todos := c.days[date].todos()
		DisplayOrder.Sort(todos)
		for _, t := range todos {
			events = append(events, Event{
				TodoID:   t.ID,
				Title:    t.Text,
				Date:     date,
				Priority: t.Priority,
				Color:    t.Priority.Color(),
				IsDone:   t.IsDone,
			})
		}
	}
	return events
}

// Put stores a store-confirmed todo under its own day. A copy of the same id
// under any other day is dropped.
func (c *Cache) Put(todo *entities.Todo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	date := todo.DateKey()
	for d, b := range c.days {
		if d != date {
			b.remove(todo.ID)
		}
	}

	b, ok := c.days[date]
	if !ok {
		b = newBucket()
		c.days[date] = b
	}
	stored := *todo
	b.put(&stored)

	return c.persistLocked()
}

// Toggle flips isDone of id under date and returns the flag it had before.
func (c *Cache) Toggle(date, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.lookupLocked(date, id)
	if err != nil {
		return false, err
	}
	previous := t.IsDone
	t.IsDone = !previous

	return previous, c.persistLocked()
}

// SetDone overwrites isDone of id under date.
func (c *Cache) SetDone(date, id string, isDone bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.lookupLocked(date, id)
	if err != nil {
		return err
	}
	if t.IsDone == isDone {
		return nil
	}
	t.IsDone = isDone

	return c.persistLocked()
}

// Remove deletes id from date.
func (c *Cache) Remove(date, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.days[date]
	if !ok || !b.remove(id) {
		return entities.ErrTodoNotFound
	}

	return c.persistLocked()
}

// Snapshot returns the persisted representation: every day in hydration order.
func (c *Cache) Snapshot() ports.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() ports.Snapshot {
	snap := make(ports.Snapshot, len(c.days))
	for date, b := range c.days {
		todos := b.todos()
		HydrationOrder.Sort(todos)
		snap[date] = todos
	}
	return snap
}

func (c *Cache) lookupLocked(date, id string) (*entities.Todo, error) {
	b, ok := c.days[date]
	if !ok {
		return nil, entities.ErrTodoNotFound
	}
	t, ok := b.byID[id]
	if !ok {
		return nil, entities.ErrTodoNotFound
	}
	return t, nil
}

func (c *Cache) persistLocked() error {
	if err := c.snapshots.Save(c.snapshotLocked()); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}
