package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/ports"
)

type memorySnapshots struct {
	snap    ports.Snapshot
	ok      bool
	loadErr error
	saveErr error
	saves   int
}

func (m *memorySnapshots) Load() (ports.Snapshot, bool, error) {
	return m.snap, m.ok, m.loadErr
}

func (m *memorySnapshots) Save(snap ports.Snapshot) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap
	m.ok = true
	return nil
}

type mockStore struct {
	ListFunc       func(ctx context.Context) ([]*entities.Todo, error)
	CreateFunc     func(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error)
	ToggleDoneFunc func(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error)
	DeleteFunc     func(ctx context.Context, id string) (*entities.Todo, error)

	calls []string
}

func (m *mockStore) List(ctx context.Context) ([]*entities.Todo, error) {
	m.calls = append(m.calls, "list")
	return m.ListFunc(ctx)
}

func (m *mockStore) Create(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error) {
	m.calls = append(m.calls, "create")
	return m.CreateFunc(ctx, req)
}

func (m *mockStore) ToggleDone(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error) {
	m.calls = append(m.calls, "toggle")
	return m.ToggleDoneFunc(ctx, id, currentIsDone)
}

func (m *mockStore) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	m.calls = append(m.calls, "delete")
	return m.DeleteFunc(ctx, id)
}

func day(s string) time.Time {
	t, err := time.Parse(entities.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func todo(id, text string, p entities.Priority, category, date string) *entities.Todo {
	return &entities.Todo{ID: id, Text: text, Priority: p, Category: category, Date: day(date)}
}

func fixedNow(date string) func() time.Time {
	return func() time.Time { return day(date).Add(10 * time.Hour) }
}

func ids(todos []*entities.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hydratedCache(t *testing.T, todos ...*entities.Todo) (*Cache, *memorySnapshots) {
	t.Helper()
	snaps := &memorySnapshots{}
	cache := NewCache(snaps, logger.NewNop())
	store := &mockStore{ListFunc: func(context.Context) ([]*entities.Todo, error) { return todos, nil }}
	if _, err := cache.Hydrate(context.Background(), store); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	return cache, snaps
}

func TestPolicies(t *testing.T) {
	todos := []*entities.Todo{
		{ID: "m", Priority: entities.PriorityMedium},
		{ID: "h", Priority: entities.PriorityHigh},
		{ID: "x", Priority: "Urgent"},
		{ID: "l", Priority: entities.PriorityLow},
	}

	HydrationOrder.Sort(todos)
	if got := ids(todos); !equalIDs(got, []string{"x", "l", "m", "h"}) {
		t.Errorf("hydration order = %v", got)
	}

	DisplayOrder.Sort(todos)
	if got := ids(todos); !equalIDs(got, []string{"h", "m", "x", "l"}) {
		t.Errorf("display order = %v", got)
	}
}

func TestCache_HydrateFromStore(t *testing.T) {
	cache, snaps := hydratedCache(t,
		todo("h", "Pay rent", entities.PriorityHigh, "personal", "2024-03-05"),
		todo("l", "Stretch", entities.PriorityLow, "General", "2024-03-05"),
		todo("m", "Email boss", entities.PriorityMedium, "work", "2024-03-01"),
	)

	if snaps.saves != 1 {
		t.Errorf("snapshot saves = %d, want 1", snaps.saves)
	}
	if got := ids(snaps.snap["2024-03-05"]); !equalIDs(got, []string{"l", "h"}) {
		t.Errorf("snapshot bucket = %v, want hydration order [l h]", got)
	}
	if !cache.HasTodos("2024-03-01") || cache.HasTodos("2024-03-02") {
		t.Error("HasTodos mismatch")
	}
	if got := cache.Dates(); !equalIDs(got, []string{"2024-03-01", "2024-03-05"}) {
		t.Errorf("dates = %v", got)
	}
}

func TestCache_HydratePrefersSnapshot(t *testing.T) {
	snaps := &memorySnapshots{
		ok: true,
		snap: ports.Snapshot{
			"2024-03-05": {todo("s1", "From disk", entities.PriorityLow, "General", "2024-03-05")},
		},
	}
	store := &mockStore{}
	cache := NewCache(snaps, logger.NewNop())

	source, err := cache.Hydrate(context.Background(), store)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if source != SourceSnapshot {
		t.Errorf("source = %s, want snapshot", source)
	}
	if len(store.calls) != 0 {
		t.Errorf("store called: %v", store.calls)
	}
	if got := ids(cache.Todos("2024-03-05")); !equalIDs(got, []string{"s1"}) {
		t.Errorf("todos = %v", got)
	}
}

func TestCache_HydrateFallsBackOnBadSnapshot(t *testing.T) {
	snaps := &memorySnapshots{loadErr: errors.New("snapshot does not match schema")}
	store := &mockStore{ListFunc: func(context.Context) ([]*entities.Todo, error) {
		return []*entities.Todo{todo("a", "Run", entities.PriorityLow, "General", "2024-03-05")}, nil
	}}
	cache := NewCache(snaps, logger.NewNop())

	source, err := cache.Hydrate(context.Background(), store)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if source != SourceStore {
		t.Errorf("source = %s, want store", source)
	}
}

func TestCache_HydrateRejectsMisfiledSnapshot(t *testing.T) {
	snaps := &memorySnapshots{
		snap: ports.Snapshot{"2024-03-01": {todo("a", "Run", entities.PriorityLow, "General", "2024-03-05")}},
		ok:   true,
	}
	store := &mockStore{ListFunc: func(context.Context) ([]*entities.Todo, error) {
		return []*entities.Todo{todo("a", "Run", entities.PriorityLow, "General", "2024-03-05")}, nil
	}}
	cache := NewCache(snaps, logger.NewNop())

	source, err := cache.Hydrate(context.Background(), store)
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if source != SourceStore {
		t.Errorf("source = %s, want store", source)
	}
	if cache.HasTodos("2024-03-01") {
		t.Error("misfiled day kept")
	}
	if got, _ := cache.DateOf("a"); got != "2024-03-05" {
		t.Errorf("DateOf(a) = %q, want 2024-03-05", got)
	}
	if _, ok := snaps.snap["2024-03-01"]; ok {
		t.Error("snapshot not rewritten from the store")
	}
}

func TestCache_HydrateStoreFailure(t *testing.T) {
	store := &mockStore{ListFunc: func(context.Context) ([]*entities.Todo, error) {
		return nil, errors.New("connection refused")
	}}
	cache := NewCache(&memorySnapshots{}, logger.NewNop())

	if _, err := cache.Hydrate(context.Background(), store); err == nil {
		t.Error("expected error")
	}
}

func TestCache_Events(t *testing.T) {
	cache, _ := hydratedCache(t,
		todo("l", "Stretch", entities.PriorityLow, "General", "2024-03-05"),
		todo("h", "Pay rent", entities.PriorityHigh, "personal", "2024-03-05"),
		todo("m", "Email boss", entities.PriorityMedium, "work", "2024-03-05"),
		todo("o", "Gym", "Whatever", "General", "2024-03-01"),
	)

	events := cache.Events()
	want := []struct {
		id, date, color string
	}{
		{"o", "2024-03-01", "green"},
		{"h", "2024-03-05", "red"},
		{"m", "2024-03-05", "orange"},
		{"l", "2024-03-05", "green"},
	}
	if len(events) != len(want) {
		t.Fatalf("len(events) = %d, want %d", len(events), len(want))
	}
	for i, w := range want {
		e := events[i]
		if e.TodoID != w.id || e.Date != w.date || e.Color != w.color {
			t.Errorf("events[%d] = %+v, want %+v", i, e, w)
		}
	}
}

func TestCache_PutMovesTodoBetweenDays(t *testing.T) {
	cache, snaps := hydratedCache(t,
		todo("a", "Pay rent", entities.PriorityHigh, "personal", "2024-03-01"),
	)

	moved := todo("a", "Pay rent", entities.PriorityMedium, "personal", "2024-03-05")
	if err := cache.Put(moved); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if cache.HasTodos("2024-03-01") {
		t.Error("stale copy left on old day")
	}
	got := cache.Todos("2024-03-05")
	if len(got) != 1 || got[0].Priority != entities.PriorityMedium {
		t.Errorf("todos = %+v", got)
	}
	if snaps.saves != 2 {
		t.Errorf("saves = %d, want 2", snaps.saves)
	}
	if date, ok := cache.DateOf("a"); !ok || date != "2024-03-05" {
		t.Errorf("DateOf = %s, %v", date, ok)
	}
}

func TestController_PastDateGuard(t *testing.T) {
	store := &mockStore{}
	ctrl := NewController(NewCache(&memorySnapshots{}, logger.NewNop()), store, logger.NewNop(), fixedNow("2024-01-01"))

	if err := ctrl.SelectDate("2023-01-01"); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	if !ctrl.IsPastDate() {
		t.Error("2023-01-01 should be past on 2024-01-01")
	}
	if _, err := ctrl.AddTodo(context.Background(), "Too late", entities.PriorityLow); !errors.Is(err, entities.ErrPastDate) {
		t.Errorf("err = %v, want ErrPastDate", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("store called: %v", store.calls)
	}

	if err := ctrl.SelectDate("2024-01-01"); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	if ctrl.IsPastDate() {
		t.Error("today is not a past date")
	}
}

func TestController_AddTodo(t *testing.T) {
	var received ports.UpsertTodoRequest
	store := &mockStore{CreateFunc: func(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error) {
		received = req
		return todo("srv-1", req.Text, entities.Priority(req.Priority), req.Category, req.Date), nil
	}}
	cache := NewCache(&memorySnapshots{}, logger.NewNop())
	ctrl := NewController(cache, store, logger.NewNop(), fixedNow("2024-03-01"))

	if _, err := ctrl.AddTodo(context.Background(), "x", entities.PriorityLow); !errors.Is(err, ErrNoDateSelected) {
		t.Errorf("err = %v, want ErrNoDateSelected", err)
	}

	ctrl.SelectDate("2024-03-05")
	if err := ctrl.SetFilter("work"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	added, err := ctrl.AddTodo(context.Background(), "Ship release", entities.PriorityHigh)
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if received.Category != "work" || received.Date != "2024-03-05" || received.Priority != "High" {
		t.Errorf("request = %+v", received)
	}
	if added.ID != "srv-1" {
		t.Errorf("id = %s", added.ID)
	}
	if got := ids(ctrl.VisibleTodos()); !equalIDs(got, []string{"srv-1"}) {
		t.Errorf("visible = %v", got)
	}

	ctrl.SetFilter(entities.CategoryAll)
	if _, err := ctrl.AddTodo(context.Background(), "Read", entities.PriorityLow); err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if received.Category != entities.CategoryGeneral {
		t.Errorf("category with filter all = %q, want General", received.Category)
	}
}

func TestController_AddTodoStoreFailureLeavesCache(t *testing.T) {
	store := &mockStore{CreateFunc: func(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error) {
		return nil, errors.New("connection refused")
	}}
	cache := NewCache(&memorySnapshots{}, logger.NewNop())
	ctrl := NewController(cache, store, logger.NewNop(), fixedNow("2024-03-01"))
	ctrl.SelectDate("2024-03-05")

	if _, err := ctrl.AddTodo(context.Background(), "Ship", entities.PriorityHigh); err == nil {
		t.Fatal("expected error")
	}
	if ctrl.HasTodos() {
		t.Error("failed add should not reach the cache")
	}
}

func TestController_VisibleTodosFilter(t *testing.T) {
	cache, _ := hydratedCache(t,
		todo("w1", "Email boss", entities.PriorityLow, "work", "2024-03-05"),
		todo("p1", "Pay rent", entities.PriorityHigh, "personal", "2024-03-05"),
		todo("w2", "Ship release", entities.PriorityHigh, "work", "2024-03-05"),
		todo("e1", "Movie", entities.PriorityMedium, "entertainment", "2024-03-04"),
	)
	ctrl := NewController(cache, &mockStore{}, logger.NewNop(), fixedNow("2024-03-01"))
	ctrl.SelectDate("2024-03-05")

	if got := len(ctrl.VisibleTodos()); got != 3 {
		t.Errorf("all: %d todos, want 3", got)
	}

	ctrl.SetFilter("work")
	visible := ctrl.VisibleTodos()
	if len(visible) != 2 || visible[0].ID != "w2" || visible[1].ID != "w1" {
		t.Errorf("work = %v, want [w2 w1]", ids(visible))
	}

	if err := ctrl.SetFilter("chores"); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("err = %v, want ErrUnknownFilter", err)
	}
	if ctrl.Filter() != "work" {
		t.Errorf("filter changed to %s", ctrl.Filter())
	}
}

func TestController_ToggleDone(t *testing.T) {
	cache, _ := hydratedCache(t, todo("a", "Run", entities.PriorityLow, "General", "2024-03-05"))

	var sent []bool
	store := &mockStore{ToggleDoneFunc: func(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error) {
		sent = append(sent, currentIsDone)
		res := todo(id, "Run", entities.PriorityLow, "General", "2024-03-05")
		res.IsDone = !currentIsDone
		return res, nil
	}}
	ctrl := NewController(cache, store, logger.NewNop(), fixedNow("2024-03-01"))
	ctrl.SelectDate("2024-03-05")

	if _, err := ctrl.ToggleDone(context.Background(), "a"); err != nil {
		t.Fatalf("ToggleDone: %v", err)
	}
	if !cache.Todos("2024-03-05")[0].IsDone {
		t.Error("cache not toggled")
	}
	if _, err := ctrl.ToggleDone(context.Background(), "a"); err != nil {
		t.Fatalf("ToggleDone: %v", err)
	}
	if cache.Todos("2024-03-05")[0].IsDone {
		t.Error("second toggle should restore false")
	}
	if len(sent) != 2 || sent[0] != false || sent[1] != true {
		t.Errorf("sent flags = %v, want [false true]", sent)
	}

	if _, err := ctrl.ToggleDone(context.Background(), "missing"); !errors.Is(err, entities.ErrTodoNotFound) {
		t.Errorf("err = %v, want ErrTodoNotFound", err)
	}
}

func TestController_ToggleDoneStoreFailureKeepsLocalFlip(t *testing.T) {
	cache, _ := hydratedCache(t, todo("a", "Run", entities.PriorityLow, "General", "2024-03-05"))
	store := &mockStore{ToggleDoneFunc: func(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error) {
		return nil, errors.New("timeout")
	}}
	ctrl := NewController(cache, store, logger.NewNop(), fixedNow("2024-03-01"))
	ctrl.SelectDate("2024-03-05")

	if _, err := ctrl.ToggleDone(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}
	if !cache.Todos("2024-03-05")[0].IsDone {
		t.Error("local toggle must not be rolled back")
	}
}

func TestController_DeleteTodoIsOptimistic(t *testing.T) {
	cache, snaps := hydratedCache(t,
		todo("a", "Run", entities.PriorityLow, "General", "2024-03-05"),
		todo("b", "Swim", entities.PriorityLow, "General", "2024-03-05"),
	)
	store := &mockStore{DeleteFunc: func(ctx context.Context, id string) (*entities.Todo, error) {
		return nil, errors.New("server unavailable")
	}}
	ctrl := NewController(cache, store, logger.NewNop(), fixedNow("2024-03-01"))
	ctrl.SelectDate("2024-03-05")

	if err := ctrl.DeleteTodo(context.Background(), "a"); err == nil {
		t.Fatal("expected store error to be reported")
	}
	if got := ids(cache.Todos("2024-03-05")); !equalIDs(got, []string{"b"}) {
		t.Errorf("todos after delete = %v, want [b]", got)
	}
	if got := ids(snaps.snap["2024-03-05"]); !equalIDs(got, []string{"b"}) {
		t.Errorf("snapshot after delete = %v, want [b]", got)
	}

	store.calls = nil
	if err := ctrl.DeleteTodo(context.Background(), "a"); !errors.Is(err, entities.ErrTodoNotFound) {
		t.Errorf("err = %v, want ErrTodoNotFound", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("store called for unknown id: %v", store.calls)
	}
}
