package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TodoClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewTodoClient(ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTodoClient: %v", err)
	}
	return c
}

func TestNewTodoClient_InvalidURL(t *testing.T) {
	if _, err := NewTodoClient("localhost", time.Second); err == nil {
		t.Error("expected error for url without scheme")
	}
}

func TestTodoClient_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/todo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"_id":"a1","text":"Pay rent","priority":"High","category":"personal","date":"2024-03-05T00:00:00Z","isDone":false}]`))
	})

	todos, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(todos) != 1 || todos[0].ID != "a1" || todos[0].DateKey() != "2024-03-05" {
		t.Errorf("todos = %+v", todos)
	}
}

func TestTodoClient_Create(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ports.UpsertTodoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Text != "Pay rent" || req.Date != "2024-03-05" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(entities.Todo{ID: "a1", Text: req.Text, Priority: entities.Priority(req.Priority)})
	})

	todo, err := c.Create(context.Background(), ports.UpsertTodoRequest{Text: "Pay rent", Priority: "High", Date: "2024-03-05"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if todo.ID != "a1" {
		t.Errorf("id = %s, want a1", todo.ID)
	}
}

func TestTodoClient_ToggleDone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/todo/a1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req ports.ToggleTodoRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(entities.Todo{ID: "a1", IsDone: !req.IsDone})
	})

	todo, err := c.ToggleDone(context.Background(), "a1", false)
	if err != nil {
		t.Fatalf("ToggleDone: %v", err)
	}
	if !todo.IsDone {
		t.Error("expected isDone=true")
	}
}

func TestTodoClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{"not found", http.StatusNotFound, `{"error":"todo not found"}`, true},
		{"server error", http.StatusInternalServerError, `{"error":"Internal Server Error"}`, false},
		{"bad request", http.StatusBadRequest, `{"error":"invalid todo"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Delete(context.Background(), "a1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, entities.ErrTodoNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrTodoNotFound) = %v, want %v (%v)", got, tt.notFound, err)
			}

			var se *StatusError
			if !tt.notFound {
				if !errors.As(err, &se) {
					t.Fatalf("err = %T, want *StatusError", err)
				}
				if se.StatusCode != tt.status {
					t.Errorf("status = %d, want %d", se.StatusCode, tt.status)
				}
			}
		})
	}
}
