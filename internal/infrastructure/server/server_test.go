package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calendo/core/internal/adapters/cache"
	"github.com/calendo/core/internal/adapters/events"
	"github.com/calendo/core/internal/adapters/repository"
	"github.com/calendo/core/internal/application/services"
	"github.com/calendo/core/internal/infrastructure/config"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/infrastructure/metrics"
)

type pingFailRepository struct {
	*repository.MemoryTodoRepository
}

func (pingFailRepository) Ping(context.Context) error {
	return errors.New("connection refused")
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "Calendo", Version: "test"},
		Server:   config.ServerConfig{Port: 8000, RequestTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*", RateLimitRequests: 1000, RateLimitWindow: time.Minute},
		Metrics:  config.MetricsConfig{Enabled: true},
		Todo:     config.TodoConfig{ToggleMode: "caller"},
	}
}

func newTestServer(t *testing.T, repo *repository.MemoryTodoRepository, failPing bool) *Server {
	t.Helper()

	registry := prometheus.NewRegistry()
	opts := services.TodoServiceOptions{Metrics: metrics.NewTodoMetrics(registry)}
	var svc *services.TodoService
	if failPing {
		svc = services.NewTodoService(pingFailRepository{repo}, cache.NopTodoCache{}, events.NopPublisher{}, logger.NewNop(), opts)
	} else {
		svc = services.NewTodoService(repo, cache.NopTodoCache{}, events.NopPublisher{}, logger.NewNop(), opts)
	}

	srv, err := New(testConfig(), svc, registry, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	msg, ok := body["error"]
	if !ok {
		t.Fatalf("error body has no error field: %v", body)
	}
	return msg
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryTodoRepository(), false)

	if rec := serve(srv, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := serve(srv, http.MethodGet, "/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("/ready status = %d", rec.Code)
	}
}

func TestServer_ReadyWhenStoreDown(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryTodoRepository(), true)

	if rec := serve(srv, http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want 503", rec.Code)
	}
}

func TestServer_TodoLifecycle(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryTodoRepository(), false)

	rec := serve(srv, http.MethodPost, "/api/todo", `{"text":"Pay rent","priority":"High","category":"personal","date":"2024-03-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, _ := created["_id"].(string)
	if id == "" {
		t.Fatalf("created todo has no _id: %v", created)
	}

	rec = serve(srv, http.MethodPost, "/api/todo", `{"text":"Pay rent","priority":"Medium","category":"personal","date":"2024-03-05"}`)
	var updated map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated["_id"] != id || updated["priority"] != "Medium" {
		t.Errorf("upsert did not update in place: %v", updated)
	}

	rec = serve(srv, http.MethodPatch, "/api/todo/"+id, `{"isDone":false}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isDone":true`) {
		t.Errorf("toggle: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(srv, http.MethodDelete, "/api/todo/"+id, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = serve(srv, http.MethodDelete, "/api/todo/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "todo not found" {
		t.Errorf("error = %q", msg)
	}

	rec = serve(srv, http.MethodGet, "/api/todo", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("list after delete = %s", rec.Body.String())
	}
}

func TestServer_ValidationErrorBody(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryTodoRepository(), false)

	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{"priority":"High"}`},
		{"empty text", `{"text":""}`},
		{"unknown priority", `{"text":"x","priority":"Urgent"}`},
		{"filter category", `{"text":"x","category":"all"}`},
		{"bad date", `{"text":"x","date":"yesterday"}`},
		{"malformed json", `{"text":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, http.MethodPost, "/api/todo", tt.body)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if msg := errorBody(t, rec); msg == "" || msg == http.StatusText(http.StatusInternalServerError) {
				t.Errorf("expected a validation message, got %q", msg)
			}
		})
	}

	rec := serve(srv, http.MethodGet, "/api/todo", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("rejected bodies were stored: %s", rec.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryTodoRepository(), false)

	serve(srv, http.MethodPost, "/api/todo", `{"text":"Stretch"}`)

	rec := serve(srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"http_requests_total", "calendo_todo_operations_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}

func TestRequestRate(t *testing.T) {
	if got := requestRate(60, time.Minute); got != 1 {
		t.Errorf("requestRate(60, 1m) = %v, want 1", got)
	}
	if got := requestRate(5, 0); got != 5 {
		t.Errorf("requestRate(5, 0) = %v, want 5", got)
	}
}
