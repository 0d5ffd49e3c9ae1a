package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

// StatusError is returned for any non-2xx answer other than 404.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// TodoClient talks to the /api/todo REST backend.
type TodoClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.TodoStore = (*TodoClient)(nil)

// NewTodoClient creates a client for the server at baseURL
func NewTodoClient(baseURL string, timeout time.Duration) (*TodoClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	return &TodoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *TodoClient) List(ctx context.Context) ([]*entities.Todo, error) {
	var todos []*entities.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todo", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *TodoClient) Create(ctx context.Context, req ports.UpsertTodoRequest) (*entities.Todo, error) {
	var todo entities.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todo", req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *TodoClient) ToggleDone(ctx context.Context, id string, currentIsDone bool) (*entities.Todo, error) {
	var todo entities.Todo
	body := ports.ToggleTodoRequest{IsDone: currentIsDone}
	if err := c.do(ctx, http.MethodPatch, "/api/todo/"+url.PathEscape(id), body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *TodoClient) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	var todo entities.Todo
	if err := c.do(ctx, http.MethodDelete, "/api/todo/"+url.PathEscape(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *TodoClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, entities.ErrTodoNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
