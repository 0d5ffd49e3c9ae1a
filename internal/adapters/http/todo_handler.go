package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/ports"
)

// TodoHandler serves /api/todo
type TodoHandler struct {
	todoService ports.TodoService
	logger      *logger.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoService ports.TodoService, logger *logger.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		logger:      logger.WithComponent("todo_handler"),
	}
}

// Register mounts the todo routes on g
func (h *TodoHandler) Register(g *echo.Group) {
	g.GET("", h.ListTodos)
	g.POST("", h.UpsertTodo)
	g.PATCH("/:id", h.ToggleTodo)
	g.DELETE("/:id", h.DeleteTodo)
}

// ListTodos handles GET /api/todo
func (h *TodoHandler) ListTodos(c echo.Context) error {
	todos, err := h.todoService.ListTodos(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List todos failed", "error", err)
		return todoHTTPError(err)
	}
	if todos == nil {
		todos = []*entities.Todo{}
	}

	return c.JSON(http.StatusOK, todos)
}

// UpsertTodo handles POST /api/todo
func (h *TodoHandler) UpsertTodo(c echo.Context) error {
	var req ports.UpsertTodoRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest("Invalid request format", err)
	}

	if err := c.Validate(&req); err != nil {
		return invalidRequest(err.Error(), err)
	}

	todo, err := h.todoService.UpsertTodo(c.Request().Context(), req)
	if err != nil {
		h.logger.Errorw("Upsert todo failed", "error", err, "text", req.Text, "category", req.Category)
		return todoHTTPError(err)
	}

	return c.JSON(http.StatusOK, todo)
}

// ToggleTodo handles PATCH /api/todo/:id
func (h *TodoHandler) ToggleTodo(c echo.Context) error {
	id := c.Param("id")

	var req ports.ToggleTodoRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest("Invalid request format", err)
	}

	todo, err := h.todoService.ToggleDone(c.Request().Context(), id, req.IsDone)
	if err != nil {
		h.logger.Errorw("Toggle todo failed", "error", err, "todo_id", id)
		return todoHTTPError(err)
	}

	return c.JSON(http.StatusOK, todo)
}

// DeleteTodo handles DELETE /api/todo/:id
func (h *TodoHandler) DeleteTodo(c echo.Context) error {
	id := c.Param("id")

	todo, err := h.todoService.DeleteTodo(c.Request().Context(), id)
	if err != nil {
		h.logger.Errorw("Delete todo failed", "error", err, "todo_id", id)
		return todoHTTPError(err)
	}

	return c.JSON(http.StatusOK, todo)
}
