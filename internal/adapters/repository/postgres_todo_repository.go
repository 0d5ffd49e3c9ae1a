package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

const todoColumns = `id, text, priority, category, date, is_done`

// PostgresTodoRepository implements the TodoRepository interface on PostgreSQL
type PostgresTodoRepository struct {
	db *sqlx.DB
}

// NewPostgresTodoRepository creates a new todo repository
func NewPostgresTodoRepository(db *sqlx.DB) *PostgresTodoRepository {
	return &PostgresTodoRepository{db: db}
}

var _ ports.TodoRepository = (*PostgresTodoRepository)(nil)

func (r *PostgresTodoRepository) List(ctx context.Context) ([]*entities.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos ORDER BY date DESC, seq ASC`

	todos := make([]*entities.Todo, 0)
	if err := r.db.SelectContext(ctx, &todos, query); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *PostgresTodoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entities.ErrTodoNotFound
	}

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`

	var todo entities.Todo
	if err := r.db.GetContext(ctx, &todo, query, id); err != nil {
		return nil, noRowsOr(err, "get todo by id")
	}
	return &todo, nil
}

func (r *PostgresTodoRepository) UpsertByTextAndCategory(ctx context.Context, in entities.UpsertInput) (*entities.Todo, error) {
	query := `
		INSERT INTO todos (id, text, priority, category, date, is_done)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (text, category) DO UPDATE
		SET priority = EXCLUDED.priority, category = EXCLUDED.category, date = EXCLUDED.date
		RETURNING ` + todoColumns

	var todo entities.Todo
	err := r.db.GetContext(ctx, &todo, query, uuid.New().String(), in.Text, string(in.Priority), in.Category, in.Date)
	if err != nil {
		return nil, fmt.Errorf("upsert todo: %w", err)
	}
	return &todo, nil
}

func (r *PostgresTodoRepository) SetDone(ctx context.Context, id string, isDone bool) (*entities.Todo, error) {
	query := `UPDATE todos SET is_done = $2 WHERE id = $1 RETURNING ` + todoColumns
	return r.returningOne(ctx, query, "set todo done", id, isDone)
}

func (r *PostgresTodoRepository) Toggle(ctx context.Context, id string) (*entities.Todo, error) {
	query := `UPDATE todos SET is_done = NOT is_done WHERE id = $1 RETURNING ` + todoColumns
	return r.returningOne(ctx, query, "toggle todo", id)
}

func (r *PostgresTodoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	query := `DELETE FROM todos WHERE id = $1 RETURNING ` + todoColumns
	return r.returningOne(ctx, query, "delete todo", id)
}

func (r *PostgresTodoRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresTodoRepository) returningOne(ctx context.Context, query, op, id string, args ...interface{}) (*entities.Todo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entities.ErrTodoNotFound
	}

	var todo entities.Todo
	if err := r.db.GetContext(ctx, &todo, query, append([]interface{}{id}, args...)...); err != nil {
		return nil, noRowsOr(err, op)
	}
	return &todo, nil
}

func noRowsOr(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrTodoNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
