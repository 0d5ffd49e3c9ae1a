package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

const todoReturn = "RETURN t.id AS id, t.text AS text, t.priority AS priority, " +
	"t.category AS category, t.date AS date, t.isDone AS isDone"

// Neo4jTodoRepository stores todos as (:Todo) nodes.
type Neo4jTodoRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jTodoRepository creates a new todo repository. An empty database
// selects the server default.
func NewNeo4jTodoRepository(driver neo4j.DriverWithContext, database string) *Neo4jTodoRepository {
	return &Neo4jTodoRepository{driver: driver, database: database}
}

var _ ports.TodoRepository = (*Neo4jTodoRepository)(nil)

// todoConstraints keep ids unique and back the MERGE on (text, category).
var todoConstraints = []string{
	"CREATE CONSTRAINT todo_id_unique IF NOT EXISTS FOR (t:Todo) REQUIRE t.id IS UNIQUE",
	"CREATE CONSTRAINT todo_text_category_unique IF NOT EXISTS FOR (t:Todo) REQUIRE (t.text, t.category) IS UNIQUE",
}

// EnsureConstraints creates the uniqueness constraints on todo nodes.
func (r *Neo4jTodoRepository) EnsureConstraints(ctx context.Context) error {
	for _, stmt := range todoConstraints {
		_, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("ensure todo constraints: %w", err)
		}
	}
	return nil
}

func (r *Neo4jTodoRepository) List(ctx context.Context) ([]*entities.Todo, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (t:Todo) "+todoReturn+" ORDER BY t.date DESC, t.createdAt ASC", nil)
		if err != nil {
			return nil, err
		}

		todos := make([]*entities.Todo, 0)
		for res.Next(ctx) {
			todo, err := recordToTodo(res.Record())
			if err != nil {
				return nil, err
			}
			todos = append(todos, todo)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return todos, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return result.([]*entities.Todo), nil
}

func (r *Neo4jTodoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleTodo(ctx, tx, "MATCH (t:Todo {id: $id}) "+todoReturn, map[string]any{"id": id})
	})
	return todoOrNotFound(result, err, "get todo by id")
}

func (r *Neo4jTodoRepository) UpsertByTextAndCategory(ctx context.Context, in entities.UpsertInput) (*entities.Todo, error) {
	result, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleTodo(ctx, tx,
			"MERGE (t:Todo {text: $text, category: $category}) "+
				"ON CREATE SET t.id = $id, t.isDone = false, t.createdAt = datetime() "+
				"SET t.priority = $priority, t.date = $date "+
				todoReturn,
			map[string]any{
				"id":       uuid.New().String(),
				"text":     in.Text,
				"category": in.Category,
				"priority": string(in.Priority),
				"date":     in.Date,
			},
		)
	})
	return todoOrNotFound(result, err, "upsert todo")
}

func (r *Neo4jTodoRepository) SetDone(ctx context.Context, id string, isDone bool) (*entities.Todo, error) {
	result, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleTodo(ctx, tx,
			"MATCH (t:Todo {id: $id}) SET t.isDone = $isDone "+todoReturn,
			map[string]any{"id": id, "isDone": isDone},
		)
	})
	return todoOrNotFound(result, err, "set todo done")
}

func (r *Neo4jTodoRepository) Toggle(ctx context.Context, id string) (*entities.Todo, error) {
	result, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleTodo(ctx, tx,
			"MATCH (t:Todo {id: $id}) SET t.isDone = NOT t.isDone "+todoReturn,
			map[string]any{"id": id},
		)
	})
	return todoOrNotFound(result, err, "toggle todo")
}

func (r *Neo4jTodoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	result, err := r.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return singleTodo(ctx, tx,
			"MATCH (t:Todo {id: $id}) "+
				"WITH t, t.id AS id, t.text AS text, t.priority AS priority, "+
				"t.category AS category, t.date AS date, t.isDone AS isDone "+
				"DETACH DELETE t "+
				"RETURN id, text, priority, category, date, isDone",
			map[string]any{"id": id},
		)
	})
	return todoOrNotFound(result, err, "delete todo")
}

func (r *Neo4jTodoRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *Neo4jTodoRepository) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: r.database})
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// singleTodo runs query and returns the first row, or nil when nothing matched.
func singleTodo(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) (any, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !res.Next(ctx) {
		return nil, res.Err()
	}
	return recordToTodo(res.Record())
}

func todoOrNotFound(result any, err error, op string) (*entities.Todo, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	todo, ok := result.(*entities.Todo)
	if !ok || todo == nil {
		return nil, entities.ErrTodoNotFound
	}
	return todo, nil
}

func recordToTodo(record *neo4j.Record) (*entities.Todo, error) {
	if len(record.Values) < 6 {
		return nil, fmt.Errorf("unexpected todo record with %d values", len(record.Values))
	}

	todo := &entities.Todo{}
	todo.ID, _ = record.Values[0].(string)
	todo.Text, _ = record.Values[1].(string)
	if p, ok := record.Values[2].(string); ok {
		todo.Priority = entities.Priority(p)
	}
	todo.Category, _ = record.Values[3].(string)
	if d, ok := record.Values[4].(time.Time); ok {
		todo.Date = d
	}
	todo.IsDone, _ = record.Values[5].(bool)

	return todo, nil
}
