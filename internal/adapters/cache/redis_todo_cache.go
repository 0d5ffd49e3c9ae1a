package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

const todoListKey = "calendo:todos:list"

// RedisTodoCache keeps the serialized todo list in a single Redis key.
type RedisTodoCache struct {
	rdb *redis.Client
}

func NewRedisTodoCache(rdb *redis.Client) *RedisTodoCache {
	return &RedisTodoCache{rdb: rdb}
}

var _ ports.TodoCache = (*RedisTodoCache)(nil)

// GetList returns nil, nil on a cache miss.
func (c *RedisTodoCache) GetList(ctx context.Context) ([]*entities.Todo, error) {
	val, err := c.rdb.Get(ctx, todoListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var todos []*entities.Todo
	if err := json.Unmarshal(val, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *RedisTodoCache) SetList(ctx context.Context, todos []*entities.Todo, ttl time.Duration) error {
	data, err := json.Marshal(todos)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, todoListKey, data, ttl).Err()
}

func (c *RedisTodoCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, todoListKey).Err()
}

// NopTodoCache always misses.
type NopTodoCache struct{}

func (NopTodoCache) GetList(context.Context) ([]*entities.Todo, error)              { return nil, nil }
func (NopTodoCache) SetList(context.Context, []*entities.Todo, time.Duration) error { return nil }
func (NopTodoCache) Invalidate(context.Context) error                               { return nil }
