package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"picmagic/models"
)

const taskKeyPrefix = "task:"

// RedisStore persists full task records as JSON values. Records carry no
// TTL; expiry is an external concern.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Put(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.client.Set(ctx, taskKeyPrefix+task.ID, data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Task, bool, error) {
	data, err := s.client.Get(ctx, taskKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, false, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &task, true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
