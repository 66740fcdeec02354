package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kitgore/lyrictype-sub002/common/models"
	"github.com/kitgore/lyrictype-sub002/common/redis"
)

// RedisStore persists records as JSON strings in Redis, keyed
// "<collection>:<id>".
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an instrumented Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(collection, id string) string {
	return collection + ":" + id
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (*models.ImageRecord, bool, error) {
	raw, found, err := s.client.Get(ctx, redisKey(collection, id))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	var rec models.ImageRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal record %s/%s: %w", collection, id, err)
	}
	return &rec, true, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s/%s: %w", collection, id, err)
	}
	return s.client.Set(ctx, redisKey(collection, id), string(raw))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
