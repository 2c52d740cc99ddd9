package storage

import (
	"context"
	"errors"
	"time"

	"meeting-scheduler/internal/redis"
)

// RedisKey is the key holding the credential document
const RedisKey = "meeting-scheduler:credentials"

// RedisClient is the subset of redis.Client used here
type RedisClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Close() error
}

// RedisBackend stores the document under a single key without expiry
type RedisBackend struct {
	client RedisClient
	key    string
}

func NewRedisBackend(client RedisClient, key string) *RedisBackend {
	if key == "" {
		key = RedisKey
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisBackend) Save(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0)
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) Health(ctx context.Context) error {
	if hc, ok := r.client.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
