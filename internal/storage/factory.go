package storage

import (
	"context"
	"fmt"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/redis"
	"meeting-scheduler/internal/storage/postgres"
	"meeting-scheduler/internal/storage/sqlite"
)

// Backend types accepted by NewBackend
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
)

// Types lists every supported backend type
var Types = []string{TypeFile, TypeSQLite, TypePostgres, TypeRedis, TypeMemory}

// Config selects and configures a backend
type Config struct {
	Type     string
	FilePath string
	SQLite   sqlite.Config
	Postgres postgres.Config
	Redis    redis.Config
}

// NewBackend creates the backend named by cfg.Type
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemoryBackend(), nil

	case TypeFile, "":
		if cfg.FilePath == "" {
			return nil, errors.ConfigError("token store path is required for file storage")
		}
		return NewFileBackend(cfg.FilePath), nil

	case TypeSQLite:
		adapter, err := sqlite.NewAdapter(&cfg.SQLite)
		if err != nil {
			return nil, errors.ConnectionError("failed to open sqlite token store", err)
		}
		return NewSettingsBackend(adapter, SettingsKey), nil

	case TypePostgres:
		adapter, err := postgres.NewAdapter(ctx, &cfg.Postgres)
		if err != nil {
			return nil, errors.ConnectionError("failed to open postgres token store", err)
		}
		return NewSettingsBackend(adapter, SettingsKey), nil

	case TypeRedis:
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			return nil, errors.ConnectionError("failed to connect redis token store", err)
		}
		return NewRedisBackend(client, RedisKey), nil

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported token store type: %s", cfg.Type))
	}
}
