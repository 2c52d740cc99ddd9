package app

import (
	"context"

	"meeting-scheduler/internal/common/logging"
	"meeting-scheduler/internal/credentials"
	"meeting-scheduler/internal/storage"
)

func (app *App) initializeStorage(ctx context.Context) error {
	storageConfig := app.Config.StorageConfig()

	switch storageConfig.Type {
	case storage.TypePostgres:
		app.Logger.Info("Token store: PostgreSQL",
			logging.Field{Key: "host", Value: storageConfig.Postgres.Host},
			logging.Field{Key: "port", Value: storageConfig.Postgres.Port},
			logging.Field{Key: "database", Value: storageConfig.Postgres.Database},
		)
	case storage.TypeSQLite:
		app.Logger.Info("Token store: SQLite", logging.Field{Key: "path", Value: storageConfig.SQLite.DatabasePath})
	case storage.TypeRedis:
		app.Logger.Info("Token store: Redis", logging.Field{Key: "address", Value: storageConfig.Redis.Address})
	case storage.TypeMemory:
		app.Logger.Warn("Token store: memory, credentials are lost on restart")
	}

	backend, err := storage.NewBackend(ctx, storageConfig)
	if err != nil {
		return err
	}
	app.Backend = backend
	if file, ok := backend.(*storage.FileBackend); ok {
		app.Logger.Info("Token store: file", logging.Field{Key: "path", Value: file.Path()})
	}

	store := credentials.NewStore(backend, app.Logger)
	if err := store.Init(ctx); err != nil {
		return err
	}
	app.Credentials = store
	return nil
}
