// Package kvstore persists small opaque values by key. The asset cache keeps
// its metadata blob here, on SQLite, Redis, PostgreSQL or plain files.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/rbmmusic/assetcache/internal/database"
	"github.com/spf13/afero"
)

// Store is a minimal key/value persistence contract.
// Get returns ok=false, not an error, when the key does not exist.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New opens the backend selected by cfg.
func New(cfg config.MetadataStoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		db, err := database.NewDB(database.Config{DatabasePath: cfg.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return NewSQLiteStore(db), nil
	case config.BackendRedis:
		return NewRedisStore(RedisConfig{URL: cfg.RedisURL})
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return NewPostgresStore(ctx, PostgresConfig{URL: cfg.PostgresURL})
	case config.BackendFile:
		return NewFileStore(afero.NewOsFs(), cfg.FileDir)
	default:
		return nil, fmt.Errorf("unknown metadata store backend %q", cfg.Backend)
	}
}
