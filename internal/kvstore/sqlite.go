package kvstore

import (
	"context"

	"github.com/rbmmusic/assetcache/internal/database"
)

// SQLiteStore implements Store on the kv table.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore wraps an opened database. Closing the store closes db.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.db.Repository.Get(ctx, key)
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Repository.Set(ctx, key, value)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return s.db.Repository.Delete(ctx, key)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
