package assetcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/rbmmusic/assetcache/internal/kvstore"
)

// metadataStore holds the CacheKey -> Entry table in memory and persists it
// as one JSON blob. Every mutation rewrites the blob while holding writeMu so
// concurrent updates for different keys cannot lose each other.
//
// Until the persisted blob has been read, mutations stay in memory and are
// queued; a later successful load replays them on top of the stored table
// before anything is written back.
type metadataStore struct {
	store  kvstore.Store
	key    string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry

	writeMu sync.Mutex
	loaded  bool
	pending []func(map[string]Entry)
}

func newMetadataStore(store kvstore.Store, key string, logger *slog.Logger) *metadataStore {
	return &metadataStore{
		store:   store,
		key:     key,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// load replaces the in-memory table with the persisted one. A missing or
// corrupt blob yields an empty table; only a store failure is returned, and
// then the table stays unloaded. Mutations queued while unloaded are applied
// to the loaded table and persisted.
func (m *metadataStore) load(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	data, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	entries := make(map[string]Entry)
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			m.logger.WarnContext(ctx, "Cache metadata is corrupt, starting empty", "error", err)
			entries = make(map[string]Entry)
		}
	}

	pending := m.pending
	for _, fn := range pending {
		fn(entries)
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	m.loaded = true
	m.pending = nil

	if len(pending) == 0 {
		return nil
	}

	m.logger.InfoContext(ctx, "Merging metadata changes made before load", "changes", len(pending))
	return m.persist(ctx)
}

func (m *metadataStore) get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *metadataStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *metadataStore) snapshot() map[string]Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}

// put stores e under key and persists the table.
func (m *metadataStore) put(ctx context.Context, key string, e Entry) error {
	return m.mutate(ctx, func(entries map[string]Entry) {
		entries[key] = e
	})
}

func (m *metadataStore) remove(ctx context.Context, key string) error {
	return m.mutate(ctx, func(entries map[string]Entry) {
		delete(entries, key)
	})
}

func (m *metadataStore) reset(ctx context.Context) error {
	return m.mutate(ctx, func(entries map[string]Entry) {
		clear(entries)
	})
}

func (m *metadataStore) mutate(ctx context.Context, fn func(map[string]Entry)) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	fn(m.entries)
	m.mu.Unlock()

	// Writing now would overwrite records that were never read.
	if !m.loaded {
		m.pending = append(m.pending, fn)
		return nil
	}

	return m.persist(ctx)
}

// persist writes the whole table. The caller holds writeMu.
func (m *metadataStore) persist(ctx context.Context) error {
	m.mu.RLock()
	data, err := json.Marshal(m.entries)
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := m.store.Set(ctx, m.key, data); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	return nil
}
