package store

import (
	"context"
	"sync"
	"time"

	"mbak/internal/backup"
)

// MemoryStore is an in-memory implementation of the backup.Store interface.
// It keeps every tracked entity in a map, making it useful for tests and for
// the "memory" database URL. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data backup.Entities
}

var _ backup.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore with all tracked entities.
func NewMemoryStore() *MemoryStore {
	data := make(backup.Entities, len(backup.EntityOrder))
	for _, entity := range backup.EntityOrder {
		data[entity] = []backup.Row{}
	}
	return &MemoryStore{data: data}
}

// Seed replaces the rows of one entity. Intended for test setup.
func (m *MemoryStore) Seed(entity string, rows []backup.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[entity] = append([]backup.Row{}, rows...)
}

// Snapshot returns a deep-enough copy of all entities: row slices are
// copied, rows themselves are treated as immutable.
func (m *MemoryStore) Snapshot(ctx context.Context) (backup.Entities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(backup.Entities, len(m.data))
	for entity, rows := range m.data {
		out[entity] = append([]backup.Row{}, rows...)
	}
	return out, nil
}

// ChangedSince filters rows by their created_at/updated_at columns.
// Rows without parseable timestamps are treated as unchanged.
func (m *MemoryStore) ChangedSince(ctx context.Context, since time.Time) (backup.Entities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(backup.Entities, len(m.data))
	for entity, rows := range m.data {
		changed := []backup.Row{}
		for _, row := range rows {
			if rowChangedAfter(row, since) {
				changed = append(changed, row)
			}
		}
		out[entity] = changed
	}
	return out, nil
}

func rowChangedAfter(row backup.Row, since time.Time) bool {
	for _, col := range []string{"updated_at", "created_at"} {
		s, ok := row[col].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			continue
		}
		if ts.After(since) {
			return true
		}
	}
	return false
}

// RestoreAll replaces the store's contents wholesale.
func (m *MemoryStore) RestoreAll(ctx context.Context, entities backup.Entities) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data := make(backup.Entities, len(backup.EntityOrder))
	for _, entity := range backup.EntityOrder {
		data[entity] = append([]backup.Row{}, entities[entity]...)
	}
	m.data = data
	return nil
}

// Counts returns the current row count per tracked entity.
func (m *MemoryStore) Counts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int, len(m.data))
	for entity, rows := range m.data {
		counts[entity] = len(rows)
	}
	return counts, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
