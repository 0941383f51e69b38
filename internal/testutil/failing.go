package testutil

import (
	"context"
	"errors"
	"time"

	"mbak/internal/backup"
)

// FailingStore implements backup.Store with every operation failing, to
// stand in for an unreachable data store.
type FailingStore struct {
	// Err is returned by every operation. Defaults to a generic error.
	Err error
}

var _ backup.Store = (*FailingStore)(nil)

func NewFailingStore() *FailingStore {
	return &FailingStore{Err: errors.New("store unreachable")}
}

func (s *FailingStore) Snapshot(context.Context) (backup.Entities, error) { return nil, s.Err }
func (s *FailingStore) ChangedSince(context.Context, time.Time) (backup.Entities, error) {
	return nil, s.Err
}
func (s *FailingStore) RestoreAll(context.Context, backup.Entities) error { return s.Err }
func (s *FailingStore) Counts(context.Context) (map[string]int, error)    { return nil, s.Err }
func (s *FailingStore) Close() error                                      { return nil }
