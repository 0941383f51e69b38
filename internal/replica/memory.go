package replica

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"mbak/internal/backup"
)

// MemoryReplica is an in-memory implementation of the Replica interface,
// useful for testing. Safe for concurrent use.
type MemoryReplica struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

var _ backup.Replica = (*MemoryReplica)(nil)

// NewMemoryReplica creates a new in-memory replica.
func NewMemoryReplica() *MemoryReplica {
	return &MemoryReplica{artifacts: make(map[string][]byte)}
}

// Put stores an artifact under its backup filename.
func (m *MemoryReplica) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[name] = data
	return nil
}

// Get retrieves an artifact by filename.
func (m *MemoryReplica) Get(ctx context.Context, name string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.artifacts[name]
	if !ok {
		return fmt.Errorf("artifact not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Delete removes an artifact. Deleting a missing artifact is not an error.
func (m *MemoryReplica) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, name)
	return nil
}

// List returns the filenames of all stored artifacts, sorted.
func (m *MemoryReplica) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.artifacts))
	for name := range m.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for the in-memory replica.
func (m *MemoryReplica) ValidateSetup(ctx context.Context) error {
	return ctx.Err()
}
