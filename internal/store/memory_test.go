package store_test

import (
	"context"
	"testing"
	"time"

	"mbak/internal/backup"
	"mbak/internal/store"
)

func TestMemoryStore_SnapshotHasAllEntities(t *testing.T) {
	m := store.NewMemoryStore()
	snapshot, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	for _, entity := range backup.EntityOrder {
		rows, ok := snapshot[entity]
		if !ok {
			t.Errorf("snapshot missing entity %q", entity)
			continue
		}
		if rows == nil {
			t.Errorf("entity %q is nil, want empty slice", entity)
		}
	}
}

func TestMemoryStore_SnapshotIsIsolated(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed("users", []backup.Row{{"id": "u1", "name": "Ada"}})

	snapshot, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	snapshot["users"] = append(snapshot["users"], backup.Row{"id": "u2"})

	again, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got := len(again["users"]); got != 1 {
		t.Errorf("users = %d after mutating a previous snapshot, want 1", got)
	}
}

func TestMemoryStore_RestoreAllReplaces(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed("users", []backup.Row{{"id": "u1"}, {"id": "u2"}})

	err := m.RestoreAll(context.Background(), backup.Entities{
		"users": {{"id": "only"}},
	})
	if err != nil {
		t.Fatalf("RestoreAll() error = %v", err)
	}

	counts, err := m.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts["users"] != 1 {
		t.Errorf("users = %d, want 1", counts["users"])
	}
	if counts["bookings"] != 0 {
		t.Errorf("bookings = %d, want 0", counts["bookings"])
	}
}

func TestMemoryStore_ChangedSince(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := base.Format(time.RFC3339)
	later := base.Add(time.Hour).Format(time.RFC3339)

	m := store.NewMemoryStore()
	m.Seed("users", []backup.Row{
		{"id": "stale", "created_at": ts, "updated_at": ts},
		{"id": "touched", "created_at": ts, "updated_at": later},
	})

	entities, err := m.ChangedSince(context.Background(), base)
	if err != nil {
		t.Fatalf("ChangedSince() error = %v", err)
	}
	users := entities["users"]
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if users[0]["id"] != "touched" {
		t.Errorf("changed row id = %v, want %q", users[0]["id"], "touched")
	}
}
