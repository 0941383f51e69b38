package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mbak/internal/backup"
	"mbak/internal/codec"
	"mbak/internal/replica"
	"mbak/internal/store"
	"mbak/internal/testutil"
)

func TestService_Cleanup(t *testing.T) {
	t.Run("removes only expired backups", func(t *testing.T) {
		dir := t.TempDir()
		clock := testutil.FixedClock()
		svc := backup.NewService(store.NewMemoryStore(), codec.NewGzipCompressor(),
			codec.NewTestEncryptor(), nil, backup.NewNopLogger(), clock,
			testutil.NewStubIDGenerator(), backup.Settings{BackupDir: dir, RetentionDays: 1})

		old, err := svc.CreateBackup(context.Background(), "old")
		if err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}
		clock.Advance(48 * time.Hour)
		fresh, err := svc.CreateBackup(context.Background(), "fresh")
		if err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}

		removed, err := svc.Cleanup(context.Background())
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if removed != 1 {
			t.Errorf("Cleanup() removed = %d, want 1", removed)
		}
		if _, err := os.Stat(old.Path); !os.IsNotExist(err) {
			t.Errorf("expired backup still present: %s", old.Path)
		}
		if _, err := os.Stat(old.Path + ".sha256"); !os.IsNotExist(err) {
			t.Errorf("expired sidecar still present")
		}
		if _, err := os.Stat(fresh.Path); err != nil {
			t.Errorf("fresh backup missing: %v", err)
		}
		if _, err := os.Stat(fresh.Path + ".sha256"); err != nil {
			t.Errorf("fresh sidecar missing: %v", err)
		}
	})

	t.Run("skips temp and foreign files", func(t *testing.T) {
		dir := t.TempDir()
		clock := testutil.FixedClock()
		clock.Advance(30 * 24 * time.Hour)
		svc := backup.NewService(store.NewMemoryStore(), codec.NewGzipCompressor(),
			codec.NewTestEncryptor(), nil, backup.NewNopLogger(), clock,
			testutil.NewStubIDGenerator(), backup.Settings{BackupDir: dir, RetentionDays: 1})

		keep := []string{".tmp-12345", "notes.txt"}
		for _, name := range keep {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
				t.Fatalf("WriteFile(%s) error = %v", name, err)
			}
		}

		removed, err := svc.Cleanup(context.Background())
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if removed != 0 {
			t.Errorf("Cleanup() removed = %d, want 0", removed)
		}
		for _, name := range keep {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("%s was deleted: %v", name, err)
			}
		}
	})

	t.Run("missing backup dir is empty", func(t *testing.T) {
		svc := newTestService(t, store.NewMemoryStore(), backup.Settings{
			BackupDir:     filepath.Join(t.TempDir(), "never-created"),
			RetentionDays: 1,
		})
		removed, err := svc.Cleanup(context.Background())
		if err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if removed != 0 {
			t.Errorf("Cleanup() removed = %d, want 0", removed)
		}
	})

	t.Run("deletes replica copies", func(t *testing.T) {
		dir := t.TempDir()
		clock := testutil.FixedClock()
		rep := replica.NewMemoryReplica()
		svc := backup.NewService(store.NewMemoryStore(), codec.NewGzipCompressor(),
			codec.NewTestEncryptor(), rep, backup.NewNopLogger(), clock,
			testutil.NewStubIDGenerator(), backup.Settings{BackupDir: dir, RetentionDays: 1})

		if _, err := svc.CreateBackup(context.Background(), "mirrored"); err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}
		names, err := rep.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(names) != 2 {
			t.Fatalf("replica holds %d objects after backup, want 2 (artifact and sidecar)", len(names))
		}

		clock.Advance(48 * time.Hour)
		if _, err := svc.Cleanup(context.Background()); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		names, err = rep.List(context.Background())
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(names) != 0 {
			t.Errorf("replica holds %d objects after cleanup, want 0: %v", len(names), names)
		}
	})
}
