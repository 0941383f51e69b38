package backup_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mbak/internal/backup"
	"mbak/internal/codec"
	"mbak/internal/store"
	"mbak/internal/testutil"
)

// newTestService builds a Service over the given store with the test
// encryptor and a gzip compressor.
func newTestService(t *testing.T, st backup.Store, settings backup.Settings) *backup.Service {
	t.Helper()
	return backup.NewService(
		st,
		codec.NewGzipCompressor(),
		codec.NewTestEncryptor(),
		nil,
		backup.NewNopLogger(),
		testutil.FixedClock(),
		testutil.NewStubIDGenerator(),
		settings,
	)
}

// canonicalEntities renders entities as canonical JSON for comparison, so
// int-vs-float64 differences introduced by a JSON round trip do not matter.
func canonicalEntities(t *testing.T, e backup.Entities) string {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshaling entities: %v", err)
	}
	return string(data)
}

func decryptCtx(t *testing.T) backup.DecryptionContext {
	t.Helper()
	ctx, err := codec.NewTestEncryptor().Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	return ctx
}

func TestService_CreateBackup_NamingContract(t *testing.T) {
	tests := []struct {
		name       string
		compressed bool
		encrypted  bool
		wantSuffix string
	}{
		{name: "plain", wantSuffix: ".json"},
		{name: "compressed", compressed: true, wantSuffix: ".json.gz"},
		{name: "encrypted", encrypted: true, wantSuffix: ".json.enc"},
		{name: "both", compressed: true, encrypted: true, wantSuffix: ".json.gz.enc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			svc := newTestService(t, st, backup.Settings{
				BackupDir:          t.TempDir(),
				CompressionEnabled: tt.compressed,
				EncryptionEnabled:  tt.encrypted,
				RetentionDays:      7,
			})

			info, err := svc.CreateBackup(context.Background(), "daily")
			if err != nil {
				t.Fatalf("CreateBackup() error = %v", err)
			}
			if !strings.HasSuffix(info.Path, tt.wantSuffix) {
				t.Errorf("path = %q, want suffix %q", info.Path, tt.wantSuffix)
			}
			if info.Compressed != tt.compressed || info.Encrypted != tt.encrypted {
				t.Errorf("info flags = (gz=%t, enc=%t), want (gz=%t, enc=%t)",
					info.Compressed, info.Encrypted, tt.compressed, tt.encrypted)
			}
			if _, err := os.Stat(info.Path); err != nil {
				t.Errorf("backup file missing: %v", err)
			}
			if info.Checksum == "" {
				t.Error("info.Checksum is empty")
			}
		})
	}
}

func TestService_RoundTrip_AllCodecCombinations(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, tt := range []struct {
		name       string
		compressed bool
		encrypted  bool
	}{
		{name: "plain"},
		{name: "compressed", compressed: true},
		{name: "encrypted", encrypted: true},
		{name: "compressed and encrypted", compressed: true, encrypted: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			src := store.NewMemoryStore()
			fixture := testutil.MarketplaceFixture(base)
			if err := src.RestoreAll(context.Background(), fixture); err != nil {
				t.Fatalf("seeding store: %v", err)
			}
			want, err := src.Snapshot(context.Background())
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}

			settings := backup.Settings{
				BackupDir:          t.TempDir(),
				CompressionEnabled: tt.compressed,
				EncryptionEnabled:  tt.encrypted,
				RetentionDays:      7,
			}
			svc := newTestService(t, src, settings)

			info, err := svc.CreateBackup(context.Background(), "roundtrip")
			if err != nil {
				t.Fatalf("CreateBackup() error = %v", err)
			}

			// Restore into a fresh store via a fresh service.
			dst := store.NewMemoryStore()
			restoreSvc := newTestService(t, dst, settings)

			var dc backup.DecryptionContext
			if tt.encrypted {
				dc = decryptCtx(t)
			}
			if err := restoreSvc.Restore(context.Background(), info.Path, dc); err != nil {
				t.Fatalf("Restore() error = %v", err)
			}

			got, err := dst.Snapshot(context.Background())
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			if canonicalEntities(t, got) != canonicalEntities(t, want) {
				t.Error("restored entities differ from original snapshot")
			}
		})
	}
}

func TestService_ScenarioEncryptedCompressedRestore(t *testing.T) {
	// 3 users, 2 services, 1 booking; encrypted+compressed backup; clear;
	// restore; counts must match exactly.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := testutil.NewTestStore(t)
	testutil.SeedMarketplace(t, st, base)

	svc := newTestService(t, st, backup.Settings{
		BackupDir:          t.TempDir(),
		CompressionEnabled: true,
		EncryptionEnabled:  true,
		RetentionDays:      7,
	})

	info, err := svc.CreateBackup(context.Background(), "scenario")
	if err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if !strings.HasSuffix(info.Path, ".json.gz.enc") {
		t.Fatalf("path = %q, want .json.gz.enc suffix", info.Path)
	}

	// Clear all tables.
	if err := st.RestoreAll(context.Background(), backup.Entities{}); err != nil {
		t.Fatalf("clearing store: %v", err)
	}
	counts, err := st.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts["users"] != 0 {
		t.Fatalf("users = %d after clear, want 0", counts["users"])
	}

	if err := svc.Restore(context.Background(), info.Path, decryptCtx(t)); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	counts, err = st.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	want := map[string]int{"users": 3, "services": 2, "bookings": 1}
	for entity, n := range want {
		if counts[entity] != n {
			t.Errorf("%s = %d after restore, want %d", entity, counts[entity], n)
		}
	}
}

func TestService_CreateBackup_FailureIsolation(t *testing.T) {
	t.Run("unreachable store leaves no file", func(t *testing.T) {
		dir := t.TempDir()
		svc := newTestService(t, testutil.NewFailingStore(), backup.Settings{
			BackupDir:     dir,
			RetentionDays: 7,
		})

		_, err := svc.CreateBackup(context.Background(), "doomed")
		if !errors.Is(err, backup.ErrExtraction) {
			t.Fatalf("CreateBackup() error = %v, want ErrExtraction", err)
		}

		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			t.Fatalf("ReadDir() error = %v", readErr)
		}
		if len(entries) != 0 {
			t.Errorf("backup dir has %d entries after failed backup, want 0", len(entries))
		}
	})

	t.Run("invalid backup dir", func(t *testing.T) {
		svc := newTestService(t, store.NewMemoryStore(), backup.Settings{
			BackupDir:     filepath.Join(t.TempDir(), "does", "not", "exist"),
			RetentionDays: 7,
		})

		_, err := svc.CreateBackup(context.Background(), "doomed")
		if !errors.Is(err, backup.ErrIO) {
			t.Fatalf("CreateBackup() error = %v, want ErrIO", err)
		}
	})

	t.Run("reserved name rejected", func(t *testing.T) {
		svc := newTestService(t, store.NewMemoryStore(), backup.Settings{
			BackupDir:     t.TempDir(),
			RetentionDays: 7,
		})
		if _, err := svc.CreateBackup(context.Background(), "incremental"); err == nil {
			t.Error("CreateBackup(\"incremental\") succeeded, want error")
		}
	})
}

func TestService_List(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMemoryStore()
	clock := testutil.FixedClock()
	svc := backup.NewService(st, codec.NewGzipCompressor(), codec.NewTestEncryptor(), nil,
		backup.NewNopLogger(), clock, testutil.NewStubIDGenerator(),
		backup.Settings{BackupDir: dir, RetentionDays: 7})

	if _, err := svc.CreateBackup(context.Background(), "first"); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	clock.Advance(time.Hour)
	if _, err := svc.CreateBackup(context.Background(), "second"); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	infos, err := svc.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d backups, want 2", len(infos))
	}
	if !infos[0].CreatedAt.Before(infos[1].CreatedAt) {
		t.Error("List() not sorted oldest first")
	}
	for _, info := range infos {
		if info.Checksum == "" {
			t.Errorf("backup %s has no checksum", info.Path)
		}
	}
}
