package backup_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mbak/internal/backup"
	"mbak/internal/store"
)

func TestService_Verify(t *testing.T) {
	newBackup := func(t *testing.T, encrypted bool) (*backup.Service, *backup.Info) {
		t.Helper()
		svc := newTestService(t, store.NewMemoryStore(), backup.Settings{
			BackupDir:          t.TempDir(),
			CompressionEnabled: true,
			EncryptionEnabled:  encrypted,
			RetentionDays:      7,
		})
		info, err := svc.CreateBackup(context.Background(), "verifyme")
		if err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}
		return svc, info
	}

	t.Run("valid backup", func(t *testing.T) {
		svc, info := newBackup(t, false)
		if err := svc.Verify(info.Path, nil); err != nil {
			t.Errorf("Verify() error = %v, want nil", err)
		}
	})

	t.Run("verify is idempotent", func(t *testing.T) {
		svc, info := newBackup(t, true)
		dc := decryptCtx(t)
		for i := 0; i < 2; i++ {
			if err := svc.Verify(info.Path, dc); err != nil {
				t.Errorf("Verify() run %d error = %v, want nil", i+1, err)
			}
		}
	})

	t.Run("encrypted without key stops at checksum", func(t *testing.T) {
		svc, info := newBackup(t, true)
		if err := svc.Verify(info.Path, nil); err != nil {
			t.Errorf("Verify() error = %v, want nil", err)
		}
	})

	t.Run("nonexistent path", func(t *testing.T) {
		svc, info := newBackup(t, false)
		err := svc.Verify(filepath.Join(filepath.Dir(info.Path), "gone-20260301T120000Z.json"), nil)
		if !errors.Is(err, backup.ErrNotFound) {
			t.Errorf("Verify() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("flipped byte detected", func(t *testing.T) {
		svc, info := newBackup(t, false)

		data, err := os.ReadFile(info.Path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		data[len(data)/2] ^= 0x01
		if err := os.WriteFile(info.Path, data, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		if err := svc.Verify(info.Path, nil); !errors.Is(err, backup.ErrIntegrity) {
			t.Errorf("Verify() error = %v, want ErrIntegrity", err)
		}
	})

	t.Run("tampered encrypted backup detected without key", func(t *testing.T) {
		svc, info := newBackup(t, true)

		data, err := os.ReadFile(info.Path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		data[0] ^= 0xff
		if err := os.WriteFile(info.Path, data, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		if err := svc.Verify(info.Path, nil); !errors.Is(err, backup.ErrIntegrity) {
			t.Errorf("Verify() error = %v, want ErrIntegrity", err)
		}
	})

	t.Run("missing checksum sidecar", func(t *testing.T) {
		svc, info := newBackup(t, false)
		if err := os.Remove(info.Path + ".sha256"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := svc.Verify(info.Path, nil); !errors.Is(err, backup.ErrIntegrity) {
			t.Errorf("Verify() error = %v, want ErrIntegrity", err)
		}
	})
}
