package backup_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"mbak/internal/backup"
)

func TestManifest_EncodeDecode(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	m := &backup.Manifest{
		Version:   backup.ManifestVersion,
		Timestamp: ts,
		Entities: backup.Entities{
			"users":    {{"id": "u1", "name": "Ada Fox"}},
			"bookings": {},
		},
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := backup.DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.IsIncremental() {
		t.Error("IsIncremental() = true for a full manifest")
	}
	if len(got.Entities["users"]) != 1 {
		t.Errorf("len(users) = %d, want 1", len(got.Entities["users"]))
	}
	if rows, ok := got.Entities["bookings"]; !ok || len(rows) != 0 {
		t.Errorf("bookings = %v, want present and empty", rows)
	}
}

func TestManifest_EncodeIsCanonical(t *testing.T) {
	entities := backup.Entities{
		"users": {{"id": "u1", "name": "Ada Fox", "email": "ada@example.com"}},
	}
	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	a, err := (&backup.Manifest{Version: 1, Timestamp: ts, Entities: entities}).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b, err := (&backup.Manifest{Version: 1, Timestamp: ts, Entities: entities}).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical manifests encoded to different bytes")
	}
}

func TestDecodeManifest_UnsupportedVersion(t *testing.T) {
	data := []byte(`{"version":99,"timestamp":"2026-03-10T09:30:00Z","entities":{}}`)
	_, err := backup.DecodeManifest(data)
	if !errors.Is(err, backup.ErrSchemaVersion) {
		t.Errorf("DecodeManifest() error = %v, want ErrSchemaVersion", err)
	}
}

func TestDecodeManifest_Malformed(t *testing.T) {
	for name, data := range map[string][]byte{
		"truncated":   []byte(`{"version":1,"timestamp"`),
		"not json":    []byte("hello"),
		"no entities": []byte(`{"version":1,"timestamp":"2026-03-10T09:30:00Z"}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := backup.DecodeManifest(data)
			if !errors.Is(err, backup.ErrIntegrity) {
				t.Errorf("DecodeManifest() error = %v, want ErrIntegrity", err)
			}
		})
	}
}

func TestManifest_IncrementalCheckpoint(t *testing.T) {
	since := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	m := &backup.Manifest{
		Version:        backup.ManifestVersion,
		Timestamp:      time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		LastBackupDate: &since,
		Entities:       backup.Entities{"users": {}},
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := backup.DecodeManifest(data)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if !got.IsIncremental() {
		t.Fatal("IsIncremental() = false, want true")
	}
	if !got.LastBackupDate.Equal(since) {
		t.Errorf("LastBackupDate = %v, want %v", got.LastBackupDate, since)
	}
}
