package backup_test

import (
	"testing"
	"time"

	"mbak/internal/backup"
)

func TestName_String(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		compressed bool
		encrypted  bool
		want       string
	}{
		{name: "plain", want: "daily-20260310T093000Z.json"},
		{name: "compressed", compressed: true, want: "daily-20260310T093000Z.json.gz"},
		{name: "encrypted", encrypted: true, want: "daily-20260310T093000Z.json.enc"},
		{name: "both", compressed: true, encrypted: true, want: "daily-20260310T093000Z.json.gz.enc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &backup.Name{Base: "daily", Timestamp: ts, Compressed: tt.compressed, Encrypted: tt.encrypted}
			if got := n.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseName_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	for _, filename := range []string{
		"daily-20260310T093000Z.json",
		"daily-20260310T093000Z.json.gz",
		"daily-20260310T093000Z.json.enc",
		"daily-20260310T093000Z.json.gz.enc",
		"pre-deploy-20260310T093000Z.json",
		"incremental-20260310T093000Z.json",
	} {
		t.Run(filename, func(t *testing.T) {
			n, err := backup.ParseName(filename)
			if err != nil {
				t.Fatalf("ParseName(%q) error = %v", filename, err)
			}
			if got := n.String(); got != filename {
				t.Errorf("round trip = %q, want %q", got, filename)
			}
			if !n.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", n.Timestamp, ts)
			}
		})
	}
}

func TestParseName_Kind(t *testing.T) {
	n, err := backup.ParseName("incremental-20260310T093000Z.json")
	if err != nil {
		t.Fatalf("ParseName() error = %v", err)
	}
	if n.Kind() != backup.KindIncremental {
		t.Errorf("Kind() = %q, want %q", n.Kind(), backup.KindIncremental)
	}

	n, err = backup.ParseName("daily-20260310T093000Z.json.gz.enc")
	if err != nil {
		t.Fatalf("ParseName() error = %v", err)
	}
	if n.Kind() != backup.KindFull {
		t.Errorf("Kind() = %q, want %q", n.Kind(), backup.KindFull)
	}
}

func TestParseName_Rejects(t *testing.T) {
	for _, filename := range []string{
		"",
		"notabackup.txt",
		"daily-20260310T093000Z.json.sha256",
		".tmp-12345",
		"daily.json",
		"daily-notatimestamp.json",
		"incremental-20260310T093000Z.json.gz",
		"incremental-20260310T093000Z.json.enc",
	} {
		t.Run(filename, func(t *testing.T) {
			if _, err := backup.ParseName(filename); err == nil {
				t.Errorf("ParseName(%q) succeeded, want error", filename)
			}
		})
	}
}

func TestParseName_BaseWithHyphens(t *testing.T) {
	n, err := backup.ParseName("pre-deploy-v2-20260310T093000Z.json")
	if err != nil {
		t.Fatalf("ParseName() error = %v", err)
	}
	if n.Base != "pre-deploy-v2" {
		t.Errorf("Base = %q, want %q", n.Base, "pre-deploy-v2")
	}
}
