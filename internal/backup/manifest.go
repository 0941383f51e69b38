package backup

import (
	"encoding/json"
	"fmt"
	"time"
)

// ManifestVersion is the only manifest schema version this binary reads and
// writes. Decoding rejects anything else outright rather than attempting a
// best-effort parse.
const ManifestVersion = 1

// Manifest is the structured payload of a backup: schema version, creation
// timestamp, the incremental checkpoint (full backups omit it), and every
// tracked entity collection.
type Manifest struct {
	Version        int        `json:"version"`
	Timestamp      time.Time  `json:"timestamp"`
	LastBackupDate *time.Time `json:"last_backup_date,omitempty"`
	Entities       Entities   `json:"entities"`
}

// IsIncremental reports whether the manifest is a delta against a checkpoint.
func (m *Manifest) IsIncremental() bool { return m.LastBackupDate != nil }

// Encode serializes the manifest to canonical JSON: encoding/json emits map
// keys in sorted order and time.Time as RFC 3339, so identical snapshots
// produce identical bytes and therefore identical checksums.
func (m *Manifest) Encode() ([]byte, error) {
	normalized := Manifest{
		Version:   m.Version,
		Timestamp: m.Timestamp.UTC(),
		Entities:  m.Entities,
	}
	if m.LastBackupDate != nil {
		utc := m.LastBackupDate.UTC()
		normalized.LastBackupDate = &utc
	}
	data, err := json.Marshal(&normalized)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses manifest bytes. A malformed document yields
// ErrIntegrity; a well-formed document with an unsupported version yields
// ErrSchemaVersion.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %w", ErrIntegrity, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: manifest version %d, supported version %d", ErrSchemaVersion, m.Version, ManifestVersion)
	}
	if m.Entities == nil {
		return nil, fmt.Errorf("%w: manifest has no entities", ErrIntegrity)
	}
	return &m, nil
}
