package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CreateBackup produces a full backup of the data store.
//
// Pipeline: snapshot extraction under one consistent read, canonical JSON
// serialization, optional gzip, optional encryption (always last, over the
// possibly-compressed bytes), then an atomic persist: the payload is written
// to a temp file in the backup directory and renamed into place, so an
// interrupted write never leaves a discoverable partial backup. The SHA-256
// of the final bytes is recorded in a sidecar after the rename.
//
// On any failure the backup directory is left without a new artifact.
func (s *Service) CreateBackup(ctx context.Context, name string) (*Info, error) {
	if name == "" {
		name = "backup"
	}
	if err := validateBaseName(name); err != nil {
		return nil, wrapErr(ErrIO, "invalid backup name", err)
	}

	opID := s.idgen.New()
	ts := s.clock.Now().UTC()
	n := &Name{
		Base:       name,
		Timestamp:  ts,
		Compressed: s.settings.CompressionEnabled,
		Encrypted:  s.settings.EncryptionEnabled,
	}
	finalPath := filepath.Join(s.settings.BackupDir, n.String())

	unlock := s.lockPath(finalPath)
	defer unlock()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	s.logger.Debug("backup started", "op", opID, "name", name)

	entities, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, wrapErr(ErrExtraction, "extracting snapshot", err)
	}

	manifest := &Manifest{Version: ManifestVersion, Timestamp: ts, Entities: entities}
	payload, err := manifest.Encode()
	if err != nil {
		return nil, wrapErr(ErrEncoding, "serializing manifest", err)
	}

	encoded, err := s.encodePayload(payload)
	if err != nil {
		return nil, err
	}

	if err := s.persist(finalPath, encoded); err != nil {
		return nil, err
	}

	checksum := checksumBytes(encoded)
	if err := writeChecksumSidecar(finalPath, checksum); err != nil {
		// Without its checksum the artifact cannot be verified; remove it so
		// the directory holds only valid backups.
		os.Remove(finalPath)
		return nil, wrapErr(ErrIO, "recording checksum", err)
	}

	info := &Info{
		Path:       finalPath,
		CreatedAt:  ts,
		Kind:       KindFull,
		Encrypted:  n.Encrypted,
		Compressed: n.Compressed,
		SizeBytes:  int64(len(encoded)),
		Checksum:   checksum,
	}

	s.replicate(ctx, n.String(), encoded, checksum)

	s.logger.Info("backup created", "op", opID, "path", finalPath, "bytes", info.SizeBytes)
	return info, nil
}

// encodePayload applies the optional compression and encryption stages.
// Order matters: compressing ciphertext gains nothing, so encryption is last.
func (s *Service) encodePayload(payload []byte) ([]byte, error) {
	if s.settings.CompressionEnabled {
		var buf bytes.Buffer
		if err := s.compressor.Compress(bytes.NewReader(payload), &buf); err != nil {
			return nil, wrapErr(ErrEncoding, "compressing payload", err)
		}
		payload = buf.Bytes()
	}
	if s.settings.EncryptionEnabled {
		if s.encryptor == nil || !s.encryptor.IsConfigured() {
			return nil, fmt.Errorf("%w: encryption enabled but no key is configured", ErrEncoding)
		}
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(payload), &buf); err != nil {
			return nil, wrapErr(ErrEncoding, "encrypting payload", err)
		}
		payload = buf.Bytes()
	}
	return payload, nil
}

// persist writes data to destPath atomically: temp file in the same
// directory, fsync, then rename. Readers either see the complete file or no
// file at all.
func (s *Service) persist(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return wrapErr(ErrIO, "creating temp file", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return wrapErr(ErrIO, "writing backup data", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return wrapErr(ErrIO, "syncing backup data", err)
	}
	if err := tmpFile.Close(); err != nil {
		return wrapErr(ErrIO, "closing temp file", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return wrapErr(ErrIO, "renaming backup into place", err)
	}
	success = true
	return nil
}

// replicate copies an artifact and its checksum to the offsite replica.
// Best-effort: the local artifact is the source of truth, so failures are
// logged and swallowed.
func (s *Service) replicate(ctx context.Context, name string, data []byte, checksum string) {
	if s.replica == nil {
		return
	}
	if err := s.replica.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		s.logger.Warn("replica upload failed", "name", name, "error", err)
		return
	}
	sidecar := []byte(checksum + "\n")
	if err := s.replica.Put(ctx, name+checksumSuffix, bytes.NewReader(sidecar), int64(len(sidecar))); err != nil {
		s.logger.Warn("replica sidecar upload failed", "name", name, "error", err)
		return
	}
	s.logger.Debug("backup replicated", "name", name)
}
