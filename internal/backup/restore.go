package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// Restore applies a backup to the data store.
//
// The reverse pipeline is driven by the filename suffixes: decrypt if .enc,
// decompress if .gz, then parse the manifest and apply every entity
// collection inside one store transaction. Restore is all-or-nothing: any
// failure leaves the store exactly as it was.
//
// decryptCtx is required for encrypted backups; pass nil otherwise.
func (s *Service) Restore(ctx context.Context, path string, decryptCtx DecryptionContext) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return wrapErr(ErrIO, "reading backup", err)
	}

	s.logger.Info("restore started", "path", path)

	rest := path
	if strings.HasSuffix(rest, ".enc") {
		if decryptCtx == nil {
			return fmt.Errorf("%w: backup is encrypted but no passphrase was provided", ErrEncoding)
		}
		var buf bytes.Buffer
		if err := decryptCtx.Decrypt(bytes.NewReader(data), &buf); err != nil {
			return wrapErr(ErrEncoding, "decrypting backup", err)
		}
		data = buf.Bytes()
		rest = strings.TrimSuffix(rest, ".enc")
	}

	if strings.HasSuffix(rest, ".gz") {
		var buf bytes.Buffer
		if err := s.compressor.Decompress(bytes.NewReader(data), &buf); err != nil {
			return wrapErr(ErrEncoding, "decompressing backup", err)
		}
		data = buf.Bytes()
	}

	manifest, err := DecodeManifest(data)
	if err != nil {
		return err
	}

	// Incremental chains are not restorable: a delta alone is not a
	// consistent state of the store.
	if manifest.IsIncremental() {
		return fmt.Errorf("%w: incremental backups are informational and cannot be restored directly", ErrRestoreTransaction)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.store.RestoreAll(ctx, manifest.Entities); err != nil {
		return wrapErr(ErrRestoreTransaction, "applying entities", err)
	}

	s.logger.Info("restore complete", "path", path, "entities", len(manifest.Entities))
	return nil
}
