package backup

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Verify checks a backup's integrity without mutating the file or the store.
// A nil return means the backup is valid.
//
// The checksum of the on-disk bytes is recomputed and compared against the
// sidecar. This works without the encryption key, so tampering and
// corruption are detectable on any backup. Unencrypted backups (and
// encrypted ones when decryptCtx is supplied) are additionally decoded end
// to end to confirm the manifest parses and its version is supported.
func (s *Service) Verify(path string, decryptCtx DecryptionContext) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return wrapErr(ErrIO, "stating backup", err)
	}

	stored, err := readChecksumSidecar(path)
	if err != nil {
		return wrapErr(ErrIO, "reading stored checksum", err)
	}
	if stored == "" {
		return fmt.Errorf("%w: no checksum recorded for %s", ErrIntegrity, path)
	}

	actual, err := checksumFile(path)
	if err != nil {
		return wrapErr(ErrIO, "recomputing checksum", err)
	}
	if actual != stored {
		return fmt.Errorf("%w: checksum mismatch for %s: stored %s, actual %s", ErrIntegrity, path, stored, actual)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return wrapErr(ErrIO, "reading backup", err)
	}

	rest := path
	if strings.HasSuffix(rest, ".enc") {
		if decryptCtx == nil {
			// Checksum passed; without the key that is as deep as we can go.
			return nil
		}
		var buf bytes.Buffer
		if err := decryptCtx.Decrypt(bytes.NewReader(data), &buf); err != nil {
			return wrapErr(ErrIntegrity, "decrypting backup", err)
		}
		data = buf.Bytes()
		rest = strings.TrimSuffix(rest, ".enc")
	}

	if strings.HasSuffix(rest, ".gz") {
		var buf bytes.Buffer
		if err := s.compressor.Decompress(bytes.NewReader(data), &buf); err != nil {
			return wrapErr(ErrIntegrity, "decompressing backup", err)
		}
		data = buf.Bytes()
	}

	if _, err := DecodeManifest(data); err != nil {
		return err
	}
	return nil
}
