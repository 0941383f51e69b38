package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// checksumSuffix names the sidecar holding a backup's SHA-256. The checksum
// covers the final on-disk bytes (post-compression/encryption) so integrity
// checks never need the encryption key.
const checksumSuffix = ".sha256"

func sidecarPath(backupPath string) string {
	return backupPath + checksumSuffix
}

// checksumBytes returns the SHA-256 of data as lowercase hex.
func checksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// checksumFile computes the SHA-256 of a file's contents.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeChecksumSidecar records a backup's checksum next to it.
func writeChecksumSidecar(backupPath, checksum string) error {
	if err := os.WriteFile(sidecarPath(backupPath), []byte(checksum+"\n"), 0644); err != nil {
		return fmt.Errorf("writing checksum sidecar: %w", err)
	}
	return nil
}

// readChecksumSidecar returns the stored checksum for a backup, or "" if no
// sidecar exists.
func readChecksumSidecar(backupPath string) (string, error) {
	data, err := os.ReadFile(sidecarPath(backupPath))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading checksum sidecar: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
