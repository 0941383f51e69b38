package backup

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cleanup deletes backups whose age exceeds the retention window and returns
// the number removed. A backup's age comes from the timestamp embedded in
// its filename. In-progress writes use ".tmp-" names that the scan skips, so
// a backup mid-write can never be deleted. Sidecars are removed with their
// backup, and the replica copy (if any) is deleted best-effort.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.settings.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, wrapErr(ErrIO, "listing backup directory", err)
	}

	cutoff := s.clock.Now().Add(-time.Duration(s.settings.RetentionDays) * 24 * time.Hour)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, err := ParseName(entry.Name())
		if err != nil {
			// Temp files, sidecars, foreign files: not ours to delete.
			continue
		}
		if !n.Timestamp.Before(cutoff) {
			continue
		}

		path := filepath.Join(s.settings.BackupDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, wrapErr(ErrIO, "deleting expired backup", err)
		}
		if err := os.Remove(sidecarPath(path)); err != nil && !os.IsNotExist(err) {
			return removed, wrapErr(ErrIO, "deleting checksum sidecar", err)
		}
		if s.replica != nil {
			if err := s.replica.Delete(ctx, entry.Name()); err != nil {
				s.logger.Warn("replica delete failed", "name", entry.Name(), "error", err)
			} else if err := s.replica.Delete(ctx, entry.Name()+checksumSuffix); err != nil {
				s.logger.Warn("replica sidecar delete failed", "name", entry.Name(), "error", err)
			}
		}

		removed++
		s.logger.Info("expired backup removed", "path", path, "age_cutoff", cutoff.UTC().Format(time.RFC3339))
	}

	return removed, nil
}
