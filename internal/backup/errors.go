package backup

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure a backup operation can report.
// They are matched with errors.Is; operations wrap them with context via
// fmt.Errorf so the chain keeps both the class and the cause.
var (
	// ErrExtraction indicates the data store was unreachable or a snapshot
	// query failed.
	ErrExtraction = errors.New("extraction failed")

	// ErrEncoding indicates a compression or encryption step failed, in
	// either direction (a bad key on decrypt classifies here).
	ErrEncoding = errors.New("encoding failed")

	// ErrIO indicates a filesystem failure: bad path, permissions, disk full.
	ErrIO = errors.New("filesystem error")

	// ErrIntegrity indicates a checksum mismatch or a malformed manifest.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrSchemaVersion indicates the manifest declares a version this binary
	// does not support.
	ErrSchemaVersion = errors.New("unsupported manifest version")

	// ErrNotFound indicates the restore or verify target does not exist.
	ErrNotFound = errors.New("backup not found")

	// ErrRestoreTransaction indicates the restore transaction was rolled
	// back, typically on a referential constraint violation.
	ErrRestoreTransaction = errors.New("restore transaction failed")
)

// wrapErr attaches a classifying sentinel and context to a cause.
// Both the sentinel and the cause stay matchable via errors.Is.
func wrapErr(kind error, msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, err)
}

