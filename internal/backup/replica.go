package backup

import (
	"context"
	"io"
)

// Replica provides an interface for offsite copies of backup artifacts.
// The local backup directory remains the source of truth: replica failures
// are reported but never fail the backup that produced the artifact.
type Replica interface {
	// Put stores an artifact under its backup filename.
	// size is the number of bytes that will be read from r.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Get retrieves an artifact by filename and writes it to w.
	Get(ctx context.Context, name string, w io.Writer) error

	// Delete removes an artifact. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the filenames of all stored artifacts.
	List(ctx context.Context) ([]string, error)

	// ValidateSetup verifies that the replica backend is accessible.
	ValidateSetup(ctx context.Context) error
}
