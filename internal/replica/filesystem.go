package replica

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mbak/internal/backup"
)

// FileSystemReplica is a filesystem-based implementation of the Replica
// interface: a second directory (typically a mounted remote volume) holding
// a mirror of the backup artifacts.
type FileSystemReplica struct {
	root string
}

var _ backup.Replica = (*FileSystemReplica)(nil)

// NewFileSystemReplica creates a replica rooted at the given path.
func NewFileSystemReplica(root string) (*FileSystemReplica, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create replica directory: %w", err)
	}
	return &FileSystemReplica{root: root}, nil
}

// Put stores an artifact under its backup filename using atomic write
// (temp file + rename) so the replica never holds a partial artifact.
func (r *FileSystemReplica) Put(ctx context.Context, name string, src io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("artifact name must not contain path separators: %s", name)
	}
	destPath := filepath.Join(r.root, name)

	tmpFile, err := os.CreateTemp(r.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, src)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename artifact into place: %w", err)
	}
	success = true
	return nil
}

// Get retrieves an artifact by filename and writes it to w.
func (r *FileSystemReplica) Get(ctx context.Context, name string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(r.root, name))
	if err != nil {
		return fmt.Errorf("artifact not found: %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	return nil
}

// Delete removes an artifact. Deleting a missing artifact is not an error.
func (r *FileSystemReplica) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(r.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// List returns the filenames of all stored artifacts.
func (r *FileSystemReplica) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list replica directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ValidateSetup verifies that the replica root is an accessible directory.
func (r *FileSystemReplica) ValidateSetup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("replica root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("replica root is not a directory: %s", r.root)
	}
	return nil
}
