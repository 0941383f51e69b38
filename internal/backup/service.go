package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Settings carries the subsystem configuration the Service needs. The app
// layer maps the config file onto it.
type Settings struct {
	// BackupDir is where backup artifacts and their checksum sidecars live.
	BackupDir string

	// CompressionEnabled gzips full backup payloads before any encryption.
	CompressionEnabled bool

	// EncryptionEnabled encrypts full backup payloads as the last step.
	EncryptionEnabled bool

	// RetentionDays is the age beyond which Cleanup deletes a backup.
	RetentionDays int

	// OperationTimeout bounds extraction, restore-apply, and incremental
	// queries. Zero means no timeout.
	OperationTimeout time.Duration
}

// Service is the orchestration layer for the integrated backup subsystem:
// it creates, verifies, restores, and expires backups of the marketplace
// data store. Construct one per configuration; it holds no global state.
type Service struct {
	store      Store
	compressor Compressor
	encryptor  Encryptor
	replica    Replica // optional; nil disables offsite copies
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	settings   Settings

	mu        sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// NewService creates a Service with the provided dependencies.
// replica may be nil when no offsite copy is configured.
func NewService(store Store, compressor Compressor, encryptor Encryptor, replica Replica, logger Logger, clock Clock, idgen IDGenerator, settings Settings) *Service {
	return &Service{
		store:      store,
		compressor: compressor,
		encryptor:  encryptor,
		replica:    replica,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		settings:   settings,
		pathLocks:  make(map[string]*sync.Mutex),
	}
}

// Info describes a persisted backup, derived from its filename, its size on
// disk, and its checksum sidecar.
type Info struct {
	Path       string
	CreatedAt  time.Time
	Kind       Kind
	Encrypted  bool
	Compressed bool
	SizeBytes  int64
	Checksum   string
}

// List enumerates the backups in the backup directory, oldest first.
// Temp files, sidecars, and foreign files are skipped.
func (s *Service) List() ([]*Info, error) {
	entries, err := os.ReadDir(s.settings.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapErr(ErrIO, "listing backup directory", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, err := ParseName(entry.Name())
		if err != nil {
			continue
		}
		path := filepath.Join(s.settings.BackupDir, entry.Name())
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		checksum, err := readChecksumSidecar(path)
		if err != nil {
			return nil, wrapErr(ErrIO, "reading sidecar", err)
		}
		infos = append(infos, &Info{
			Path:       path,
			CreatedAt:  name.Timestamp,
			Kind:       name.Kind(),
			Encrypted:  name.Encrypted,
			Compressed: name.Compressed,
			SizeBytes:  fi.Size(),
			Checksum:   checksum,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos, nil
}

// lockPath serializes writers targeting the same output path. Timestamped
// names make collisions rare, but concurrent calls in the same clock second
// would otherwise interleave.
func (s *Service) lockPath(path string) func() {
	s.mu.Lock()
	l, ok := s.pathLocks[path]
	if !ok {
		l = &sync.Mutex{}
		s.pathLocks[path] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// opContext applies the configured operation timeout, if any.
func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.settings.OperationTimeout)
}
