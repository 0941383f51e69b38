package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mbak/internal/backup"
	"mbak/internal/codec"
	"mbak/internal/config"
	"mbak/internal/replica"
	"mbak/internal/store"
)

// App is the application layer between the CLI and the backup Service.
// It constructs all dependencies from config, exposes the public backup
// operations, and manages the store lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     backup.Store
	encryptor backup.Encryptor
	service   *backup.Service
	scheduler *backup.Scheduler
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "CreateBackup").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if cfg.BackupDir == "" {
		return nil, fmt.Errorf("backup_dir is not configured")
	}
	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	st, err := store.NewStoreFromURL(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// The store schema must be current before any operation other than the
	// migration itself reads or writes it.
	if operation != "MigrateStore" {
		if checker, ok := st.(interface{ CheckMigrations() error }); ok {
			if err := checker.CheckMigrations(); err != nil {
				st.Close()
				return nil, fmt.Errorf("store schema out of date: %w", err)
			}
		}
	}

	enc, err := codec.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	rep, err := replica.NewReplicaFromConfig(context.Background(), cfg.Replica)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating replica: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	retention := cfg.RetentionDays
	if retention <= 0 {
		retention = 7
	}

	settings := backup.Settings{
		BackupDir:          cfg.BackupDir,
		CompressionEnabled: cfg.CompressionEnabled,
		EncryptionEnabled:  cfg.EncryptionEnabled,
		RetentionDays:      retention,
		OperationTimeout:   time.Duration(cfg.OperationTimeoutSeconds) * time.Second,
	}

	adapter := &slogAdapter{l: logger}
	svc := backup.NewService(st, codec.NewGzipCompressor(), enc, rep, adapter, backup.RealClock{}, backup.UUIDGenerator{}, settings)

	interval := time.Duration(cfg.ScheduleIntervalHours) * time.Hour
	scheduler := backup.NewScheduler(svc, interval, adapter)

	return &App{
		cfg:       cfg,
		store:     st,
		encryptor: enc,
		service:   svc,
		scheduler: scheduler,
		logFile:   logFile,
	}, nil
}

// CreateIntegratedBackup produces a full backup of the data store under the
// given name, applying the configured compression and encryption.
func (a *App) CreateIntegratedBackup(name string) (*backup.Info, error) {
	return a.service.CreateBackup(context.Background(), name)
}

// RestoreIntegratedBackup applies the backup at path to the data store.
// passphrase is required for encrypted (.enc) backups.
func (a *App) RestoreIntegratedBackup(path, passphrase string) error {
	decryptCtx, err := a.unlockFor(path, passphrase)
	if err != nil {
		return err
	}
	return a.service.Restore(context.Background(), path, decryptCtx)
}

// CreateIncrementalBackup writes a delta of entities changed since the
// given checkpoint.
func (a *App) CreateIncrementalBackup(since time.Time) (*backup.Info, error) {
	return a.service.CreateIncremental(context.Background(), since)
}

// VerifyBackup checks a backup's integrity. The returned error explains why
// a backup is invalid; valid backups return (true, nil). passphrase may be
// empty, in which case encrypted backups get a checksum-only verification.
func (a *App) VerifyBackup(path, passphrase string) (bool, error) {
	var decryptCtx backup.DecryptionContext
	if passphrase != "" && strings.HasSuffix(path, ".enc") {
		ctx, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return false, fmt.Errorf("unlocking key: %w", err)
		}
		decryptCtx = ctx
	}

	if err := a.service.Verify(path, decryptCtx); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupExpiredBackups deletes backups older than the retention window and
// returns the number removed.
func (a *App) CleanupExpiredBackups() (int, error) {
	return a.service.Cleanup(context.Background())
}

// StartScheduledBackups launches the recurring backup/cleanup timer.
// It never fails; per-run errors are logged.
func (a *App) StartScheduledBackups() {
	a.scheduler.Start()
}

// StopScheduledBackups cancels the timer and waits for an in-flight run.
func (a *App) StopScheduledBackups() {
	a.scheduler.Stop()
}

// RunScheduledCycle performs one backup+cleanup cycle immediately.
func (a *App) RunScheduledCycle() {
	a.scheduler.RunOnce(context.Background())
}

// ListBackups enumerates the backups in the backup directory, oldest first.
func (a *App) ListBackups() ([]*backup.Info, error) {
	return a.service.List()
}

// SetupKeys performs one-time encryption key generation.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor.IsConfigured() {
		return errors.New("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// MigrateStore applies pending schema migrations to the data store.
func (a *App) MigrateStore() error {
	migrator, ok := a.store.(interface{ MigrateUp() error })
	if !ok {
		return nil
	}
	return migrator.MigrateUp()
}

// unlockFor unlocks the private key when the target is encrypted.
func (a *App) unlockFor(path, passphrase string) (backup.DecryptionContext, error) {
	if !strings.HasSuffix(path, ".enc") {
		return nil, nil
	}
	if passphrase == "" {
		return nil, errors.New("backup is encrypted: a passphrase is required")
	}
	decryptCtx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking key: %w", err)
	}
	return decryptCtx, nil
}

// Close stops the scheduler if running and releases all resources.
func (a *App) Close() error {
	a.scheduler.Stop()

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
