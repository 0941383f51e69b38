package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"mbak/internal/backup"
	"mbak/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the backup.Store interface against the
// marketplace's SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ backup.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the marketplace database at the given path.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; without this the pool
	// would silently hand out empty databases.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp applies all pending schema migrations.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Snapshot reads every tracked entity inside one transaction, so the result
// is a single consistent view of the store.
func (s *SQLiteStore) Snapshot(ctx context.Context) (backup.Entities, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	entities := make(backup.Entities, len(backup.EntityOrder))
	for _, entity := range backup.EntityOrder {
		rows, err := readRows(ctx, tx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", entity))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entity, err)
		}
		entities[entity] = rows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing snapshot transaction: %w", err)
	}
	return entities, nil
}

// ChangedSince returns rows created or updated strictly after since.
// Every tracked entity is present in the result, empty when unchanged.
func (s *SQLiteStore) ChangedSince(ctx context.Context, since time.Time) (backup.Entities, error) {
	cutoff := since.UTC().Format(time.RFC3339)

	entities := make(backup.Entities, len(backup.EntityOrder))
	for _, entity := range backup.EntityOrder {
		query := fmt.Sprintf("SELECT * FROM %s WHERE updated_at > ? OR created_at > ? ORDER BY id", entity)
		rows, err := readRowsArgs(ctx, s.db, query, cutoff, cutoff)
		if err != nil {
			return nil, fmt.Errorf("reading changed %s: %w", entity, err)
		}
		entities[entity] = rows
	}
	return entities, nil
}

// RestoreAll replaces the store's contents inside one transaction: truncate
// in reverse dependency order, insert in forward order. Any failure rolls
// back the whole transaction and the store is left untouched.
func (s *SQLiteStore) RestoreAll(ctx context.Context, entities backup.Entities) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning restore transaction: %w", err)
	}
	defer tx.Rollback()

	for i := len(backup.EntityOrder) - 1; i >= 0; i-- {
		entity := backup.EntityOrder[i]
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+entity); err != nil {
			return fmt.Errorf("clearing %s: %w", entity, err)
		}
	}

	for _, entity := range backup.EntityOrder {
		for _, row := range entities[entity] {
			if err := insertRow(ctx, tx, entity, row); err != nil {
				return fmt.Errorf("inserting into %s: %w", entity, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore transaction: %w", err)
	}
	return nil
}

// Counts returns the current row count per tracked entity.
func (s *SQLiteStore) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(backup.EntityOrder))
	for _, entity := range backup.EntityOrder {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+entity).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", entity, err)
		}
		counts[entity] = n
	}
	return counts, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readRows(ctx context.Context, q querier, query string) ([]backup.Row, error) {
	return readRowsArgs(ctx, q, query)
}

func readRowsArgs(ctx context.Context, q querier, query string, args ...any) ([]backup.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := []backup.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(backup.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// normalizeValue converts driver types to JSON-stable values so the
// serialized snapshot is canonical.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// insertRow builds an INSERT for a row's columns in sorted order, so the
// statement shape is deterministic for a given row layout.
func insertRow(ctx context.Context, tx *sql.Tx, table string, row backup.Row) error {
	if len(row) == 0 {
		return fmt.Errorf("empty row")
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = row[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
