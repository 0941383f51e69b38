package store

import (
	"fmt"
	"strings"

	"mbak/internal/backup"
)

// NewStoreFromURL creates a Store implementation from a database URL.
// Recognized forms: "memory", "sqlite://<path>", or a bare filesystem path
// (treated as SQLite, matching how the marketplace configures its database).
func NewStoreFromURL(databaseURL string) (backup.Store, error) {
	switch {
	case databaseURL == "":
		return nil, fmt.Errorf("database_url is not set")
	case databaseURL == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return NewSQLiteStore(databaseURL)
	}
}
