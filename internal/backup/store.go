package backup

import (
	"context"
	"time"
)

// Row is a single record from one entity collection, keyed by column name.
// Values must be JSON-encodable; timestamps are RFC 3339 UTC strings so the
// serialized form is canonical.
type Row map[string]any

// Entities maps an entity name to its rows.
type Entities map[string][]Row

// EntityOrder lists every tracked entity in dependency order: referenced
// entities come before the entities that reference them. Restore inserts
// collections in this order and truncates in reverse.
var EntityOrder = []string{"users", "providers", "services", "bookings", "payments", "reviews"}

// Store provides an interface for the marketplace's relational data store.
// Implementations must make Snapshot and RestoreAll transactional: a snapshot
// is one consistent read of all tracked entities, and RestoreAll either
// applies every row or leaves the store untouched.
type Store interface {
	// Snapshot reads all tracked entities under a single consistent view.
	// Every entity in EntityOrder is present in the result.
	Snapshot(ctx context.Context) (Entities, error)

	// ChangedSince returns rows created or updated strictly after since.
	// Every entity in EntityOrder is present in the result; entities with no
	// changes map to an empty slice, never a missing key.
	ChangedSince(ctx context.Context, since time.Time) (Entities, error)

	// RestoreAll replaces the store's contents with the given entities inside
	// one transaction. Rows are inserted in EntityOrder so referenced rows
	// exist before the rows that reference them. Any constraint violation
	// rolls back the whole transaction.
	RestoreAll(ctx context.Context, entities Entities) error

	// Counts returns the current row count per tracked entity.
	Counts(ctx context.Context) (map[string]int, error)

	// Close closes the underlying connection.
	Close() error
}
