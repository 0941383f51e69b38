package testutil

import (
	"context"
	"testing"
	"time"

	"mbak/internal/backup"
	"mbak/internal/store"
)

// NewTestStore creates a new in-memory SQLite store with the schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := st.MigrateUp(); err != nil {
		st.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		st.Close()
	})

	return st
}

// MarketplaceFixture returns a small consistent data set: 3 users,
// 1 provider, 2 services, 1 booking, 1 payment, 1 review. All timestamps
// are RFC 3339 UTC strings at the given base time.
func MarketplaceFixture(base time.Time) backup.Entities {
	ts := base.UTC().Format(time.RFC3339)
	row := func(cols backup.Row) backup.Row {
		cols["created_at"] = ts
		cols["updated_at"] = ts
		return cols
	}

	return backup.Entities{
		"users": {
			row(backup.Row{"id": "u1", "name": "Ada Fox", "email": "ada@example.com"}),
			row(backup.Row{"id": "u2", "name": "Ben Cho", "email": "ben@example.com"}),
			row(backup.Row{"id": "u3", "name": "Cleo Ray", "email": "cleo@example.com"}),
		},
		"providers": {
			row(backup.Row{"id": "p1", "user_id": "u1", "name": "Fox Studio"}),
		},
		"services": {
			row(backup.Row{"id": "s1", "provider_id": "p1", "name": "Haircut", "price_cents": 4500, "duration_minutes": 45}),
			row(backup.Row{"id": "s2", "provider_id": "p1", "name": "Coloring", "price_cents": 9000, "duration_minutes": 90}),
		},
		"bookings": {
			row(backup.Row{"id": "b1", "user_id": "u2", "service_id": "s1", "starts_at": ts, "status": "confirmed"}),
		},
		"payments": {
			row(backup.Row{"id": "pay1", "booking_id": "b1", "amount_cents": 4500, "currency": "USD", "status": "captured"}),
		},
		"reviews": {
			row(backup.Row{"id": "r1", "booking_id": "b1", "rating": 5, "comment": "great"}),
		},
	}
}

// SeedMarketplace loads the MarketplaceFixture into a store.
func SeedMarketplace(t *testing.T, st backup.Store, base time.Time) {
	t.Helper()
	if err := st.RestoreAll(context.Background(), MarketplaceFixture(base)); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
}
