package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Reservations persistence.ReservationRepository
	Sanctions    persistence.SanctionRepository
	Directory    *sqlite.DirectoryRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "reservations.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Reservations: sqlite.NewReservationRepository(pool),
		Sanctions:    sqlite.NewSanctionRepository(pool),
		Directory:    sqlite.NewDirectoryRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedRoom inserts a room row. The directory repository is read-only, so tests
// seed catalog data directly.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, room persistence.Room) {
	tb.Helper()
	_, err := h.Pool.DB().Exec(`
		INSERT INTO rooms (id, name, capacity, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		room.ID,
		room.Name,
		room.Capacity,
		string(room.Category),
		room.CreatedAt.Format(time.RFC3339),
		room.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		tb.Fatalf("failed to seed room %s: %v", room.ID, err)
	}
}

// SeedParticipant inserts a participant row.
func (h *SQLiteHarness) SeedParticipant(tb testing.TB, participant persistence.Participant) {
	tb.Helper()
	active := 0
	if participant.Active {
		active = 1
	}
	_, err := h.Pool.DB().Exec(`
		INSERT INTO participants (id, display_name, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		participant.ID,
		participant.DisplayName,
		string(participant.Role),
		active,
		participant.CreatedAt.Format(time.RFC3339),
		participant.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		tb.Fatalf("failed to seed participant %s: %v", participant.ID, err)
	}
}
