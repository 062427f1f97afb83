package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema revisions. Each entry is applied in its
// own transaction exactly once; schema_migrations records the versions that
// have run.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		category TEXT NOT NULL CHECK (category IN ('open', 'postgrad', 'faculty')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		ordinal INTEGER NOT NULL UNIQUE CHECK (ordinal > 0),
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('undergrad', 'postgrad', 'faculty', 'admin')),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_turn INTEGER NOT NULL CHECK (start_turn > 0),
		end_turn INTEGER NOT NULL,
		state TEXT NOT NULL CHECK (state IN ('active', 'confirmed', 'cancelled', 'finalized', 'no_show')),
		creator_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_turn >= start_turn),
		FOREIGN KEY (room_id) REFERENCES rooms(id),
		FOREIGN KEY (creator_id) REFERENCES participants(id)
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_room_date ON reservations(room_id, date, state);
	CREATE INDEX IF NOT EXISTS idx_reservations_creator_date ON reservations(creator_id, date, state);

	CREATE TABLE IF NOT EXISTS participations (
		reservation_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		state TEXT NOT NULL CHECK (state IN ('pending', 'confirmed', 'rejected')),
		attendance TEXT NOT NULL CHECK (attendance IN ('unrecorded', 'present', 'absent')),
		PRIMARY KEY (reservation_id, participant_id),
		FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE,
		FOREIGN KEY (participant_id) REFERENCES participants(id)
	);

	CREATE TABLE IF NOT EXISTS sanctions (
		id TEXT PRIMARY KEY,
		participant_id TEXT NOT NULL,
		starts_on TEXT NOT NULL,
		ends_on TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK (ends_on >= starts_on),
		FOREIGN KEY (participant_id) REFERENCES participants(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sanctions_participant ON sanctions(participant_id, starts_on, ends_on);
	`,
	// Seed the institutional turn clock: twelve one-hour slots from 08:00.
	`
	INSERT OR IGNORE INTO turns (id, ordinal, starts_at, ends_at) VALUES
		('turn-1', 1, '08:00', '09:00'),
		('turn-2', 2, '09:00', '10:00'),
		('turn-3', 3, '10:00', '11:00'),
		('turn-4', 4, '11:00', '12:00'),
		('turn-5', 5, '12:00', '13:00'),
		('turn-6', 6, '13:00', '14:00'),
		('turn-7', 7, '14:00', '15:00'),
		('turn-8', 8, '15:00', '16:00'),
		('turn-9', 9, '16:00', '17:00'),
		('turn-10', 10, '17:00', '18:00'),
		('turn-11', 11, '18:00', '19:00'),
		('turn-12', 12, '19:00', '20:00');
	`,
}

// Migrate brings the schema up to the latest revision.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}

	var current int
	err := cp.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		statement := migrations[version-1]
		if err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				version,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}
