package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

// DirectoryRepository implements the read-only room, turn, and participant
// directory lookups. The directory tables are maintained by an external
// service; the core never writes them.
type DirectoryRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewDirectoryRepository creates a new SQLite directory repository.
func NewDirectoryRepository(pool *ConnectionPool) *DirectoryRepository {
	return &DirectoryRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// GetRoom retrieves a room by ID.
func (r *DirectoryRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var room persistence.Room
	var category, createdAtStr, updatedAtStr string

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, capacity, category, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`, id).Scan(&room.ID, &room.Name, &room.Capacity, &category, &createdAtStr, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	room.Category = booking.RoomCategory(category)
	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (r *DirectoryRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, capacity, category, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		var room persistence.Room
		var category, createdAtStr, updatedAtStr string
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity, &category, &createdAtStr, &updatedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		room.Category = booking.RoomCategory(category)
		if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

// GetTurnByOrdinal retrieves a turn by its ordinal position.
func (r *DirectoryRepository) GetTurnByOrdinal(ctx context.Context, ordinal int) (persistence.Turn, error) {
	var turn persistence.Turn
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, ordinal, starts_at, ends_at
		FROM turns
		WHERE ordinal = ?
	`, ordinal).Scan(&turn.ID, &turn.Ordinal, &turn.StartsAt, &turn.EndsAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Turn{}, persistence.ErrNotFound
		}
		return persistence.Turn{}, r.mapper.MapError(err)
	}

	return turn, nil
}

// ListTurns returns every turn in ordinal order.
func (r *DirectoryRepository) ListTurns(ctx context.Context) ([]persistence.Turn, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, ordinal, starts_at, ends_at
		FROM turns
		ORDER BY ordinal ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var turns []persistence.Turn
	for rows.Next() {
		var turn persistence.Turn
		if err := rows.Scan(&turn.ID, &turn.Ordinal, &turn.StartsAt, &turn.EndsAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return turns, nil
}

// GetParticipant retrieves a participant by ID.
func (r *DirectoryRepository) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	if id == "" {
		return persistence.Participant{}, persistence.ErrNotFound
	}

	var participant persistence.Participant
	var role, createdAtStr, updatedAtStr string
	var active int

	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, active, created_at, updated_at
		FROM participants
		WHERE id = ?
	`, id).Scan(&participant.ID, &participant.DisplayName, &role, &active, &createdAtStr, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Participant{}, persistence.ErrNotFound
		}
		return persistence.Participant{}, r.mapper.MapError(err)
	}

	participant.Role = booking.Role(role)
	participant.Active = active != 0
	if participant.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if participant.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return participant, nil
}

// MissingParticipantIDs returns the subset of ids that have no active
// directory entry.
func (r *DirectoryRepository) MissingParticipantIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var missing []string
	for _, id := range ids {
		participant, err := r.GetParticipant(ctx, id)
		if err != nil {
			if err == persistence.ErrNotFound {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
		if !participant.Active {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return nil, nil
	}
	return missing, nil
}
