package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

// SanctionRepository implements persistence.SanctionRepository using SQLite.
type SanctionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewSanctionRepository creates a new SQLite sanction repository.
func NewSanctionRepository(pool *ConnectionPool) *SanctionRepository {
	return &SanctionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateSanction inserts a sanction after verifying, inside the same
// transaction, that no existing sanction for the participant overlaps the
// interval.
func (r *SanctionRepository) CreateSanction(ctx context.Context, sanction persistence.Sanction) (persistence.Sanction, error) {
	if sanction.ID == "" {
		return persistence.Sanction{}, persistence.ErrConstraintViolation
	}
	if sanction.EndsOn.Before(sanction.StartsOn) {
		return persistence.Sanction{}, persistence.ErrConstraintViolation
	}

	sanction.CreatedAt = time.Now().UTC()

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var overlapping int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM sanctions
			WHERE participant_id = ?
			  AND NOT (ends_on < ? OR starts_on > ?)
		`,
			sanction.ParticipantID,
			sanction.StartsOn.Format(dateLayout),
			sanction.EndsOn.Format(dateLayout),
		).Scan(&overlapping)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if overlapping > 0 {
			return persistence.ErrSanctionOverlap
		}

		_, err = tx.Exec(`
			INSERT INTO sanctions (id, participant_id, starts_on, ends_on, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			sanction.ID,
			sanction.ParticipantID,
			sanction.StartsOn.Format(dateLayout),
			sanction.EndsOn.Format(dateLayout),
			sanction.Reason,
			sanction.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
	if err != nil {
		return persistence.Sanction{}, err
	}

	return sanction, nil
}

// GetSanction retrieves a sanction by ID.
func (r *SanctionRepository) GetSanction(ctx context.Context, id string) (persistence.Sanction, error) {
	if id == "" {
		return persistence.Sanction{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, participant_id, starts_on, ends_on, reason, created_at
		FROM sanctions
		WHERE id = ?
	`, id)

	sanction, err := scanSanction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Sanction{}, persistence.ErrNotFound
		}
		return persistence.Sanction{}, r.mapper.MapError(err)
	}

	return sanction, nil
}

// ListSanctions lists sanctions matching the filter, most recent first.
func (r *SanctionRepository) ListSanctions(ctx context.Context, filter persistence.SanctionFilter) ([]persistence.Sanction, error) {
	query := `
		SELECT id, participant_id, starts_on, ends_on, reason, created_at
		FROM sanctions
	`

	var conditions []string
	var args []any

	if filter.ParticipantID != "" {
		conditions = append(conditions, "participant_id = ?")
		args = append(args, filter.ParticipantID)
	}
	if filter.ActiveOn != nil {
		date := filter.ActiveOn.Format(dateLayout)
		conditions = append(conditions, "starts_on <= ? AND ends_on >= ?")
		args = append(args, date, date)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY starts_on DESC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sanctions []persistence.Sanction
	for rows.Next() {
		sanction, err := scanSanction(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sanctions = append(sanctions, sanction)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return sanctions, nil
}

// DeleteSanction removes a sanction by ID.
func (r *SanctionRepository) DeleteSanction(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM sanctions WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// HasActiveSanction reports whether the participant holds a sanction covering
// the given date.
func (r *SanctionRepository) HasActiveSanction(ctx context.Context, participantID string, date time.Time) (bool, error) {
	day := date.Format(dateLayout)

	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sanctions
		WHERE participant_id = ? AND starts_on <= ? AND ends_on >= ?
	`, participantID, day, day).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	return count > 0, nil
}

func scanSanction(row rowScanner) (persistence.Sanction, error) {
	var sanction persistence.Sanction
	var startsOnStr, endsOnStr, createdAtStr string

	err := row.Scan(
		&sanction.ID,
		&sanction.ParticipantID,
		&startsOnStr,
		&endsOnStr,
		&sanction.Reason,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Sanction{}, err
	}

	if sanction.StartsOn, err = time.Parse(dateLayout, startsOnStr); err != nil {
		return persistence.Sanction{}, fmt.Errorf("failed to parse starts_on: %w", err)
	}
	if sanction.EndsOn, err = time.Parse(dateLayout, endsOnStr); err != nil {
		return persistence.Sanction{}, fmt.Errorf("failed to parse ends_on: %w", err)
	}
	if sanction.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Sanction{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return sanction, nil
}
