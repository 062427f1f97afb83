package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Every check-then-write sequence runs inside a single transaction so
// two concurrent requests can never both observe "no conflict" and commit.
type ReservationRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateReservation inserts a reservation with its participation rows after
// verifying the room and creator non-overlap invariants within the same
// transaction.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	if reservation.ID == "" {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}
	if reservation.StartTurn > reservation.EndTurn || reservation.StartTurn < 1 {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.checkConflictsTx(tx, reservation, ""); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO reservations (id, room_id, date, start_turn, end_turn, state, creator_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			reservation.ID,
			reservation.RoomID,
			reservation.Date.Format(dateLayout),
			reservation.StartTurn,
			reservation.EndTurn,
			string(reservation.State),
			reservation.CreatorID,
			reservation.CreatedAt.Format(time.RFC3339),
			reservation.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertParticipationsTx(tx, reservation.ID, reservation.Participations)
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return reservation, nil
}

// GetReservation retrieves a reservation and its participation rows by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, room_id, date, start_turn, end_turn, state, creator_id, created_at, updated_at
		FROM reservations
		WHERE id = ?
	`, id)

	reservation, err := scanReservation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	participations, err := r.loadParticipations(ctx, id)
	if err != nil {
		return persistence.Reservation{}, err
	}
	reservation.Participations = participations

	return reservation, nil
}

// UpdateReservation rewrites the mutable fields of an existing reservation,
// re-checking the non-overlap invariants inside the transaction whenever the
// updated record remains live.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation, replaceParticipants []string) (persistence.Reservation, error) {
	if reservation.ID == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	if reservation.StartTurn > reservation.EndTurn || reservation.StartTurn < 1 {
		return persistence.Reservation{}, persistence.ErrConstraintViolation
	}

	reservation.UpdatedAt = time.Now().UTC()

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// The creator column is immutable; carry the stored value forward.
		var creatorID string
		err := tx.QueryRow(`SELECT creator_id FROM reservations WHERE id = ?`, reservation.ID).Scan(&creatorID)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}
		reservation.CreatorID = creatorID

		if reservation.State.Live() {
			if err := r.checkConflictsTx(tx, reservation, reservation.ID); err != nil {
				return err
			}
		}

		result, err := tx.Exec(`
			UPDATE reservations
			SET room_id = ?, date = ?, start_turn = ?, end_turn = ?, state = ?, updated_at = ?
			WHERE id = ?
		`,
			reservation.RoomID,
			reservation.Date.Format(dateLayout),
			reservation.StartTurn,
			reservation.EndTurn,
			string(reservation.State),
			reservation.UpdatedAt.Format(time.RFC3339),
			reservation.ID,
		)
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

		if replaceParticipants != nil {
			if _, err := tx.Exec(`DELETE FROM participations WHERE reservation_id = ?`, reservation.ID); err != nil {
				return r.mapper.MapError(err)
			}
			// A replaced roster starts over: every row confirmed with
			// attendance reset.
			rows := make([]persistence.Participation, 0, len(replaceParticipants))
			for _, participantID := range replaceParticipants {
				rows = append(rows, persistence.Participation{
					ReservationID: reservation.ID,
					ParticipantID: participantID,
					State:         booking.ParticipationConfirmed,
					Attendance:    booking.AttendanceUnrecorded,
				})
			}
			if err := r.insertParticipationsTx(tx, reservation.ID, rows); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return r.GetReservation(ctx, reservation.ID)
}

// DeleteReservation removes a reservation; participation rows cascade.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM reservations WHERE id = ?`, id)
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
	})
}

// ListReservations lists reservations matching the provided filter, ordered
// by date, start turn, then ID.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := buildReservationListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range reservations {
		participations, err := r.loadParticipations(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].Participations = participations
	}

	return reservations, nil
}

// ListElapsed returns live reservations whose time window has fully elapsed
// relative to the given date and wall clock.
func (r *ReservationRepository) ListElapsed(ctx context.Context, today time.Time, nowClock string) ([]persistence.Reservation, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT r.id, r.room_id, r.date, r.start_turn, r.end_turn, r.state, r.creator_id, r.created_at, r.updated_at
		FROM reservations r
		JOIN turns t ON t.ordinal = r.end_turn
		WHERE r.state IN ('active', 'confirmed')
		  AND (r.date < ? OR (r.date = ? AND t.ends_at <= ?))
		ORDER BY r.date ASC, r.start_turn ASC, r.id ASC
	`, today.Format(dateLayout), today.Format(dateLayout), nowClock)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range reservations {
		participations, err := r.loadParticipations(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].Participations = participations
	}

	return reservations, nil
}

// SetParticipationState records an invitee's confirm or reject response.
func (r *ReservationRepository) SetParticipationState(ctx context.Context, reservationID, participantID string, state booking.ParticipationState) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE participations SET state = ?
		WHERE reservation_id = ? AND participant_id = ?
	`, string(state), reservationID, participantID)
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

// RecordAttendance transitions a participation row from unrecorded to the
// given attendance. The read and the write share one transaction so exactly
// one recording can ever succeed per participant per reservation.
func (r *ReservationRepository) RecordAttendance(ctx context.Context, reservationID, participantID string, attendance booking.Attendance) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow(`
			SELECT attendance FROM participations
			WHERE reservation_id = ? AND participant_id = ?
		`, reservationID, participantID).Scan(&current)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		if booking.Attendance(current) != booking.AttendanceUnrecorded {
			return persistence.ErrAlreadyRecorded
		}

		_, err = tx.Exec(`
			UPDATE participations SET attendance = ?
			WHERE reservation_id = ? AND participant_id = ?
		`, string(attendance), reservationID, participantID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

// CloseOutReservation applies one reconciliation decision: the state change,
// the forced attendance, and any no-show sanctions commit or roll back as a
// unit. A reservation that is no longer live surfaces ErrNotFound so callers
// skip it.
func (r *ReservationRepository) CloseOutReservation(ctx context.Context, closeOut persistence.CloseOut, sanctionID func() string) (int, error) {
	if sanctionID == nil {
		sanctionID = func() string { return "" }
	}

	applied := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		applied = 0

		var state string
		err := tx.QueryRow(`SELECT state FROM reservations WHERE id = ?`, closeOut.ReservationID).Scan(&state)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}
		if !booking.ReservationState(state).Live() {
			return persistence.ErrNotFound
		}

		_, err = tx.Exec(`
			UPDATE reservations SET state = ?, updated_at = ?
			WHERE id = ?
		`, string(closeOut.State), time.Now().UTC().Format(time.RFC3339), closeOut.ReservationID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		attendanceQuery := `UPDATE participations SET attendance = 'absent' WHERE reservation_id = ? AND attendance = 'unrecorded'`
		if closeOut.ForceAllAbsent {
			attendanceQuery = `UPDATE participations SET attendance = 'absent' WHERE reservation_id = ?`
		}
		if _, err := tx.Exec(attendanceQuery, closeOut.ReservationID); err != nil {
			return r.mapper.MapError(err)
		}

		if closeOut.Sanction == nil {
			return nil
		}

		rows, err := tx.Query(`
			SELECT DISTINCT participant_id FROM participations WHERE reservation_id = ?
		`, closeOut.ReservationID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		participantIDs := make([]string, 0, 4)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return r.mapper.MapError(err)
			}
			participantIDs = append(participantIDs, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return r.mapper.MapError(err)
		}
		rows.Close()

		startsOn := closeOut.Sanction.StartsOn.Format(dateLayout)
		endsOn := closeOut.Sanction.EndsOn.Format(dateLayout)
		for _, participantID := range participantIDs {
			// Re-running the job must not stack sanctions: skip anyone already
			// covered through the sanction's start date.
			var covered int
			err := tx.QueryRow(`
				SELECT COUNT(*) FROM sanctions
				WHERE participant_id = ? AND starts_on <= ? AND ends_on >= ?
			`, participantID, startsOn, startsOn).Scan(&covered)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if covered > 0 {
				continue
			}

			_, err = tx.Exec(`
				INSERT INTO sanctions (id, participant_id, starts_on, ends_on, reason, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				sanctionID(),
				participantID,
				startsOn,
				endsOn,
				closeOut.Sanction.Reason,
				time.Now().UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			applied++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return applied, nil
}

// checkConflictsTx enforces the non-overlap invariants against the live
// reservations visible to the current transaction. excludeID skips the
// reservation being updated.
func (r *ReservationRepository) checkConflictsTx(tx *sql.Tx, reservation persistence.Reservation, excludeID string) error {
	date := reservation.Date.Format(dateLayout)

	roomQuery := `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = ? AND date = ?
		  AND state IN ('active', 'confirmed')
		  AND start_turn <= ? AND end_turn >= ?
	`
	roomArgs := []any{reservation.RoomID, date, reservation.EndTurn, reservation.StartTurn}
	if excludeID != "" {
		roomQuery += ` AND id != ?`
		roomArgs = append(roomArgs, excludeID)
	}

	var roomConflicts int
	if err := tx.QueryRow(roomQuery, roomArgs...).Scan(&roomConflicts); err != nil {
		return r.mapper.MapError(err)
	}
	if roomConflicts > 0 {
		return persistence.ErrRoomConflict
	}

	creatorQuery := `
		SELECT COUNT(*) FROM reservations
		WHERE creator_id = ? AND date = ?
		  AND state IN ('active', 'confirmed')
		  AND start_turn <= ? AND end_turn >= ?
	`
	creatorArgs := []any{reservation.CreatorID, date, reservation.EndTurn, reservation.StartTurn}
	if excludeID != "" {
		creatorQuery += ` AND id != ?`
		creatorArgs = append(creatorArgs, excludeID)
	}

	var creatorConflicts int
	if err := tx.QueryRow(creatorQuery, creatorArgs...).Scan(&creatorConflicts); err != nil {
		return r.mapper.MapError(err)
	}
	if creatorConflicts > 0 {
		return persistence.ErrCreatorConflict
	}

	return nil
}

// insertParticipationsTx inserts participation rows within a transaction.
func (r *ReservationRepository) insertParticipationsTx(tx *sql.Tx, reservationID string, participations []persistence.Participation) error {
	seen := make(map[string]struct{}, len(participations))
	for _, participation := range participations {
		participantID := strings.TrimSpace(participation.ParticipantID)
		if participantID == "" {
			continue
		}
		if _, ok := seen[participantID]; ok {
			continue
		}
		seen[participantID] = struct{}{}

		_, err := tx.Exec(`
			INSERT INTO participations (reservation_id, participant_id, state, attendance)
			VALUES (?, ?, ?, ?)
		`, reservationID, participantID, string(participation.State), string(participation.Attendance))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// loadParticipations loads participation rows for a reservation.
func (r *ReservationRepository) loadParticipations(ctx context.Context, reservationID string) ([]persistence.Participation, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT reservation_id, participant_id, state, attendance
		FROM participations
		WHERE reservation_id = ?
		ORDER BY participant_id ASC
	`, reservationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participations []persistence.Participation
	for rows.Next() {
		var participation persistence.Participation
		var state, attendance string
		if err := rows.Scan(&participation.ReservationID, &participation.ParticipantID, &state, &attendance); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participation.State = booking.ParticipationState(state)
		participation.Attendance = booking.Attendance(attendance)
		participations = append(participations, participation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return participations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var dateStr, state, createdAtStr, updatedAtStr string

	err := row.Scan(
		&reservation.ID,
		&reservation.RoomID,
		&dateStr,
		&reservation.StartTurn,
		&reservation.EndTurn,
		&state,
		&reservation.CreatorID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}

	reservation.State = booking.ReservationState(state)
	if reservation.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if reservation.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return reservation, nil
}

func collectReservations(rows *sql.Rows) ([]persistence.Reservation, error) {
	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// buildReservationListQuery builds the SQL query for listing reservations.
func buildReservationListQuery(filter persistence.ReservationFilter) (string, []any) {
	query := `
		SELECT r.id, r.room_id, r.date, r.start_turn, r.end_turn, r.state, r.creator_id, r.created_at, r.updated_at
		FROM reservations r
	`

	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "r.room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, "r.creator_id = ?")
		args = append(args, filter.CreatorID)
	}
	if filter.ParticipantID != "" {
		sub := `EXISTS (SELECT 1 FROM participations p WHERE p.reservation_id = r.id AND p.participant_id = ?`
		args = append(args, filter.ParticipantID)
		if filter.ConfirmedOnly {
			sub += ` AND p.state = 'confirmed'`
		}
		sub += `)`
		conditions = append(conditions, sub)
	}
	if filter.Date != nil {
		conditions = append(conditions, "r.date = ?")
		args = append(args, filter.Date.Format(dateLayout))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "r.date >= ?")
		args = append(args, filter.DateFrom.Format(dateLayout))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "r.date <= ?")
		args = append(args, filter.DateTo.Format(dateLayout))
	}
	if filter.LiveOnly {
		conditions = append(conditions, "r.state IN ('active', 'confirmed')")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY r.date ASC, r.start_turn ASC, r.id ASC"

	return query, args
}
