package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

// ReservationRepository captures the persistence interactions needed by the service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error)
	GetReservation(ctx context.Context, id string) (persistence.Reservation, error)
	UpdateReservation(ctx context.Context, reservation persistence.Reservation, replaceParticipants []string) (persistence.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error)
	SetParticipationState(ctx context.Context, reservationID, participantID string, state booking.ParticipationState) error
	RecordAttendance(ctx context.Context, reservationID, participantID string, attendance booking.Attendance) error
}

// RoomDirectory exposes room lookup operations.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
}

// TurnDirectory exposes turn lookup operations.
type TurnDirectory interface {
	GetTurnByOrdinal(ctx context.Context, ordinal int) (persistence.Turn, error)
	ListTurns(ctx context.Context) ([]persistence.Turn, error)
}

// ParticipantDirectory exposes participant lookup operations.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id string) (persistence.Participant, error)
	MissingParticipantIDs(ctx context.Context, ids []string) ([]string, error)
}

// ReservationService orchestrates validation, eligibility and persistence for
// reservation operations.
type ReservationService struct {
	reservations ReservationRepository
	rooms        RoomDirectory
	turns        TurnDirectory
	participants ParticipantDirectory
	guard        *EligibilityGuard
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationRepository, rooms RoomDirectory, turns TurnDirectory, participants ParticipantDirectory, guard *EligibilityGuard, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, turns, participants, guard, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies along with a structured logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, rooms RoomDirectory, turns TurnDirectory, participants ParticipantDirectory, guard *EligibilityGuard, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		turns:        turns,
		participants: participants,
		guard:        guard,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// CreateReservation validates the request, runs the eligibility checks and
// persists the reservation with its participation rows.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (persistence.Reservation, error) {
	if s == nil {
		return persistence.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return persistence.Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "reservation_service", "create_reservation", "participant_id", params.Principal.ParticipantID)

	creator, err := s.resolveCreator(ctx, params.Principal)
	if err != nil {
		logger.Warn("reservation rejected", "error_kind", ErrorKind(err))
		return persistence.Reservation{}, err
	}

	input := params.Input
	vErr := &ValidationError{}
	validateReservationCore(input, vErr)
	if vErr.HasErrors() {
		return persistence.Reservation{}, vErr
	}

	if err := s.ensureTurnsExist(ctx, input.StartTurn, input.EndTurn); err != nil {
		return persistence.Reservation{}, err
	}

	room, err := s.resolveRoom(ctx, input.RoomID)
	if err != nil {
		return persistence.Reservation{}, err
	}

	invitees := uniqueStrings(input.ParticipantIDs)
	invitees = removeString(invitees, creator.ID)
	if err := s.ensureParticipantsExist(ctx, invitees); err != nil {
		return persistence.Reservation{}, err
	}

	guardInput := GuardInput{
		Creator:          creator,
		Room:             room,
		Date:             booking.DateOf(input.Date),
		Turns:            booking.TurnRange{Start: input.StartTurn, End: input.EndTurn},
		ParticipantCount: len(invitees) + 1,
	}
	if err := s.guard.Check(ctx, guardInput); err != nil {
		logger.Warn("reservation rejected", "error_kind", ErrorKind(err), "room_id", room.ID)
		return persistence.Reservation{}, err
	}

	createdAt := s.now()
	reservation := persistence.Reservation{
		ID:        s.idGenerator(),
		RoomID:    room.ID,
		Date:      booking.DateOf(input.Date),
		StartTurn: input.StartTurn,
		EndTurn:   input.EndTurn,
		State:     booking.ReservationActive,
		CreatorID: creator.ID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	reservation.Participations = append(reservation.Participations, persistence.Participation{
		ReservationID: reservation.ID,
		ParticipantID: creator.ID,
		State:         booking.ParticipationConfirmed,
		Attendance:    booking.AttendanceUnrecorded,
	})
	for _, id := range invitees {
		reservation.Participations = append(reservation.Participations, persistence.Participation{
			ReservationID: reservation.ID,
			ParticipantID: id,
			State:         booking.ParticipationPending,
			Attendance:    booking.AttendanceUnrecorded,
		})
	}

	persisted, err := s.reservations.CreateReservation(ctx, reservation)
	if err != nil {
		mapped := mapReservationRepoError(err)
		logger.Warn("reservation rejected", "error_kind", ErrorKind(mapped), "room_id", room.ID)
		return persistence.Reservation{}, mapped
	}

	logger.Info("reservation created", "reservation_id", persisted.ID, "room_id", persisted.RoomID)
	return persisted, nil
}

// GetReservation loads a single reservation with its participation rows.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if s == nil || s.reservations == nil {
		return persistence.Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return persistence.Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations enumerates reservations matching the caller's filter.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) ([]persistence.Reservation, error) {
	if s == nil || s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	filter := persistence.ReservationFilter{
		RoomID:   params.RoomID,
		Date:     params.Date,
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	}
	if params.Mine {
		filter.ParticipantID = params.Principal.ParticipantID
	}

	reservations, err := s.reservations.ListReservations(ctx, filter)
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return reservations, nil
}

// UpdateReservation applies authorization, lifecycle and eligibility rules
// before persisting the change.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (persistence.Reservation, error) {
	if s == nil {
		return persistence.Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return persistence.Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "reservation_service", "update_reservation", "reservation_id", params.ReservationID)

	existing, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		return persistence.Reservation{}, mapReservationRepoError(err)
	}

	principal := params.Principal
	if existing.CreatorID != principal.ParticipantID && !principal.IsAdmin() {
		return persistence.Reservation{}, ErrUnauthorized
	}

	if existing.State.Terminal() {
		return persistence.Reservation{}, ErrInvalidTransition
	}

	patch := params.Patch
	updated := existing

	if patch.State != nil {
		if !booking.CanTransition(existing.State, *patch.State) {
			return persistence.Reservation{}, ErrInvalidTransition
		}
		updated.State = *patch.State
	}
	if patch.RoomID != nil {
		updated.RoomID = *patch.RoomID
	}
	if patch.Date != nil {
		updated.Date = booking.DateOf(*patch.Date)
	}
	if patch.StartTurn != nil {
		updated.StartTurn = *patch.StartTurn
	}
	if patch.EndTurn != nil {
		updated.EndTurn = *patch.EndTurn
	}

	vErr := &ValidationError{}
	if updated.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	turns := booking.TurnRange{Start: updated.StartTurn, End: updated.EndTurn}
	if !turns.Valid() {
		vErr.add("turns", "start turn must not be after end turn")
	}
	if vErr.HasErrors() {
		return persistence.Reservation{}, vErr
	}

	scheduleChanged := updated.RoomID != existing.RoomID ||
		!updated.Date.Equal(existing.Date) ||
		updated.StartTurn != existing.StartTurn ||
		updated.EndTurn != existing.EndTurn

	roster := patch.ParticipantIDs
	if roster != nil {
		roster = uniqueStrings(roster)
		if !containsString(roster, existing.CreatorID) {
			roster = append(roster, existing.CreatorID)
		}
		if err := s.ensureParticipantsExist(ctx, roster); err != nil {
			return persistence.Reservation{}, err
		}
	}

	if scheduleChanged {
		if err := s.ensureTurnsExist(ctx, updated.StartTurn, updated.EndTurn); err != nil {
			return persistence.Reservation{}, err
		}
	}

	if scheduleChanged || roster != nil {
		creator, err := s.resolveCreator(ctx, Principal{ParticipantID: existing.CreatorID})
		if err != nil {
			return persistence.Reservation{}, err
		}
		room, err := s.resolveRoom(ctx, updated.RoomID)
		if err != nil {
			return persistence.Reservation{}, err
		}
		count := len(existing.Participations)
		if roster != nil {
			count = len(roster)
		}
		guardInput := GuardInput{
			Creator:              creator,
			Room:                 room,
			Date:                 updated.Date,
			Turns:                turns,
			ParticipantCount:     count,
			ExcludeReservationID: existing.ID,
		}
		if err := s.guard.Check(ctx, guardInput); err != nil {
			logger.Warn("reservation update rejected", "error_kind", ErrorKind(err))
			return persistence.Reservation{}, err
		}
	}

	updated.UpdatedAt = s.now()

	persisted, err := s.reservations.UpdateReservation(ctx, updated, roster)
	if err != nil {
		mapped := mapReservationRepoError(err)
		logger.Warn("reservation update rejected", "error_kind", ErrorKind(mapped))
		return persistence.Reservation{}, mapped
	}

	logger.Info("reservation updated", "state", string(persisted.State))
	return persisted, nil
}

// DeleteReservation removes a reservation and its participation rows.
func (s *ReservationService) DeleteReservation(ctx context.Context, principal Principal, reservationID string) error {
	if s == nil || s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return mapReservationRepoError(err)
	}

	if existing.CreatorID != principal.ParticipantID && !principal.IsAdmin() {
		return ErrUnauthorized
	}

	if err := s.reservations.DeleteReservation(ctx, reservationID); err != nil {
		return mapReservationRepoError(err)
	}

	serviceLogger(ctx, s.logger, "reservation_service", "delete_reservation", "reservation_id", reservationID).
		Info("reservation deleted")
	return nil
}

// SetParticipation records the principal's answer to an invitation.
func (s *ReservationService) SetParticipation(ctx context.Context, params SetParticipationParams) error {
	if s == nil || s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		return mapReservationRepoError(err)
	}
	if !reservation.State.Live() {
		return ErrInvalidTransition
	}

	invited := false
	for _, participation := range reservation.Participations {
		if participation.ParticipantID == params.Principal.ParticipantID {
			invited = true
			break
		}
	}
	if !invited {
		return ErrNotInvited
	}

	state := booking.ParticipationRejected
	if params.Accepted {
		state = booking.ParticipationConfirmed
	}

	if err := s.reservations.SetParticipationState(ctx, params.ReservationID, params.Principal.ParticipantID, state); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotInvited
		}
		return mapReservationRepoError(err)
	}

	serviceLogger(ctx, s.logger, "reservation_service", "set_participation",
		"reservation_id", params.ReservationID, "participant_id", params.Principal.ParticipantID).
		Info("participation recorded", "state", string(state))
	return nil
}

// RecordAttendance stores a single attendance observation for a participant.
// A participation's attendance can be recorded exactly once.
func (s *ReservationService) RecordAttendance(ctx context.Context, params RecordAttendanceParams) error {
	if s == nil || s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	if params.ParticipantID != params.Principal.ParticipantID && !params.Principal.IsAdmin() {
		return ErrUnauthorized
	}

	reservation, err := s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		return mapReservationRepoError(err)
	}
	if !reservation.State.Live() {
		return ErrInvalidTransition
	}

	attendance := booking.AttendanceAbsent
	if params.Present {
		attendance = booking.AttendancePresent
	}

	if err := s.reservations.RecordAttendance(ctx, params.ReservationID, params.ParticipantID, attendance); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotInvited
		}
		return mapReservationRepoError(err)
	}

	serviceLogger(ctx, s.logger, "reservation_service", "record_attendance",
		"reservation_id", params.ReservationID, "participant_id", params.ParticipantID).
		Info("attendance recorded", "attendance", string(attendance))
	return nil
}

// ListRooms enumerates the room directory.
func (s *ReservationService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room directory not configured")
	}
	return s.rooms.ListRooms(ctx)
}

// ListTurns enumerates the turn grid.
func (s *ReservationService) ListTurns(ctx context.Context) ([]persistence.Turn, error) {
	if s == nil || s.turns == nil {
		return nil, fmt.Errorf("turn directory not configured")
	}
	return s.turns.ListTurns(ctx)
}

func (s *ReservationService) resolveCreator(ctx context.Context, principal Principal) (persistence.Participant, error) {
	if s.participants == nil {
		return persistence.Participant{ID: principal.ParticipantID, Role: principal.Role, Active: true}, nil
	}
	creator, err := s.participants.GetParticipant(ctx, principal.ParticipantID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Participant{}, ErrUnauthorized
		}
		return persistence.Participant{}, err
	}
	if !creator.Active {
		return persistence.Participant{}, ErrUnauthorized
	}
	return creator, nil
}

func (s *ReservationService) resolveRoom(ctx context.Context, roomID string) (persistence.Room, error) {
	if s.rooms == nil {
		return persistence.Room{ID: roomID}, nil
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return persistence.Room{}, vErr
		}
		return persistence.Room{}, err
	}
	return room, nil
}

func (s *ReservationService) ensureTurnsExist(ctx context.Context, start, end int) error {
	if s.turns == nil {
		return nil
	}
	vErr := &ValidationError{}
	if _, err := s.turns.GetTurnByOrdinal(ctx, start); err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		vErr.add("start_turn", "unknown turn ordinal")
	}
	if _, err := s.turns.GetTurnByOrdinal(ctx, end); err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		vErr.add("end_turn", "unknown turn ordinal")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *ReservationService) ensureParticipantsExist(ctx context.Context, ids []string) error {
	if s.participants == nil || len(ids) == 0 {
		return nil
	}
	missing, err := s.participants.MissingParticipantIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("participants", fmt.Sprintf("unknown participant ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func validateReservationCore(input ReservationInput, vErr *ValidationError) {
	if input.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !(booking.TurnRange{Start: input.StartTurn, End: input.EndTurn}).Valid() {
		vErr.add("turns", "start turn must not be after end turn")
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func removeString(values []string, target string) []string {
	result := values[:0]
	for _, value := range values {
		if value != target {
			result = append(result, value)
		}
	}
	return result
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrRoomConflict):
		return ErrRoomUnavailable
	case errors.Is(err, persistence.ErrCreatorConflict):
		return ErrParticipantDoubleBooked
	case errors.Is(err, persistence.ErrAlreadyRecorded):
		return ErrAttendanceRecorded
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("participants", "related records are missing")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("reservation", "invalid reservation fields")
		return vErr
	}
	return err
}
