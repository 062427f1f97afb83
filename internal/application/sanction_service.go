package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

// SanctionRepository captures the persistence interactions needed by the service.
type SanctionRepository interface {
	CreateSanction(ctx context.Context, sanction persistence.Sanction) (persistence.Sanction, error)
	GetSanction(ctx context.Context, id string) (persistence.Sanction, error)
	ListSanctions(ctx context.Context, filter persistence.SanctionFilter) ([]persistence.Sanction, error)
	DeleteSanction(ctx context.Context, id string) error
	HasActiveSanction(ctx context.Context, participantID string, date time.Time) (bool, error)
}

// SanctionService manages the sanction ledger. Creation and removal are
// administrator operations; participants may list their own entries.
type SanctionService struct {
	sanctions    SanctionRepository
	participants ParticipantDirectory
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewSanctionService wires dependencies for sanction operations.
func NewSanctionService(sanctions SanctionRepository, participants ParticipantDirectory, idGenerator func() string, now func() time.Time) *SanctionService {
	return NewSanctionServiceWithLogger(sanctions, participants, idGenerator, now, nil)
}

// NewSanctionServiceWithLogger wires dependencies along with a structured logger.
func NewSanctionServiceWithLogger(sanctions SanctionRepository, participants ParticipantDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SanctionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SanctionService{
		sanctions:    sanctions,
		participants: participants,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// CreateSanction records a manual sanction interval for a participant.
func (s *SanctionService) CreateSanction(ctx context.Context, params CreateSanctionParams) (persistence.Sanction, error) {
	if s == nil || s.sanctions == nil {
		return persistence.Sanction{}, fmt.Errorf("sanction repository not configured")
	}

	if !params.Principal.IsAdmin() {
		return persistence.Sanction{}, ErrUnauthorized
	}

	input := params.Input
	vErr := &ValidationError{}
	if input.ParticipantID == "" {
		vErr.add("participant_id", "participant is required")
	}
	if input.StartsOn.IsZero() {
		vErr.add("starts_on", "start date is required")
	}
	if input.EndsOn.IsZero() {
		vErr.add("ends_on", "end date is required")
	}
	if !input.StartsOn.IsZero() && !input.EndsOn.IsZero() && input.EndsOn.Before(input.StartsOn) {
		vErr.add("dates", "end date must not precede start date")
	}
	if vErr.HasErrors() {
		return persistence.Sanction{}, vErr
	}

	if s.participants != nil {
		if _, err := s.participants.GetParticipant(ctx, input.ParticipantID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("participant_id", "participant does not exist")
				return persistence.Sanction{}, vErr
			}
			return persistence.Sanction{}, err
		}
	}

	sanction := persistence.Sanction{
		ID:            s.idGenerator(),
		ParticipantID: input.ParticipantID,
		StartsOn:      booking.DateOf(input.StartsOn),
		EndsOn:        booking.DateOf(input.EndsOn),
		Reason:        input.Reason,
		CreatedAt:     s.now(),
	}

	persisted, err := s.sanctions.CreateSanction(ctx, sanction)
	if err != nil {
		return persistence.Sanction{}, mapSanctionRepoError(err)
	}

	serviceLogger(ctx, s.logger, "sanction_service", "create_sanction",
		"sanction_id", persisted.ID, "participant_id", persisted.ParticipantID).
		Info("sanction created")
	return persisted, nil
}

// GetSanction loads a single sanction. Non-admin principals may only read
// their own entries.
func (s *SanctionService) GetSanction(ctx context.Context, principal Principal, id string) (persistence.Sanction, error) {
	if s == nil || s.sanctions == nil {
		return persistence.Sanction{}, fmt.Errorf("sanction repository not configured")
	}

	sanction, err := s.sanctions.GetSanction(ctx, id)
	if err != nil {
		return persistence.Sanction{}, mapSanctionRepoError(err)
	}
	if sanction.ParticipantID != principal.ParticipantID && !principal.IsAdmin() {
		return persistence.Sanction{}, ErrUnauthorized
	}
	return sanction, nil
}

// ListSanctions enumerates sanctions visible to the principal.
func (s *SanctionService) ListSanctions(ctx context.Context, params ListSanctionsParams) ([]persistence.Sanction, error) {
	if s == nil || s.sanctions == nil {
		return nil, fmt.Errorf("sanction repository not configured")
	}

	filter := persistence.SanctionFilter{
		ParticipantID: params.ParticipantID,
		ActiveOn:      params.ActiveOn,
	}
	if !params.Principal.IsAdmin() {
		filter.ParticipantID = params.Principal.ParticipantID
	}

	sanctions, err := s.sanctions.ListSanctions(ctx, filter)
	if err != nil {
		return nil, mapSanctionRepoError(err)
	}
	return sanctions, nil
}

// DeleteSanction removes a sanction entry.
func (s *SanctionService) DeleteSanction(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.sanctions == nil {
		return fmt.Errorf("sanction repository not configured")
	}

	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	if err := s.sanctions.DeleteSanction(ctx, id); err != nil {
		return mapSanctionRepoError(err)
	}

	serviceLogger(ctx, s.logger, "sanction_service", "delete_sanction", "sanction_id", id).
		Info("sanction deleted")
	return nil
}

func mapSanctionRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrSanctionOverlap):
		return ErrSanctionOverlap
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("participant_id", "participant does not exist")
		return vErr
	}
	return err
}
