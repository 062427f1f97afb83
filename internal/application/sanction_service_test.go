package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

type sanctionRepoStub struct {
	sanction  persistence.Sanction
	created   persistence.Sanction
	list      []persistence.Sanction
	filter    persistence.SanctionFilter
	createErr error
	deleteErr error
	deletedID string
}

func (s *sanctionRepoStub) CreateSanction(ctx context.Context, sanction persistence.Sanction) (persistence.Sanction, error) {
	if s.createErr != nil {
		return persistence.Sanction{}, s.createErr
	}
	s.created = sanction
	return sanction, nil
}

func (s *sanctionRepoStub) GetSanction(ctx context.Context, id string) (persistence.Sanction, error) {
	if s.sanction.ID == "" || s.sanction.ID != id {
		return persistence.Sanction{}, persistence.ErrNotFound
	}
	return s.sanction, nil
}

func (s *sanctionRepoStub) ListSanctions(ctx context.Context, filter persistence.SanctionFilter) ([]persistence.Sanction, error) {
	s.filter = filter
	return s.list, nil
}

func (s *sanctionRepoStub) DeleteSanction(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *sanctionRepoStub) HasActiveSanction(ctx context.Context, participantID string, date time.Time) (bool, error) {
	return false, nil
}

func newSanctionServiceFixture(repo *sanctionRepoStub) *SanctionService {
	participants := &participantDirectoryStub{participants: map[string]persistence.Participant{
		"participant-1": {ID: "participant-1", Role: booking.RoleUndergrad, Active: true},
	}}
	return NewSanctionService(repo, participants, func() string { return "sanction-1" }, fixedNow)
}

func TestSanctionService_CreateSanction_AdminOnly(t *testing.T) {
	t.Parallel()

	svc := newSanctionServiceFixture(&sanctionRepoStub{})

	_, err := svc.CreateSanction(context.Background(), CreateSanctionParams{
		Principal: Principal{ParticipantID: "participant-1", Role: booking.RoleUndergrad},
		Input: SanctionInput{
			ParticipantID: "participant-1",
			StartsOn:      time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			EndsOn:        time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
		},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSanctionService_CreateSanction_ValidatesInterval(t *testing.T) {
	t.Parallel()

	svc := newSanctionServiceFixture(&sanctionRepoStub{})

	_, err := svc.CreateSanction(context.Background(), CreateSanctionParams{
		Principal: Principal{ParticipantID: "admin-1", Role: booking.RoleAdmin},
		Input: SanctionInput{
			ParticipantID: "participant-1",
			StartsOn:      time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			EndsOn:        time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["dates"]; !ok {
		t.Fatalf("expected dates field error, got %v", vErr.FieldErrors)
	}
}

func TestSanctionService_CreateSanction_OverlapMapsToSentinel(t *testing.T) {
	t.Parallel()

	repo := &sanctionRepoStub{createErr: persistence.ErrSanctionOverlap}
	svc := newSanctionServiceFixture(repo)

	_, err := svc.CreateSanction(context.Background(), CreateSanctionParams{
		Principal: Principal{ParticipantID: "admin-1", Role: booking.RoleAdmin},
		Input: SanctionInput{
			ParticipantID: "participant-1",
			StartsOn:      time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			EndsOn:        time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
		},
	})
	if !errors.Is(err, ErrSanctionOverlap) {
		t.Fatalf("expected ErrSanctionOverlap, got %v", err)
	}
}

func TestSanctionService_ListSanctions_ScopesNonAdminsToThemselves(t *testing.T) {
	t.Parallel()

	repo := &sanctionRepoStub{}
	svc := newSanctionServiceFixture(repo)

	_, err := svc.ListSanctions(context.Background(), ListSanctionsParams{
		Principal:     Principal{ParticipantID: "participant-1", Role: booking.RoleUndergrad},
		ParticipantID: "participant-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.filter.ParticipantID != "participant-1" {
		t.Fatalf("non-admins must only see their own sanctions, filter was %+v", repo.filter)
	}
}

func TestSanctionService_GetSanction_HidesOthersEntries(t *testing.T) {
	t.Parallel()

	repo := &sanctionRepoStub{sanction: persistence.Sanction{ID: "sanction-1", ParticipantID: "participant-1"}}
	svc := newSanctionServiceFixture(repo)

	if _, err := svc.GetSanction(context.Background(), Principal{ParticipantID: "participant-2"}, "sanction-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetSanction(context.Background(), Principal{ParticipantID: "participant-1"}, "sanction-1"); err != nil {
		t.Fatalf("owner should read their own sanction, got %v", err)
	}
	if _, err := svc.GetSanction(context.Background(), Principal{ParticipantID: "admin-1", Role: booking.RoleAdmin}, "sanction-1"); err != nil {
		t.Fatalf("admin should read any sanction, got %v", err)
	}
}

func TestSanctionService_DeleteSanction_AdminOnly(t *testing.T) {
	t.Parallel()

	repo := &sanctionRepoStub{sanction: persistence.Sanction{ID: "sanction-1", ParticipantID: "participant-1"}}
	svc := newSanctionServiceFixture(repo)

	if err := svc.DeleteSanction(context.Background(), Principal{ParticipantID: "participant-1"}, "sanction-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteSanction(context.Background(), Principal{ParticipantID: "admin-1", Role: booking.RoleAdmin}, "sanction-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.deletedID != "sanction-1" {
		t.Fatalf("expected sanction-1 deleted, got %q", repo.deletedID)
	}
}
