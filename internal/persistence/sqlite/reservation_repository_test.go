package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/testfixtures"
)

func seedDefaults(t *testing.T, harness *testfixtures.SQLiteHarness) (persistence.Room, persistence.Participant, persistence.Participant) {
	t.Helper()

	room := testfixtures.NewRoomFixture()
	creator := testfixtures.NewParticipantFixture()
	invitee := testfixtures.NewParticipantFixture()

	harness.SeedRoom(t, room)
	harness.SeedParticipant(t, creator)
	harness.SeedParticipant(t, invitee)

	return room, creator, invitee
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(2, 3),
	)
	reservation.Participations = append(reservation.Participations, persistence.Participation{
		ReservationID: reservation.ID,
		ParticipantID: invitee.ID,
		State:         booking.ParticipationPending,
		Attendance:    booking.AttendanceUnrecorded,
	})

	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	loaded, err := harness.Reservations.GetReservation(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("failed to load reservation: %v", err)
	}

	if loaded.RoomID != room.ID || loaded.CreatorID != creator.ID {
		t.Fatalf("unexpected reservation %+v", loaded)
	}
	if loaded.StartTurn != 2 || loaded.EndTurn != 3 {
		t.Fatalf("unexpected turn range %d-%d", loaded.StartTurn, loaded.EndTurn)
	}
	if loaded.State != booking.ReservationActive {
		t.Fatalf("expected active state, got %s", loaded.State)
	}
	if len(loaded.Participations) != 2 {
		t.Fatalf("expected two participation rows, got %d", len(loaded.Participations))
	}
}

func TestReservationRepository_GetReservation_Missing(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Reservations.GetReservation(context.Background(), "reservation-missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationRepository_RoomOverlapRejected(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	first := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(2, 4),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), first); err != nil {
		t.Fatalf("failed to create first reservation: %v", err)
	}

	// Overlapping turns in the same room by a different creator.
	second := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(invitee.ID),
		testfixtures.WithReservationTurns(4, 5),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), second); !errors.Is(err, persistence.ErrRoomConflict) {
		t.Fatalf("expected ErrRoomConflict, got %v", err)
	}

	// Adjacent turns do not overlap.
	adjacent := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(invitee.ID),
		testfixtures.WithReservationTurns(5, 6),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), adjacent); err != nil {
		t.Fatalf("adjacent reservation should succeed, got %v", err)
	}
}

func TestReservationRepository_CreatorOverlapRejected(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, _ := seedDefaults(t, harness)
	otherRoom := testfixtures.NewRoomFixture()
	harness.SeedRoom(t, otherRoom)

	first := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(2, 3),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), first); err != nil {
		t.Fatalf("failed to create first reservation: %v", err)
	}

	second := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(otherRoom.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(3, 4),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), second); !errors.Is(err, persistence.ErrCreatorConflict) {
		t.Fatalf("expected ErrCreatorConflict, got %v", err)
	}
}

func TestReservationRepository_CancelledReservationFreesSlot(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	first := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(2, 3),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), first); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	first.State = booking.ReservationCancelled
	if _, err := harness.Reservations.UpdateReservation(context.Background(), first, nil); err != nil {
		t.Fatalf("failed to cancel reservation: %v", err)
	}

	replacement := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(invitee.ID),
		testfixtures.WithReservationTurns(2, 3),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), replacement); err != nil {
		t.Fatalf("cancelled reservation must release the slot, got %v", err)
	}
}

func TestReservationRepository_UpdateReplacesRoster(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	updated, err := harness.Reservations.UpdateReservation(context.Background(), reservation, []string{creator.ID, invitee.ID})
	if err != nil {
		t.Fatalf("failed to update reservation: %v", err)
	}

	if len(updated.Participations) != 2 {
		t.Fatalf("expected two participation rows, got %d", len(updated.Participations))
	}
	for _, row := range updated.Participations {
		if row.State != booking.ParticipationConfirmed {
			t.Fatalf("replaced roster rows must be confirmed, got %+v", row)
		}
		if row.Attendance != booking.AttendanceUnrecorded {
			t.Fatalf("replaced roster rows must reset attendance, got %+v", row)
		}
	}
}

func TestReservationRepository_UpdateCannotChangeCreator(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	reservation.CreatorID = invitee.ID
	updated, err := harness.Reservations.UpdateReservation(context.Background(), reservation, nil)
	if err != nil {
		t.Fatalf("failed to update reservation: %v", err)
	}
	if updated.CreatorID != creator.ID {
		t.Fatalf("creator must be immutable, got %s", updated.CreatorID)
	}
}

func TestReservationRepository_RecordAttendance_ExactlyOnce(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, _ := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	if err := harness.Reservations.RecordAttendance(context.Background(), reservation.ID, creator.ID, booking.AttendancePresent); err != nil {
		t.Fatalf("first recording should succeed: %v", err)
	}

	err := harness.Reservations.RecordAttendance(context.Background(), reservation.ID, creator.ID, booking.AttendanceAbsent)
	if !errors.Is(err, persistence.ErrAlreadyRecorded) {
		t.Fatalf("expected ErrAlreadyRecorded, got %v", err)
	}

	loaded, err := harness.Reservations.GetReservation(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("failed to load reservation: %v", err)
	}
	if loaded.Participations[0].Attendance != booking.AttendancePresent {
		t.Fatalf("the first recording must win, got %s", loaded.Participations[0].Attendance)
	}
}

func TestReservationRepository_SetParticipationState_UnknownRow(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, _ := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	err := harness.Reservations.SetParticipationState(context.Background(), reservation.ID, "participant-ghost", booking.ParticipationConfirmed)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReservationRepository_ListElapsed(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	today := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	yesterday := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationDate(today.AddDate(0, 0, -1)),
		testfixtures.WithReservationTurns(2, 2),
	)
	// Turn 2 covers 09:00-10:00, elapsed by midday.
	endedToday := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationDate(today),
		testfixtures.WithReservationTurns(2, 2),
	)
	// Turn 10 covers 17:00-18:00, still ahead at midday.
	laterToday := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(invitee.ID),
		testfixtures.WithReservationDate(today),
		testfixtures.WithReservationTurns(10, 10),
	)

	for _, reservation := range []persistence.Reservation{yesterday, endedToday, laterToday} {
		if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
			t.Fatalf("failed to create reservation %s: %v", reservation.ID, err)
		}
	}

	elapsed, err := harness.Reservations.ListElapsed(context.Background(), today, "12:00")
	if err != nil {
		t.Fatalf("failed to list elapsed reservations: %v", err)
	}

	if len(elapsed) != 2 {
		t.Fatalf("expected two elapsed reservations, got %d", len(elapsed))
	}
	for _, reservation := range elapsed {
		if reservation.ID == laterToday.ID {
			t.Fatal("a reservation that has not ended must not be listed")
		}
		if len(reservation.Participations) == 0 {
			t.Fatalf("elapsed reservations must include participations, got %+v", reservation)
		}
	}
}

func TestReservationRepository_CloseOut_NoShow(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	reservation.Participations = append(reservation.Participations, persistence.Participation{
		ReservationID: reservation.ID,
		ParticipantID: invitee.ID,
		State:         booking.ParticipationConfirmed,
		Attendance:    booking.AttendanceUnrecorded,
	})
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	startsOn := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	ids := testfixtures.NewIDGenerator("sanction")
	applied, err := harness.Reservations.CloseOutReservation(context.Background(), persistence.CloseOut{
		ReservationID:  reservation.ID,
		State:          booking.ReservationNoShow,
		ForceAllAbsent: true,
		Sanction: &persistence.SanctionTemplate{
			StartsOn: startsOn,
			EndsOn:   startsOn.AddDate(0, 0, 60),
			Reason:   "no attendance recorded",
		},
	}, ids.NextFunc())
	if err != nil {
		t.Fatalf("close-out failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected a sanction per participant, got %d", applied)
	}

	loaded, err := harness.Reservations.GetReservation(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("failed to reload reservation: %v", err)
	}
	if loaded.State != booking.ReservationNoShow {
		t.Fatalf("expected no_show, got %s", loaded.State)
	}
	for _, row := range loaded.Participations {
		if row.Attendance != booking.AttendanceAbsent {
			t.Fatalf("expected absent attendance, got %+v", row)
		}
	}

	for _, participantID := range []string{creator.ID, invitee.ID} {
		sanctioned, err := harness.Sanctions.HasActiveSanction(context.Background(), participantID, startsOn)
		if err != nil {
			t.Fatalf("failed to check sanction: %v", err)
		}
		if !sanctioned {
			t.Fatalf("expected an active sanction for %s", participantID)
		}
	}

	// The reservation is terminal now, a second close-out is skipped.
	if _, err := harness.Reservations.CloseOutReservation(context.Background(), persistence.CloseOut{
		ReservationID:  reservation.ID,
		State:          booking.ReservationNoShow,
		ForceAllAbsent: true,
	}, ids.NextFunc()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for terminal reservation, got %v", err)
	}
}

func TestReservationRepository_CloseOut_SkipsCoveredParticipants(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, _ := seedDefaults(t, harness)

	startsOn := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	existing := testfixtures.NewSanctionFixture(
		testfixtures.WithSanctionParticipant(creator.ID),
		testfixtures.WithSanctionWindow(startsOn.AddDate(0, 0, -5), startsOn.AddDate(0, 0, 30)),
	)
	if _, err := harness.Sanctions.CreateSanction(context.Background(), existing); err != nil {
		t.Fatalf("failed to seed sanction: %v", err)
	}

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	ids := testfixtures.NewIDGenerator("sanction")
	applied, err := harness.Reservations.CloseOutReservation(context.Background(), persistence.CloseOut{
		ReservationID:  reservation.ID,
		State:          booking.ReservationNoShow,
		ForceAllAbsent: true,
		Sanction: &persistence.SanctionTemplate{
			StartsOn: startsOn,
			EndsOn:   startsOn.AddDate(0, 0, 60),
			Reason:   "no attendance recorded",
		},
	}, ids.NextFunc())
	if err != nil {
		t.Fatalf("close-out failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("a covered participant must not receive a second sanction, got %d", applied)
	}
}

func TestReservationRepository_CloseOut_FinalizedKeepsRecordedAttendance(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	reservation.Participations = append(reservation.Participations, persistence.Participation{
		ReservationID: reservation.ID,
		ParticipantID: invitee.ID,
		State:         booking.ParticipationConfirmed,
		Attendance:    booking.AttendanceUnrecorded,
	})
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}
	if err := harness.Reservations.RecordAttendance(context.Background(), reservation.ID, creator.ID, booking.AttendancePresent); err != nil {
		t.Fatalf("failed to record attendance: %v", err)
	}

	if _, err := harness.Reservations.CloseOutReservation(context.Background(), persistence.CloseOut{
		ReservationID: reservation.ID,
		State:         booking.ReservationFinalized,
	}, nil); err != nil {
		t.Fatalf("close-out failed: %v", err)
	}

	loaded, err := harness.Reservations.GetReservation(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("failed to reload reservation: %v", err)
	}
	if loaded.State != booking.ReservationFinalized {
		t.Fatalf("expected finalized, got %s", loaded.State)
	}
	for _, row := range loaded.Participations {
		switch row.ParticipantID {
		case creator.ID:
			if row.Attendance != booking.AttendancePresent {
				t.Fatalf("recorded attendance must be preserved, got %+v", row)
			}
		case invitee.ID:
			if row.Attendance != booking.AttendanceAbsent {
				t.Fatalf("unrecorded attendance must become absent, got %+v", row)
			}
		}
	}
}

func TestReservationRepository_ListReservations_ParticipantFilter(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, invitee := seedDefaults(t, harness)

	mine := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
		testfixtures.WithReservationTurns(2, 2),
	)
	other := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(invitee.ID),
		testfixtures.WithReservationTurns(5, 5),
	)
	for _, reservation := range []persistence.Reservation{mine, other} {
		if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
			t.Fatalf("failed to create reservation: %v", err)
		}
	}

	listed, err := harness.Reservations.ListReservations(context.Background(), persistence.ReservationFilter{
		ParticipantID: creator.ID,
	})
	if err != nil {
		t.Fatalf("failed to list reservations: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != mine.ID {
		t.Fatalf("expected only the creator's reservation, got %+v", listed)
	}
}

func TestReservationRepository_DeleteCascadesParticipations(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	room, creator, _ := seedDefaults(t, harness)

	reservation := testfixtures.NewReservationFixture(
		testfixtures.WithReservationRoom(room.ID),
		testfixtures.WithReservationCreator(creator.ID),
	)
	if _, err := harness.Reservations.CreateReservation(context.Background(), reservation); err != nil {
		t.Fatalf("failed to create reservation: %v", err)
	}

	if err := harness.Reservations.DeleteReservation(context.Background(), reservation.ID); err != nil {
		t.Fatalf("failed to delete reservation: %v", err)
	}

	var count int
	if err := harness.Pool.DB().QueryRow(`SELECT COUNT(*) FROM participations WHERE reservation_id = ?`, reservation.ID).Scan(&count); err != nil {
		t.Fatalf("failed to count participations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected participations to cascade, found %d rows", count)
	}
}
