package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

const dateLayout = "2006-01-02"

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (persistence.Reservation, error)
	GetReservation(ctx context.Context, id string) (persistence.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]persistence.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (persistence.Reservation, error)
	DeleteReservation(ctx context.Context, principal application.Principal, reservationID string) error
	SetParticipation(ctx context.Context, params application.SetParticipationParams) error
	RecordAttendance(ctx context.Context, params application.RecordAttendanceParams) error
}

type ReservationHandler struct {
	service   reservationService
	responder responder
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{service: service, responder: newResponder(logger)}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{
		Reservations: toReservationDTOs(reservations),
	})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req reservationPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Patch:         patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteReservation(r.Context(), principal, reservationID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) SetParticipation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req participationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.SetParticipation(r.Context(), application.SetParticipationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Accepted:      req.Accepted,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID == "" {
		participantID = principal.ParticipantID
	}

	if err := h.service.RecordAttendance(r.Context(), application.RecordAttendanceParams{
		Principal:     principal,
		ReservationID: reservationID,
		ParticipantID: participantID,
		Present:       req.Present,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type reservationRequest struct {
	RoomID         string   `json:"room_id"`
	Date           string   `json:"date"`
	StartTurn      int      `json:"start_turn"`
	EndTurn        int      `json:"end_turn"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (r reservationRequest) toInput() (application.ReservationInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return application.ReservationInput{}, err
	}
	return application.ReservationInput{
		RoomID:         strings.TrimSpace(r.RoomID),
		Date:           date,
		StartTurn:      r.StartTurn,
		EndTurn:        r.EndTurn,
		ParticipantIDs: append([]string(nil), r.ParticipantIDs...),
	}, nil
}

type reservationPatchRequest struct {
	RoomID         *string  `json:"room_id"`
	Date           *string  `json:"date"`
	StartTurn      *int     `json:"start_turn"`
	EndTurn        *int     `json:"end_turn"`
	State          *string  `json:"state"`
	ParticipantIDs []string `json:"participant_ids"`
}

func (r reservationPatchRequest) toPatch() (application.ReservationPatch, error) {
	patch := application.ReservationPatch{
		RoomID:    r.RoomID,
		StartTurn: r.StartTurn,
		EndTurn:   r.EndTurn,
	}
	if r.Date != nil {
		date, err := parseDate(*r.Date)
		if err != nil {
			return application.ReservationPatch{}, err
		}
		patch.Date = &date
	}
	if r.State != nil {
		state := booking.ReservationState(strings.TrimSpace(*r.State))
		if !state.Valid() {
			return application.ReservationPatch{}, errors.New("unknown reservation state")
		}
		patch.State = &state
	}
	if r.ParticipantIDs != nil {
		patch.ParticipantIDs = append([]string(nil), r.ParticipantIDs...)
	}
	return patch, nil
}

type participationRequest struct {
	Accepted bool `json:"accepted"`
}

type attendanceRequest struct {
	ParticipantID string `json:"participant_id"`
	Present       bool   `json:"present"`
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errInvalidReservationDate
	}
	return date, nil
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID             string             `json:"id"`
	RoomID         string             `json:"room_id"`
	Date           string             `json:"date"`
	StartTurn      int                `json:"start_turn"`
	EndTurn        int                `json:"end_turn"`
	State          string             `json:"state"`
	CreatorID      string             `json:"creator_id"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
	Participations []participationDTO `json:"participations"`
}

type participationDTO struct {
	ParticipantID string `json:"participant_id"`
	State         string `json:"state"`
	Attendance    string `json:"attendance"`
}

func toReservationDTO(reservation persistence.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:        reservation.ID,
		RoomID:    reservation.RoomID,
		Date:      reservation.Date.Format(dateLayout),
		StartTurn: reservation.StartTurn,
		EndTurn:   reservation.EndTurn,
		State:     string(reservation.State),
		CreatorID: reservation.CreatorID,
		CreatedAt: reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, participation := range reservation.Participations {
		dto.Participations = append(dto.Participations, participationDTO{
			ParticipantID: participation.ParticipantID,
			State:         string(participation.State),
			Attendance:    string(participation.Attendance),
		})
	}
	return dto
}

func toReservationDTOs(reservations []persistence.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListReservationsParams {
	params := application.ListReservationsParams{Principal: principal}

	if mine := strings.TrimSpace(values.Get("mine")); mine == "true" || mine == "1" {
		params.Mine = true
	}
	if roomID := strings.TrimSpace(values.Get("room_id")); roomID != "" {
		params.RoomID = roomID
	}
	if day := strings.TrimSpace(values.Get("date")); day != "" {
		if ts, err := time.Parse(dateLayout, day); err == nil {
			params.Date = &ts
		}
	}
	if from := strings.TrimSpace(values.Get("date_from")); from != "" {
		if ts, err := time.Parse(dateLayout, from); err == nil {
			params.DateFrom = &ts
		}
	}
	if to := strings.TrimSpace(values.Get("date_to")); to != "" {
		if ts, err := time.Parse(dateLayout, to); err == nil {
			params.DateTo = &ts
		}
	}

	return params
}
