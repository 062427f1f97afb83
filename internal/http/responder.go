package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/campus-reservations/internal/application"
)

var (
	errBadRequestBody         = errors.New("the request body is malformed")
	errInvalidReservationID   = errors.New("invalid reservation id")
	errInvalidSanctionID      = errors.New("invalid sanction id")
	errMissingParticipantID   = errors.New("the X-Participant-ID header is required")
	errMissingOperatorToken   = errors.New("a valid operator token is required")
	errUnknownParticipant     = errors.New("unknown or inactive participant")
	errInvalidReservationDate = errors.New("date must use the YYYY-MM-DD format")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	if status, code, message, ok := classifyServiceError(err); ok {
		r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
}

func classifyServiceError(err error) (status int, code, message string, ok bool) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "the requested resource was not found", true
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, "AUTH_FORBIDDEN", "you are not allowed to perform this operation", true
	case errors.Is(err, application.ErrNotInvited):
		return http.StatusForbidden, "NOT_INVITED", "you are not a participant of this reservation", true
	case errors.Is(err, application.ErrSanctionActive):
		return http.StatusForbidden, "SANCTION_ACTIVE", "an active sanction blocks this reservation", true
	case errors.Is(err, application.ErrRoleNotAuthorized):
		return http.StatusForbidden, "ROLE_NOT_AUTHORIZED", "your role may not reserve this room category", true
	case errors.Is(err, application.ErrCapacityExceeded):
		return http.StatusConflict, "CAPACITY_EXCEEDED", "the participant list exceeds the room capacity", true
	case errors.Is(err, application.ErrDailyQuotaExceeded):
		return http.StatusConflict, "DAILY_QUOTA_EXCEEDED", "the daily reservation hour limit was reached", true
	case errors.Is(err, application.ErrWeeklyQuotaExceeded):
		return http.StatusConflict, "WEEKLY_QUOTA_EXCEEDED", "the weekly reservation limit was reached", true
	case errors.Is(err, application.ErrRoomUnavailable):
		return http.StatusConflict, "ROOM_UNAVAILABLE", "the room is already reserved for the requested turns", true
	case errors.Is(err, application.ErrParticipantDoubleBooked):
		return http.StatusConflict, "DOUBLE_BOOKED", "an overlapping reservation already exists for this participant", true
	case errors.Is(err, application.ErrAttendanceRecorded):
		return http.StatusConflict, "ATTENDANCE_RECORDED", "attendance was already recorded for this participant", true
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", "the reservation state does not allow this change", true
	case errors.Is(err, application.ErrSanctionOverlap):
		return http.StatusConflict, "SANCTION_OVERLAP", "an overlapping sanction already exists for this participant", true
	}
	return 0, "", "", false
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
