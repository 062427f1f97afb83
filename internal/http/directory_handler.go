package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/campus-reservations/internal/persistence"
)

type directoryService interface {
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	ListTurns(ctx context.Context) ([]persistence.Turn, error)
}

// DirectoryHandler serves the read-only room and turn catalogs.
type DirectoryHandler struct {
	service   directoryService
	responder responder
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, responder: newResponder(logger)}
}

func (h *DirectoryHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: out})
}

func (h *DirectoryHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	turns, err := h.service.ListTurns(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]turnDTO, 0, len(turns))
	for _, turn := range turns {
		out = append(out, turnDTO{
			ID:       turn.ID,
			Ordinal:  turn.Ordinal,
			StartsAt: turn.StartsAt,
			EndsAt:   turn.EndsAt,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTurnsResponse{Turns: out})
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Category string `json:"category"`
}

func toRoomDTO(room persistence.Room) roomDTO {
	return roomDTO{
		ID:       room.ID,
		Name:     room.Name,
		Capacity: room.Capacity,
		Category: string(room.Category),
	}
}

type listTurnsResponse struct {
	Turns []turnDTO `json:"turns"`
}

type turnDTO struct {
	ID       string `json:"id"`
	Ordinal  int    `json:"ordinal"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}
