package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/persistence"
)

type sanctionService interface {
	CreateSanction(ctx context.Context, params application.CreateSanctionParams) (persistence.Sanction, error)
	GetSanction(ctx context.Context, principal application.Principal, id string) (persistence.Sanction, error)
	ListSanctions(ctx context.Context, params application.ListSanctionsParams) ([]persistence.Sanction, error)
	DeleteSanction(ctx context.Context, principal application.Principal, id string) error
}

type SanctionHandler struct {
	service   sanctionService
	responder responder
}

func NewSanctionHandler(service sanctionService, logger *slog.Logger) *SanctionHandler {
	return &SanctionHandler{service: service, responder: newResponder(logger)}
}

func (h *SanctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sanctionRequest
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

	sanction, err := h.service.CreateSanction(r.Context(), application.CreateSanctionParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sanctionResponse{Sanction: toSanctionDTO(sanction)})
}

func (h *SanctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sanctionID, ok := SanctionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sanctionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSanctionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	sanction, err := h.service.GetSanction(r.Context(), principal, sanctionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sanctionResponse{Sanction: toSanctionDTO(sanction)})
}

func (h *SanctionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildSanctionListParams(r.URL.Query(), principal)

	sanctions, err := h.service.ListSanctions(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSanctionsResponse{Sanctions: toSanctionDTOs(sanctions)})
}

func (h *SanctionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sanctionID, ok := SanctionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sanctionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSanctionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSanction(r.Context(), principal, sanctionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type sanctionRequest struct {
	ParticipantID string `json:"participant_id"`
	StartsOn      string `json:"starts_on"`
	EndsOn        string `json:"ends_on"`
	Reason        string `json:"reason"`
}

func (r sanctionRequest) toInput() (application.SanctionInput, error) {
	startsOn, err := parseDate(r.StartsOn)
	if err != nil {
		return application.SanctionInput{}, err
	}
	endsOn, err := parseDate(r.EndsOn)
	if err != nil {
		return application.SanctionInput{}, err
	}
	return application.SanctionInput{
		ParticipantID: strings.TrimSpace(r.ParticipantID),
		StartsOn:      startsOn,
		EndsOn:        endsOn,
		Reason:        strings.TrimSpace(r.Reason),
	}, nil
}

type sanctionResponse struct {
	Sanction sanctionDTO `json:"sanction"`
}

type listSanctionsResponse struct {
	Sanctions []sanctionDTO `json:"sanctions"`
}

type sanctionDTO struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participant_id"`
	StartsOn      string `json:"starts_on"`
	EndsOn        string `json:"ends_on"`
	Reason        string `json:"reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toSanctionDTO(sanction persistence.Sanction) sanctionDTO {
	return sanctionDTO{
		ID:            sanction.ID,
		ParticipantID: sanction.ParticipantID,
		StartsOn:      sanction.StartsOn.Format(dateLayout),
		EndsOn:        sanction.EndsOn.Format(dateLayout),
		Reason:        sanction.Reason,
		CreatedAt:     sanction.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toSanctionDTOs(sanctions []persistence.Sanction) []sanctionDTO {
	if len(sanctions) == 0 {
		return nil
	}
	out := make([]sanctionDTO, 0, len(sanctions))
	for _, sanction := range sanctions {
		out = append(out, toSanctionDTO(sanction))
	}
	return out
}

func buildSanctionListParams(values url.Values, principal application.Principal) application.ListSanctionsParams {
	params := application.ListSanctionsParams{Principal: principal}

	if participantID := strings.TrimSpace(values.Get("participant_id")); participantID != "" {
		params.ParticipantID = participantID
	}
	if activeOn := strings.TrimSpace(values.Get("active_on")); activeOn != "" {
		if ts, err := time.Parse(dateLayout, activeOn); err == nil {
			params.ActiveOn = &ts
		}
	}

	return params
}
