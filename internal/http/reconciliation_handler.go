package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/campus-reservations/internal/application"
)

type reconciliationTrigger interface {
	RunOnce(ctx context.Context) (application.ReconciliationSummary, bool)
}

// ReconciliationHandler exposes a manual trigger for the reconciliation sweep.
// The route is expected to sit behind RequireOperatorToken.
type ReconciliationHandler struct {
	runner    reconciliationTrigger
	responder responder
	logger    *slog.Logger
}

func NewReconciliationHandler(runner reconciliationTrigger, logger *slog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{runner: runner, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "reconciliation_handler", "run")

	summary, ran := h.runner.RunOnce(r.Context())
	if !ran {
		logger.Warn("manual sweep not started")
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "SWEEP_IN_FLIGHT",
			Message:   "a reconciliation sweep is already running",
		})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reconciliationSummaryDTO{
		Examined:         summary.Examined,
		Finalized:        summary.Finalized,
		NoShows:          summary.NoShows,
		SanctionsApplied: summary.SanctionsApplied,
		Failures:         summary.Failures,
	})
}

type reconciliationSummaryDTO struct {
	Examined         int `json:"examined"`
	Finalized        int `json:"finalized"`
	NoShows          int `json:"no_shows"`
	SanctionsApplied int `json:"sanctions_applied"`
	Failures         int `json:"failures"`
}
