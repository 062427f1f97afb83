package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Reservations   *ReservationHandler
	Sanctions      *SanctionHandler
	Directory      *DirectoryHandler
	Reconciliation *ReconciliationHandler
	// ParticipantGate wraps every participant facing route, typically
	// RequireParticipant. OperatorGate wraps the reconciliation trigger,
	// typically RequireOperatorToken.
	ParticipantGate func(http.Handler) http.Handler
	OperatorGate    func(http.Handler) http.Handler
	Middleware      []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	gate := cfg.ParticipantGate
	if gate == nil {
		gate = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Reservations != nil {
		mux.Handle("/reservations", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.List(w, r)
			case http.MethodPost:
				cfg.Reservations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})))
		mux.Handle("/reservations/", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/reservations/")
			id, sub, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithReservationID(r.Context(), id))

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Reservations.Get(w, r)
				case http.MethodPut:
					cfg.Reservations.Update(w, r)
				case http.MethodDelete:
					cfg.Reservations.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "participation":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Reservations.SetParticipation(w, r)
			case "attendance":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Reservations.RecordAttendance(w, r)
			default:
				http.NotFound(w, r)
			}
		})))
	}

	if cfg.Sanctions != nil {
		mux.Handle("/sanctions", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sanctions.List(w, r)
			case http.MethodPost:
				cfg.Sanctions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})))
		mux.Handle("/sanctions/", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/sanctions/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSanctionID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Sanctions.Get(w, r)
			case http.MethodDelete:
				cfg.Sanctions.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})))
	}

	if cfg.Directory != nil {
		mux.Handle("/rooms", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Directory.ListRooms(w, r)
		})))
		mux.Handle("/turns", gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Directory.ListTurns(w, r)
		})))
	}

	if cfg.Reconciliation != nil {
		var trigger http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Reconciliation.Run(w, r)
		})
		if cfg.OperatorGate != nil {
			trigger = cfg.OperatorGate(trigger)
		}
		mux.Handle("/reconciliation/run", trigger)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
