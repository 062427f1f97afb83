package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/config"
	httptransport "github.com/example/campus-reservations/internal/http"
	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	reservationRepo := sqlite.NewReservationRepository(pool)
	sanctionRepo := sqlite.NewSanctionRepository(pool)
	directory := sqlite.NewDirectoryRepository(pool)

	guard := application.NewEligibilityGuard(sanctionRepo, reservationRepo, now)
	reservationService := application.NewReservationServiceWithLogger(reservationRepo, directory, directory, directory, guard, idGenerator, now, logger)
	sanctionService := application.NewSanctionServiceWithLogger(sanctionRepo, directory, idGenerator, now, logger)
	reconciliationService := application.NewReconciliationServiceWithLogger(reservationRepo, cfg.SanctionDays, idGenerator, now, logger)
	runner := application.NewReconciliationRunner(reconciliationService, cfg.ReconcileEvery, now, logger)

	go runner.Start(ctx)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations:    httptransport.NewReservationHandler(reservationService, logger),
		Sanctions:       httptransport.NewSanctionHandler(sanctionService, logger),
		Directory:       httptransport.NewDirectoryHandler(reservationService, logger),
		Reconciliation:  httptransport.NewReconciliationHandler(runner, logger),
		ParticipantGate: httptransport.RequireParticipant(newParticipantResolver(directory), logger),
		OperatorGate:    httptransport.RequireOperatorToken(cfg.OperatorToken, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservations API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type participantResolver struct {
	directory *sqlite.DirectoryRepository
}

func newParticipantResolver(directory *sqlite.DirectoryRepository) *participantResolver {
	return &participantResolver{directory: directory}
}

// ResolveParticipant maps a directory record onto an authenticated principal.
// Unknown and inactive participants are both rejected.
func (r *participantResolver) ResolveParticipant(ctx context.Context, participantID string) (application.Principal, error) {
	participant, err := r.directory.GetParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return application.Principal{}, application.ErrUnauthorized
		}
		return application.Principal{}, err
	}
	if !participant.Active {
		return application.Principal{}, application.ErrUnauthorized
	}
	return application.Principal{ParticipantID: participant.ID, Role: participant.Role}, nil
}
