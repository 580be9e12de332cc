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

	"github.com/example/campus-portal/internal/application"
	"github.com/example/campus-portal/internal/config"
	"github.com/example/campus-portal/internal/documents"
	httptransport "github.com/example/campus-portal/internal/http"
	"github.com/example/campus-portal/internal/notify"
	"github.com/example/campus-portal/internal/persistence/sqlite"
	"github.com/example/campus-portal/internal/recurrence"
	"github.com/example/campus-portal/internal/sweeper"
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("portal exited with error", "error", err)
		os.Exit(1)
	}
}

// portal holds the wired services and the HTTP handler. Only the webhook,
// health check and sweeps reach the services from outside the process; events
// has no route and is configured here so its engine follows PORTAL_TIMEZONE
// and PORTAL_MAX_OCCURRENCES for in-process callers.
type portal struct {
	store        *sqlite.Store
	requests     *application.DocumentRequestService
	scholarships *application.ScholarshipService
	events       *application.EventService
	sweeper      *sweeper.Sweeper
	handler      http.Handler
}

// newPortal opens and migrates storage and wires every component. The
// caller owns the returned store and must close it.
func newPortal(ctx context.Context, cfg config.Config, logger *slog.Logger) (*portal, error) {
	store, err := sqlite.Open(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	now := time.Now
	notifier := notify.Multi{notify.NewLogSender(logger)}

	requests := application.NewDocumentRequestService(application.DocumentRequestDeps{
		Requests:        store.Requests,
		Payments:        store.Payments,
		Notifier:        notifier,
		Renderer:        documents.NewRegistry(cfg.InstitutionName, cfg.RegistrarName, cfg.Location),
		StaffEmails:     cfg.StaffEmails,
		Location:        cfg.Location,
		IDGenerator:     uuid.NewString,
		SuffixGenerator: uuid.NewString,
		Now:             now,
		Logger:          logger,
	})
	scholarships := application.NewScholarshipService(application.ScholarshipDeps{
		Recipients:  store.Recipients,
		Notifier:    notifier,
		Location:    cfg.Location,
		IDGenerator: uuid.NewString,
		Now:         now,
		Logger:      logger,
	})
	events := application.NewEventService(application.EventServiceDeps{
		Events:         store.Events,
		Engine:         recurrence.NewEngine(cfg.Location, now).WithLimit(cfg.MaxOccurrences),
		IDGenerator:    uuid.NewString,
		Now:            now,
		Logger:         logger,
		MaxOccurrences: cfg.MaxOccurrences,
	})

	sweeps, err := sweeper.New(requests, scholarships, sweeper.Config{
		PaymentSpec:        cfg.PaymentSweep,
		ReminderSpec:       cfg.ReminderSweep,
		ReminderWindowDays: cfg.ReminderWindowDays,
		Location:           cfg.Location,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Webhooks:      httptransport.NewPaymentWebhookHandler(requests, logger),
		Health:        httptransport.NewHealthHandler(store, logger),
		WebhookSecret: cfg.WebhookSecret,
		Logger:        logger,
	})

	return &portal{
		store:        store,
		requests:     requests,
		scholarships: scholarships,
		events:       events,
		sweeper:      sweeps,
		handler:      httptransport.RequestLogger(logger)(router),
	}, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	p, err := newPortal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	// Catch up on requests that lapsed while the portal was down.
	if _, err := p.sweeper.RunPaymentSweep(ctx); err != nil {
		logger.Warn("initial payment sweep failed", "error", err)
	}
	p.sweeper.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := p.sweeper.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop sweeper", "error", err)
		}
	}()

	logger.Info("campus portal listening", "addr", server.Addr, "timezone", cfg.Location.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-stopped
	return nil
}
