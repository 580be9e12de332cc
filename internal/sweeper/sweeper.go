// Package sweeper runs the portal's periodic maintenance jobs: expiring
// unpaid document requests and sending scholarship renewal reminders.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/campus-portal/internal/logging"
)

// PaymentExpirer moves overdue unpaid requests to payment_expired.
type PaymentExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// RenewalReminder emails recipients whose awards expire soon.
type RenewalReminder interface {
	SendRenewalReminders(ctx context.Context, withinDays int) (int, error)
}

// Config holds the job schedules in standard cron syntax or cron descriptors
// such as "@every 15m".
type Config struct {
	PaymentSpec        string
	ReminderSpec       string
	ReminderWindowDays int
	Location           *time.Location
	JobTimeout         time.Duration
}

// ErrNoJobs is returned when neither job has a schedule.
var ErrNoJobs = errors.New("sweeper: no jobs configured")

// Sweeper schedules the maintenance jobs on a cron.
type Sweeper struct {
	cron      *cron.Cron
	payments  PaymentExpirer
	reminders RenewalReminder
	cfg       Config
	logger    *slog.Logger

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	entries map[string]cron.EntryID
}

// New validates the schedules and registers the jobs. A job whose service
// or spec is missing is skipped.
func New(payments PaymentExpirer, reminders RenewalReminder, cfg Config, logger *slog.Logger) (*Sweeper, error) {
	logger = logging.OrDefault(logger).With("component", "sweeper")
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.ReminderWindowDays <= 0 {
		cfg.ReminderWindowDays = 30
	}

	adapter := cronLogger{logger: logger}
	s := &Sweeper{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		payments:  payments,
		reminders: reminders,
		cfg:       cfg,
		logger:    logger,
		baseCtx:   context.Background(),
		entries:   make(map[string]cron.EntryID),
	}

	if payments != nil && cfg.PaymentSpec != "" {
		if err := s.schedule("payment_expiry", cfg.PaymentSpec, func(ctx context.Context) {
			_, _ = s.RunPaymentSweep(ctx)
		}); err != nil {
			return nil, err
		}
	}
	if reminders != nil && cfg.ReminderSpec != "" {
		if err := s.schedule("renewal_reminders", cfg.ReminderSpec, func(ctx context.Context) {
			_, _ = s.RunReminderSweep(ctx)
		}); err != nil {
			return nil, err
		}
	}
	if len(s.entries) == 0 {
		return nil, ErrNoJobs
	}
	return s, nil
}

func (s *Sweeper) schedule(name, spec string, job func(context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.context(), s.cfg.JobTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("sweeper: schedule %s %q: %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Sweeper) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// Start runs the cron in the background until Stop is called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "sweeper started", "jobs", len(s.entries))
}

// Stop halts scheduling and waits for running jobs, or until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns when the named job runs next. The job names are
// "payment_expiry" and "renewal_reminders".
func (s *Sweeper) Next(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// RunPaymentSweep expires overdue requests once.
func (s *Sweeper) RunPaymentSweep(ctx context.Context) (int, error) {
	start := time.Now()
	expired, err := s.payments.ExpireOverdue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment sweep failed", "error", err, "expired", expired)
		return expired, err
	}
	s.logger.InfoContext(ctx, "payment sweep finished", "expired", expired, "duration", time.Since(start))
	return expired, nil
}

// RunReminderSweep sends renewal reminders once.
func (s *Sweeper) RunReminderSweep(ctx context.Context) (int, error) {
	sent, err := s.reminders.SendRenewalReminders(ctx, s.cfg.ReminderWindowDays)
	if err != nil {
		s.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
		return sent, err
	}
	s.logger.InfoContext(ctx, "reminder sweep finished", "sent", sent, "window_days", s.cfg.ReminderWindowDays)
	return sent, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
