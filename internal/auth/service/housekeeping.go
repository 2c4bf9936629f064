package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
)

// DefaultRetention is how long expired single-use tokens and invitations are
// kept before cleanup removes them.
const DefaultRetention = 30 * 24 * time.Hour

// HousekeepingService periodically cleans up expired database records to
// prevent unbounded growth of sessions and single-use tokens. Consumed
// tokens (verified, used) are kept as history.
//
// Expired tokens and invitations stay until Retention has passed so that
// redeeming them keeps failing as expired rather than unknown.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Clock     Clock

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval and retention. Non-positive values fall back to 1 hour and
// DefaultRetention.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes expired records once and returns the number of rows
// removed per table. Sessions go as soon as they expire; tokens and
// invitations once they have been expired for longer than Retention. Each
// deletion is independent; a failure in one does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) map[string]int64 {
	now := s.Clock.now()
	cutoff := now.Add(-s.Retention)
	s.Logger.Debug("starting housekeeping cleanup", slog.Time("token_cutoff", cutoff))

	steps := []struct {
		table  string
		before time.Time
		fn     func(context.Context, time.Time) (int64, error)
	}{
		{"sessions", now, s.Store.Sessions().DeleteExpired},
		{"email_verifications", cutoff, s.Store.EmailVerifications().DeleteExpiredPending},
		{"password_resets", cutoff, s.Store.PasswordResets().DeleteExpiredUnused},
		{"project_invitations", cutoff, s.Store.Invitations().DeleteExpiredUnused},
	}

	deleted := make(map[string]int64, len(steps))
	for _, step := range steps {
		n, err := step.fn(ctx, step.before)
		if err != nil {
			s.Logger.Error("housekeeping step failed", slog.String("table", step.table), slog.Any("error", err))
			continue
		}
		deleted[step.table] = n
		metrics.ObserveHousekeeping(step.table, n)
	}

	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("sessions", deleted["sessions"]),
		slog.Int64("email_verifications", deleted["email_verifications"]),
		slog.Int64("password_resets", deleted["password_resets"]),
		slog.Int64("project_invitations", deleted["project_invitations"]),
	)
	return deleted
}
