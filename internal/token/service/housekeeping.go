package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerline/shopauth/internal/token/store"
)

// HousekeepingService periodically prunes expired refresh token records and
// revocation tombstones older than the retention window, keeping both
// tables bounded.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Clock    Clock
	Interval time.Duration

	// Retention is how long revocation tombstones outlive their RevokedAt.
	// It must exceed the longest token validity, otherwise a revoked token
	// could outlive its own tombstone.
	Retention time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Interval defaults
// to 1 hour, retention to 30 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "retention", s.Retention)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs the actual deletion of expired records.
// Each deletion is independent; a failure in one does not stop the other.
func (s *HousekeepingService) Cleanup() {
	ctx := context.Background()
	now := s.now()

	if n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Debug("deleted expired refresh tokens", "count", n)
	}

	cutoff := now.Add(-s.Retention)
	if n, err := s.Store.RevokedTokens().DeleteRevocationsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to prune revocation tombstones", "error", err)
	} else if n > 0 {
		s.Logger.Debug("pruned revocation tombstones", "count", n, "cutoff", cutoff)
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
