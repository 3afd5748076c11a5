package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/voluntree/voluntree/internal/auth/store"
)

// HousekeepingService periodically sweeps expired sessions and
// challenges so the durable tables do not grow without bound. The
// redis challenge driver expires keys natively; its sweep is a no-op.
type HousekeepingService struct {
	Store      store.Store
	Challenges store.Challenges
	Logger     *slog.Logger
	Interval   time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. An interval of
// zero or less defaults to 1 hour.
func NewHousekeepingService(st store.Store, ch store.Challenges, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:      st,
		Challenges: ch,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// First sweep right away so a restart clears any backlog.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes expired records. The two sweeps are independent, a
// failure in one does not stop the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now()

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("expired session sweep failed", "error", err)
	}

	if err := s.Challenges.DeleteExpiredChallenges(ctx, now); err != nil {
		s.Logger.Error("expired challenge sweep failed", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
