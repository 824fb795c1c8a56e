package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/webauth/internal/store"
)

// ExpiredTokenPurger removes cached tokens whose expiry has passed.
// Implemented by store.TokenStoreAdapter and identity.MemoryTokenStore.
type ExpiredTokenPurger interface {
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// HousekeepingService periodically purges expired cached tokens so a long
// running bridge does not accumulate dead records.
type HousekeepingService struct {
	Purger   ExpiredTokenPurger
	Logger   *slog.Logger
	Interval time.Duration

	now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(purger ExpiredTokenPurger, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Purger:   purger,
		Logger:   logger,
		Interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and blocks until it has finished
// any in-progress purge.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	if !s.purge() {
		<-s.stopCh
		return
	}

	for {
		select {
		case <-ticker.C:
			if !s.purge() {
				<-s.stopCh
				return
			}
		case <-s.stopCh:
			return
		}
	}
}

// purge runs one pass and reports whether further passes are worthwhile.
func (s *HousekeepingService) purge() bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	removed, err := s.Purger.DeleteExpiredTokens(ctx, s.now())
	switch {
	case errors.Is(err, store.ErrUnsupported):
		s.Logger.Info("token store cannot purge expired tokens, housekeeping idle")
		return false
	case err != nil:
		s.Logger.Error("failed to delete expired tokens", "error", err)
	default:
		s.Logger.Debug("housekeeping purge completed", "removed", removed)
	}
	return true
}
