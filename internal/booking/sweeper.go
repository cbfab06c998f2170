package booking

import (
	"context"
	"time"

	"github.com/fleetops/busbooking/internal/observability"
)

// Sweeper periodically evicts expired holds. Pure hygiene: every read
// path filters expired holds itself, so the sweeper can be skipped or
// delayed arbitrarily without breaking any invariant. It bounds table
// growth and keeps availability queries cheap.
type Sweeper struct {
	holds    *HoldManager
	interval time.Duration
	logger   observability.Logger
}

const DefaultSweepInterval = 2 * time.Minute

func NewSweeper(holds *HoldManager, interval time.Duration, logger observability.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{holds: holds, interval: interval, logger: logger}
}

// Run loops until ctx is cancelled. A failed sweep logs and waits for
// the next tick; it never blocks bookings.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepWithRetry(ctx); err != nil {
				s.logger.Error("sweep failed after retries: ", err)
			}
		}
	}
}

func (s *Sweeper) sweepWithRetry(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var n int
		n, err = s.holds.SweepExpired(ctx)
		if err == nil {
			if n > 0 {
				s.logger.WithField("count", n).Info("swept expired holds")
			}
			return nil
		}
		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
