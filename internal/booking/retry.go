package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fleetops/busbooking/internal/domain"
)

const txAttempts = 3

// withRetry re-runs fn on serialization conflicts with exponential
// backoff. Business-rule failures and other errors return immediately;
// retrying them would never change the outcome.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		backoff := time.Duration(1<<attempt) * 25 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
