package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/busbooking/internal/domain"
)

func TestWithRetrySerializationFailure(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return domain.ErrSerializationFailure
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		return domain.ErrSerializationFailure
	})
	assert.ErrorIs(t, err, domain.ErrSerializationFailure)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryBusinessErrorsPassThrough(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func() error {
		attempts++
		return domain.ErrSeatUnavailable
	})
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
	assert.Equal(t, 1, attempts, "only serialization failures retry")
}
