package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/busbooking/internal/domain"
)

func TestAcquireHold(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	holder := uuid.New()

	hold, err := c.holds.Acquire(ctx, c.trip.ID, 5, holder, domain.DefaultHoldTTL)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, hold.Status)
	assert.Equal(t, 5, hold.SeatNo)
	assert.Equal(t, c.clock.Now().Add(domain.DefaultHoldTTL), hold.ExpiresAt)

	avail, err := c.inventory.Availability(ctx, c.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, avail.Held)
	assert.NotContains(t, avail.Available, 5)
	assert.Len(t, avail.Available, c.trip.Capacity-1)
}

func TestAcquireValidation(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	holder := uuid.New()

	_, err := c.holds.Acquire(ctx, uuid.New(), 1, holder, 0)
	assert.ErrorIs(t, err, domain.ErrTripNotFound)

	_, err = c.holds.Acquire(ctx, c.trip.ID, 0, holder, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = c.holds.Acquire(ctx, c.trip.ID, c.trip.Capacity+1, holder, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c.clock.Set(c.trip.DepartureAt.Add(time.Minute))
	_, err = c.holds.Acquire(ctx, c.trip.ID, 1, holder, 0)
	assert.ErrorIs(t, err, domain.ErrTripNotBookable)
}

func TestAcquireConflict(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	_, err := c.holds.Acquire(ctx, c.trip.ID, 7, uuid.New(), domain.DefaultHoldTTL)
	require.NoError(t, err)

	_, err = c.holds.Acquire(ctx, c.trip.ID, 7, uuid.New(), domain.DefaultHoldTTL)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
}

func TestAcquireRace(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	const racers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.holds.Acquire(ctx, c.trip.ID, 12, uuid.New(), domain.DefaultHoldTTL)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, domain.ErrSeatUnavailable):
				losses++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one racer must win the seat")
	assert.Equal(t, racers-1, losses)

	held, err := c.store.HeldSeats(ctx, c.trip.ID, c.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{12}, held)
}

func TestReleaseIdempotent(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	holder := uuid.New()

	_, err := c.holds.Acquire(ctx, c.trip.ID, 3, holder, domain.DefaultHoldTTL)
	require.NoError(t, err)

	require.NoError(t, c.holds.Release(ctx, c.trip.ID, 3, holder))
	require.NoError(t, c.holds.Release(ctx, c.trip.ID, 3, holder))
	require.NoError(t, c.holds.Release(ctx, c.trip.ID, 9, holder), "releasing a seat never held is a no-op")

	// Seat is free again for someone else.
	_, err = c.holds.Acquire(ctx, c.trip.ID, 3, uuid.New(), domain.DefaultHoldTTL)
	assert.NoError(t, err)
}

func TestReleaseForeignHoldIsNoOp(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	owner := uuid.New()

	hold, err := c.holds.Acquire(ctx, c.trip.ID, 4, owner, domain.DefaultHoldTTL)
	require.NoError(t, err)

	require.NoError(t, c.holds.Release(ctx, c.trip.ID, 4, uuid.New()))
	require.NoError(t, c.holds.ReleaseByID(ctx, hold.ID, uuid.New()))
	require.NoError(t, c.holds.ReleaseByID(ctx, uuid.New(), owner))

	got, err := c.store.HoldByID(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status, "foreign releases must not touch the hold")
}

func TestReleaseByID(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()
	holder := uuid.New()

	hold, err := c.holds.Acquire(ctx, c.trip.ID, 8, holder, domain.DefaultHoldTTL)
	require.NoError(t, err)

	require.NoError(t, c.holds.ReleaseByID(ctx, hold.ID, holder))

	got, err := c.store.HoldByID(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, got.Status)
}

func TestExpiredHoldTakeover(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	first, err := c.holds.Acquire(ctx, c.trip.ID, 6, uuid.New(), domain.DefaultHoldTTL)
	require.NoError(t, err)

	// Past expiry but before any sweep: the row still says ACTIVE.
	c.clock.Advance(domain.DefaultHoldTTL + time.Second)

	avail, err := c.inventory.Availability(ctx, c.trip.ID)
	require.NoError(t, err)
	assert.Empty(t, avail.Held, "expired hold must not count as held")
	assert.Contains(t, avail.Available, 6)

	second, err := c.holds.Acquire(ctx, c.trip.ID, 6, uuid.New(), domain.DefaultHoldTTL)
	require.NoError(t, err, "acquire must take over a stale ACTIVE row without waiting for the sweeper")
	assert.Equal(t, domain.HoldActive, second.Status)

	got, err := c.store.HoldByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldExpired, got.Status)
}

func TestSweepExpired(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	_, err := c.holds.Acquire(ctx, c.trip.ID, 1, uuid.New(), domain.AgentHoldTTL)
	require.NoError(t, err)
	_, err = c.holds.Acquire(ctx, c.trip.ID, 2, uuid.New(), domain.AgentHoldTTL)
	require.NoError(t, err)
	keeper, err := c.holds.Acquire(ctx, c.trip.ID, 3, uuid.New(), domain.DefaultHoldTTL)
	require.NoError(t, err)

	c.clock.Advance(domain.AgentHoldTTL + time.Second)

	n, err := c.holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, c.emitter.named(EventHoldExpired), 2)

	held, err := c.store.HeldSeats(ctx, c.trip.ID, c.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, held)

	got, err := c.store.HoldByID(ctx, keeper.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status)

	n, err = c.holds.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep finds nothing")
}
