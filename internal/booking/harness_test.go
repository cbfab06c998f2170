package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// testCore wires the four services against the in-memory store, fakes
// and a controllable clock.
type testCore struct {
	clock   *fakeClock
	store   *memStore
	trips   *fakeTrips
	locks   *fakeLock
	emitter *recorderEmitter

	inventory *Inventory
	holds     *HoldManager
	lifecycle *Lifecycle
	payments  *PaymentPolicy

	trip domain.Trip
}

func newTestCore(t *testing.T) *testCore {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	store := newMemStore()
	trips := newFakeTrips()
	locks := newFakeLock(clock.Now)
	emitter := &recorderEmitter{}
	logger := observability.NewLogger()

	trip := domain.Trip{
		ID:          uuid.New(),
		Route:       "NBO-MSA",
		Capacity:    40,
		DepartureAt: clock.Now().Add(48 * time.Hour),
		ArrivalAt:   clock.Now().Add(56 * time.Hour),
		Status:      domain.TripScheduled,
	}
	trips.put(trip)

	c := &testCore{
		clock:     clock,
		store:     store,
		trips:     trips,
		locks:     locks,
		emitter:   emitter,
		inventory: NewInventory(store, trips),
		holds:     NewHoldManager(store, trips, locks, emitter, nil, logger),
		lifecycle: NewLifecycle(store, trips, locks, emitter, nil, logger),
		payments:  NewPaymentPolicy(store, trips, nil, logger),
		trip:      trip,
	}
	c.inventory.now = clock.Now
	c.holds.now = clock.Now
	c.lifecycle.now = clock.Now
	c.payments.now = clock.Now
	return c
}

func (c *testCore) outboxEvents(eventType string) []Event {
	var out []Event
	for _, e := range c.store.committedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
