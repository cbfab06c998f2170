package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/busbooking/internal/domain"
)

// Inventory is the read model for seat availability.
type Inventory struct {
	store Store
	trips TripSource
	now   func() time.Time
}

func NewInventory(store Store, trips TripSource) *Inventory {
	return &Inventory{store: store, trips: trips, now: time.Now}
}

// Availability computes the free, booked and held seat sets for a trip.
// Time-expired holds are filtered at the query, so the answer is correct
// even when the sweeper is behind.
func (inv *Inventory) Availability(ctx context.Context, tripID uuid.UUID) (domain.Availability, error) {
	trip, err := inv.trips.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Availability{}, err
	}

	now := inv.now()
	var booked, held []int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		booked, err = inv.store.BookedSeats(gctx, tripID)
		return err
	})
	g.Go(func() error {
		var err error
		held, err = inv.store.HeldSeats(gctx, tripID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Availability{}, err
	}

	return domain.ComputeAvailability(tripID, trip.Capacity, booked, held), nil
}
