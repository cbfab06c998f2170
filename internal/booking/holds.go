package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

// HoldManager is the only writer of seat-hold records.
type HoldManager struct {
	store   Store
	trips   TripSource
	locks   SeatLock
	emitter Emitter
	audit   Auditor
	logger  observability.Logger
	now     func() time.Time
}

func NewHoldManager(store Store, trips TripSource, locks SeatLock, emitter Emitter, audit Auditor, logger observability.Logger) *HoldManager {
	return &HoldManager{
		store:   store,
		trips:   trips,
		locks:   locks,
		emitter: emitter,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
	}
}

// Acquire places a short-lived hold on one seat. The check-then-insert
// is serialized by the partial unique index on ACTIVE holds: two racers
// both reach the insert, exactly one row lands, the loser gets
// domain.ErrSeatUnavailable with no partial state behind.
func (m *HoldManager) Acquire(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID, ttl time.Duration) (domain.SeatHold, error) {
	trip, err := m.trips.GetTrip(ctx, tripID)
	if err != nil {
		return domain.SeatHold{}, err
	}
	if seatNo < 1 || seatNo > trip.Capacity {
		return domain.SeatHold{}, errors.Wrapf(domain.ErrInvalidInput, "seat %d out of range 1..%d", seatNo, trip.Capacity)
	}
	now := m.now()
	if !trip.Bookable(now) {
		return domain.SeatHold{}, errors.Wrapf(domain.ErrTripNotBookable, "trip %s is %s", tripID, trip.Status)
	}

	hold := domain.NewSeatHold(tripID, seatNo, holderID, ttl, now)

	// Advisory redis lock in front of the constraint. A redis outage
	// must not block sales, so errors only log.
	locked, err := m.locks.Lock(ctx, tripID, seatNo, holderID, hold.ExpiresAt.Sub(now))
	if err != nil {
		m.logger.WithField("trip_id", tripID).Warn("seat lock unavailable, relying on db constraint: ", err)
	} else if !locked {
		return domain.SeatHold{}, errors.Wrapf(domain.ErrSeatUnavailable, "seat %d on trip %s is held", seatNo, tripID)
	}

	err = withRetry(ctx, func() error {
		return m.store.WithTx(ctx, func(tx Tx) error {
			booked, err := tx.SeatBooked(ctx, tripID, seatNo)
			if err != nil {
				return err
			}
			if booked {
				return errors.Wrapf(domain.ErrSeatUnavailable, "seat %d on trip %s is booked", seatNo, tripID)
			}
			return m.insertHold(ctx, tx, hold, now)
		})
	})
	if err != nil {
		if uerr := m.locks.Unlock(ctx, tripID, seatNo); uerr != nil {
			m.logger.Warn("failed to release seat lock: ", uerr)
		}
		return domain.SeatHold{}, err
	}

	observability.HoldsAcquired.Inc()
	m.recordAudit(ctx, "hold.acquired", holderID, map[string]any{
		"hold_id":    hold.ID,
		"trip_id":    tripID,
		"seat_no":    seatNo,
		"expires_at": hold.ExpiresAt.Format(time.RFC3339),
	})
	return hold, nil
}

// insertHold attempts the conflict-detected insert. If the insert loses
// to an ACTIVE row that is already time-expired, the stale row is
// flipped to EXPIRED and the insert is tried once more; the sweeper is
// a hygiene task, never a prerequisite.
func (m *HoldManager) insertHold(ctx context.Context, tx Tx, hold domain.SeatHold, now time.Time) error {
	err := tx.InsertHold(ctx, hold)
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}
	flipped, ferr := tx.ExpireStaleHold(ctx, hold.TripID, hold.SeatNo, now)
	if ferr != nil {
		return ferr
	}
	if !flipped {
		return errors.Wrapf(domain.ErrSeatUnavailable, "seat %d on trip %s is held", hold.SeatNo, hold.TripID)
	}
	if err := tx.InsertHold(ctx, hold); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return errors.Wrap(domain.ErrSeatUnavailable, "lost takeover race")
		}
		return err
	}
	return nil
}

// Release drops the caller's hold on a seat. Idempotent: releasing an
// absent, expired or already-released hold is a no-op so retried client
// calls never surface errors.
func (m *HoldManager) Release(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID) error {
	var released bool
	err := withRetry(ctx, func() error {
		return m.store.WithTx(ctx, func(tx Tx) error {
			var err error
			released, err = tx.ReleaseHold(ctx, tripID, seatNo, holderID)
			return err
		})
	})
	if err != nil {
		return err
	}
	if released {
		if uerr := m.locks.Unlock(ctx, tripID, seatNo); uerr != nil {
			m.logger.Warn("failed to release seat lock: ", uerr)
		}
		m.recordAudit(ctx, "hold.released", holderID, map[string]any{
			"trip_id": tripID,
			"seat_no": seatNo,
		})
	}
	return nil
}

// ReleaseByID releases a hold addressed by id, for the DELETE route.
// Unknown ids are a no-op for the same idempotency reason.
func (m *HoldManager) ReleaseByID(ctx context.Context, holdID, holderID uuid.UUID) error {
	hold, err := m.store.HoldByID(ctx, holdID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if hold.HolderID != holderID {
		// Foreign holds are invisible to the caller, same outcome as absent.
		return nil
	}
	return m.Release(ctx, hold.TripID, hold.SeatNo, holderID)
}

// SweepExpired evicts every hold whose expiry has passed and returns the
// eviction count. Safe to run concurrently with Acquire and Release: it
// only touches rows matching the expiry predicate.
func (m *HoldManager) SweepExpired(ctx context.Context) (int, error) {
	expired, err := m.store.ExpireHolds(ctx, m.now())
	if err != nil {
		return 0, err
	}
	for _, hold := range expired {
		if err := m.locks.Unlock(ctx, hold.TripID, hold.SeatNo); err != nil {
			m.logger.Warn("failed to clear seat lock for expired hold: ", err)
		}
		if err := m.emitter.EmitBookingEvent(ctx, EventHoldExpired, map[string]any{
			"hold_id": hold.ID,
			"trip_id": hold.TripID,
			"seat_no": hold.SeatNo,
		}); err != nil {
			m.logger.Warn("failed to emit hold.expired: ", err)
		}
	}
	observability.HoldsSwept.Add(float64(len(expired)))
	return len(expired), nil
}

func (m *HoldManager) recordAudit(ctx context.Context, action string, actor uuid.UUID, data map[string]any) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(ctx, action, actor, data); err != nil {
		m.logger.Warn("audit record failed: ", err)
	}
}
