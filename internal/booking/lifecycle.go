package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

// Lifecycle owns the booking state machine. It is the only writer of
// booking rows apart from PaymentPolicy.
type Lifecycle struct {
	store   Store
	trips   TripSource
	locks   SeatLock
	emitter Emitter
	audit   Auditor
	logger  observability.Logger
	now     func() time.Time
}

func NewLifecycle(store Store, trips TripSource, locks SeatLock, emitter Emitter, audit Auditor, logger observability.Logger) *Lifecycle {
	return &Lifecycle{
		store:   store,
		trips:   trips,
		locks:   locks,
		emitter: emitter,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
	}
}

type CreateParams struct {
	TripID         uuid.UUID
	SeatNo         int
	PassengerID    uuid.UUID
	PassengerName  string
	PassengerPhone string
	Amount         float64
	// HolderID identifies the hold being converted. Zero for walk-up
	// bookings with no prior hold.
	HolderID uuid.UUID
	// Confirmed creates the booking directly in CONFIRMED, for callers
	// that bundle payment with creation.
	Confirmed bool
}

// Create converts a hold into a booking, or books a free seat outright.
// The booking insert and the hold consumption commit in one transaction;
// a hold owned by someone else and still unexpired blocks the seat.
func (l *Lifecycle) Create(ctx context.Context, p CreateParams) (domain.Booking, error) {
	trip, err := l.trips.GetTrip(ctx, p.TripID)
	if err != nil {
		return domain.Booking{}, err
	}
	if p.SeatNo < 1 || p.SeatNo > trip.Capacity {
		return domain.Booking{}, errors.Wrapf(domain.ErrInvalidInput, "seat %d out of range 1..%d", p.SeatNo, trip.Capacity)
	}
	if p.Amount < 0 {
		return domain.Booking{}, errors.Wrap(domain.ErrInvalidInput, "negative amount")
	}
	now := l.now()
	if !trip.Bookable(now) {
		return domain.Booking{}, errors.Wrapf(domain.ErrTripNotBookable, "trip %s is %s, departs %s", trip.ID, trip.Status, trip.DepartureAt.Format(time.RFC3339))
	}

	b := domain.NewBooking(p.TripID, p.SeatNo, p.PassengerID, p.PassengerName, p.PassengerPhone, domain.RoundMoney(p.Amount), now)
	if p.Confirmed {
		b.Status = domain.BookingConfirmed
	}

	var consumedHold bool
	err = withRetry(ctx, func() error {
		consumedHold = false
		return l.store.WithTx(ctx, func(tx Tx) error {
			hold, err := tx.ActiveHold(ctx, p.TripID, p.SeatNo)
			if err != nil {
				return err
			}
			if hold != nil && hold.ActiveAt(now) && hold.HolderID != p.HolderID {
				return errors.Wrapf(domain.ErrSeatUnavailable, "seat %d on trip %s is held", p.SeatNo, p.TripID)
			}
			if err := tx.InsertBooking(ctx, b); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					return errors.Wrapf(domain.ErrSeatUnavailable, "seat %d on trip %s is booked", p.SeatNo, p.TripID)
				}
				return err
			}
			if hold != nil && hold.HolderID == p.HolderID {
				if _, err := tx.FinishHold(ctx, hold.ID, domain.HoldConsumed); err != nil {
					return err
				}
				consumedHold = true
			}
			return tx.InsertEvent(ctx, Event{
				Type:        EventBookingCreated,
				AggregateID: b.ID,
				Payload:     map[string]any{"type": "created", "booking": bookingPayload(b)},
			})
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if consumedHold {
		if uerr := l.locks.Unlock(ctx, p.TripID, p.SeatNo); uerr != nil {
			l.logger.Warn("failed to clear seat lock for consumed hold: ", uerr)
		}
	}
	observability.BookingsCreated.Inc()
	l.recordAudit(ctx, "booking.created", p.PassengerID, map[string]any{
		"booking_id": b.ID,
		"trip_id":    b.TripID,
		"seat_no":    b.SeatNo,
		"ticket_no":  b.TicketNo,
	})
	return b, nil
}

// Confirm moves a PENDING booking to CONFIRMED.
func (l *Lifecycle) Confirm(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return l.mutate(ctx, id, func(tx Tx, b *domain.Booking) error {
		return b.Transition(domain.BookingConfirmed)
	})
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED, keeping the
// row for the audit trail.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID, reason string) (domain.Booking, error) {
	b, err := l.mutate(ctx, id, func(tx Tx, b *domain.Booking) error {
		if err := b.Transition(domain.BookingCancelled); err != nil {
			return err
		}
		now := l.now()
		b.CancelledAt = &now
		b.CancelReason = reason
		return tx.InsertEvent(ctx, Event{
			Type:        EventBookingCancelled,
			AggregateID: b.ID,
			Payload:     map[string]any{"type": "cancelled", "booking": bookingPayload(*b), "reason": reason},
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}
	l.recordAudit(ctx, "booking.cancelled", b.PassengerID, map[string]any{
		"booking_id": b.ID,
		"reason":     reason,
	})
	return b, nil
}

// CheckIn boards a passenger. Only a CONFIRMED, fully paid booking may
// check in; the event goes straight to the emitter, scoped to the trip.
func (l *Lifecycle) CheckIn(ctx context.Context, id, operatorID uuid.UUID) (domain.Booking, error) {
	b, err := l.mutate(ctx, id, func(tx Tx, b *domain.Booking) error {
		if b.Status == domain.BookingConfirmed && b.PaymentStatus != domain.PaymentPaid {
			return errors.Wrapf(domain.ErrNotPaid, "booking %s has payment status %s", b.ID, b.PaymentStatus)
		}
		if err := b.Transition(domain.BookingCheckedIn); err != nil {
			return errors.Wrapf(domain.ErrInvalidTransition, "cannot check-in booking with status: %s", b.Status)
		}
		now := l.now()
		b.CheckedInAt = &now
		b.CheckedInBy = &operatorID
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if err := l.emitter.EmitBookingEvent(ctx, EventBookingCheckedIn, map[string]any{
		"trip_id": b.TripID,
		"booking": bookingPayload(b),
	}); err != nil {
		l.logger.Warn("failed to emit booking.checkedin: ", err)
	}
	l.recordAudit(ctx, "booking.checkedin", operatorID, map[string]any{
		"booking_id": b.ID,
		"trip_id":    b.TripID,
		"seat_no":    b.SeatNo,
	})
	return b, nil
}

// MarkNoShow flags a CONFIRMED booking whose passenger never boarded.
// Permitted only once the trip has departed.
func (l *Lifecycle) MarkNoShow(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return l.mutate(ctx, id, func(tx Tx, b *domain.Booking) error {
		trip, err := l.trips.GetTrip(ctx, b.TripID)
		if err != nil {
			return err
		}
		if l.now().Before(trip.DepartureAt) {
			return errors.Wrapf(domain.ErrDepartureNotReached, "trip %s departs %s", trip.ID, trip.DepartureAt.Format(time.RFC3339))
		}
		return b.Transition(domain.BookingNoShow)
	})
}

// Get fetches one booking.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	return *b, nil
}

// ValidateTicket classifies a ticket for boarding. Business outcomes
// (unknown, cancelled, unpaid, reused) come back in the result, never as
// an error; only infrastructure failures return err.
func (l *Lifecycle) ValidateTicket(ctx context.Context, ticketNo string, tripID uuid.UUID) (domain.TicketValidation, error) {
	b, err := l.store.GetBookingByTicket(ctx, ticketNo)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TicketValidation{State: domain.TicketInvalid, Reason: "ticket not found"}, nil
	}
	if err != nil {
		return domain.TicketValidation{}, err
	}
	return domain.ValidateForBoarding(b, tripID), nil
}

// mutate runs a read-validate-write cycle on one booking inside a
// retried serializable transaction.
func (l *Lifecycle) mutate(ctx context.Context, id uuid.UUID, fn func(Tx, *domain.Booking) error) (domain.Booking, error) {
	var out domain.Booking
	err := withRetry(ctx, func() error {
		return l.store.WithTx(ctx, func(tx Tx) error {
			b, err := tx.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			if err := fn(tx, b); err != nil {
				return err
			}
			if err := tx.UpdateBooking(ctx, *b); err != nil {
				return err
			}
			out = *b
			return nil
		})
	})
	return out, err
}

func (l *Lifecycle) recordAudit(ctx context.Context, action string, actor uuid.UUID, data map[string]any) {
	if l.audit == nil {
		return
	}
	if err := l.audit.Record(ctx, action, actor, data); err != nil {
		l.logger.Warn("audit record failed: ", err)
	}
}

func bookingPayload(b domain.Booking) map[string]any {
	return map[string]any{
		"id":             b.ID,
		"trip_id":        b.TripID,
		"seat_no":        b.SeatNo,
		"passenger_id":   b.PassengerID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
		"total_amount":   b.TotalAmount,
		"ticket_no":      b.TicketNo,
	}
}
