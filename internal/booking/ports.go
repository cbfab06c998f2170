package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
)

// Tx is the transactional slice of the store. Every seat-state mutation
// runs through WithTx so that the uniqueness checks and the writes they
// guard commit or abort together.
type Tx interface {
	// InsertHold inserts an ACTIVE hold, returning domain.ErrConflict
	// when another ACTIVE row already covers (trip, seat).
	InsertHold(ctx context.Context, hold domain.SeatHold) error
	// ExpireStaleHold flips an ACTIVE hold whose expiry has passed to
	// EXPIRED, reporting whether a row was flipped. Lets an acquirer
	// take over a seat the sweeper has not reached yet.
	ExpireStaleHold(ctx context.Context, tripID uuid.UUID, seatNo int, now time.Time) (bool, error)
	// ActiveHold returns the ACTIVE hold for (trip, seat), or nil. The
	// row may be time-expired; callers apply SeatHold.ActiveAt.
	ActiveHold(ctx context.Context, tripID uuid.UUID, seatNo int) (*domain.SeatHold, error)
	// FinishHold moves an ACTIVE hold to a terminal status (RELEASED,
	// CONSUMED, EXPIRED), reporting whether a row matched.
	FinishHold(ctx context.Context, holdID uuid.UUID, status domain.HoldStatus) (bool, error)
	// ReleaseHold releases the ACTIVE hold on (trip, seat) owned by
	// holderID. Absent or foreign holds report false without error.
	ReleaseHold(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID) (bool, error)

	// SeatBooked reports whether a non-cancelled booking occupies the seat.
	SeatBooked(ctx context.Context, tripID uuid.UUID, seatNo int) (bool, error)
	// InsertBooking inserts a booking, returning domain.ErrConflict when
	// a non-cancelled booking already covers (trip, seat).
	InsertBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) error
	InsertPayment(ctx context.Context, p domain.PaymentTransaction) error

	// InsertEvent stages an event in the transactional outbox.
	InsertEvent(ctx context.Context, e Event) error
}

// Store is the persistence port the core depends on. The production
// implementation lives in internal/adapters/crdb.
type Store interface {
	// WithTx runs fn inside a SERIALIZABLE transaction. A serialization
	// conflict surfaces as domain.ErrSerializationFailure.
	WithTx(ctx context.Context, fn func(Tx) error) error

	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetBookingByTicket(ctx context.Context, ticketNo string) (*domain.Booking, error)
	HoldByID(ctx context.Context, id uuid.UUID) (*domain.SeatHold, error)
	// BookedSeats lists seats with a non-cancelled booking on the trip.
	BookedSeats(ctx context.Context, tripID uuid.UUID) ([]int, error)
	// HeldSeats lists seats with an ACTIVE hold expiring after now.
	HeldSeats(ctx context.Context, tripID uuid.UUID, now time.Time) ([]int, error)
	// ExpireHolds flips every ACTIVE hold with expires_at <= now to
	// EXPIRED and returns the flipped holds.
	ExpireHolds(ctx context.Context, now time.Time) ([]domain.SeatHold, error)
}

// TripSource provides read access to trips, which are owned by the
// scheduling subsystem. Returns domain.ErrTripNotFound on a miss.
type TripSource interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
}

// Emitter is the outbound event port. The production implementation
// publishes to RabbitMQ; tests record. Fire-and-forget: the core logs
// emit failures and moves on.
type Emitter interface {
	EmitBookingEvent(ctx context.Context, event string, payload any) error
}

// SeatLock is the advisory fast-path lock in front of the database
// constraint. Losing it is never a correctness problem, only wasted work.
type SeatLock interface {
	Lock(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, tripID uuid.UUID, seatNo int) error
}

// Auditor records lifecycle actions for the audit trail. Best-effort.
type Auditor interface {
	Record(ctx context.Context, action string, actor uuid.UUID, data map[string]any) error
}

// Event is a staged outbox event.
type Event struct {
	Type        string
	AggregateID uuid.UUID
	Payload     any
}

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCheckedIn = "booking.checkedin"
	EventHoldExpired      = "hold.expired"
)
