package domain

import (
	"time"

	"github.com/google/uuid"
)

type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripBoarding  TripStatus = "BOARDING"
	TripDeparted  TripStatus = "DEPARTED"
	TripInTransit TripStatus = "IN_TRANSIT"
	TripArrived   TripStatus = "ARRIVED"
	TripCompleted TripStatus = "COMPLETED"
	TripCancelled TripStatus = "CANCELLED"
)

// Trip is owned by the scheduling subsystem; this core only reads
// capacity, timing and status from it.
type Trip struct {
	ID          uuid.UUID
	Route       string
	Capacity    int
	DepartureAt time.Time
	ArrivalAt   time.Time
	Status      TripStatus
}

// Bookable reports whether new bookings may be taken for the trip.
func (t Trip) Bookable(now time.Time) bool {
	if t.Status == TripCompleted || t.Status == TripCancelled {
		return false
	}
	return now.Before(t.DepartureAt)
}

type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"
	HoldReleased HoldStatus = "RELEASED"
	HoldConsumed HoldStatus = "CONSUMED"
	HoldExpired  HoldStatus = "EXPIRED"
)

type SeatHold struct {
	ID        uuid.UUID
	TripID    uuid.UUID
	SeatNo    int
	HolderID  uuid.UUID
	Status    HoldStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ActiveAt reports whether the hold still blocks the seat at the given
// instant. A row may sit in the database as ACTIVE past its expiry until
// the sweeper catches it; every reader must apply this predicate.
func (h SeatHold) ActiveAt(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCheckedIn BookingStatus = "CHECKED_IN"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingNoShow    BookingStatus = "NO_SHOW"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPartial  PaymentStatus = "PARTIAL"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Booking struct {
	ID             uuid.UUID
	TripID         uuid.UUID
	SeatNo         int
	PassengerID    uuid.UUID
	PassengerName  string
	PassengerPhone string
	TotalAmount    float64
	AmountPaid     float64
	PaymentStatus  PaymentStatus
	Status         BookingStatus
	TicketNo       string
	CheckedInAt    *time.Time
	CheckedInBy    *uuid.UUID
	CancelledAt    *time.Time
	CancelReason   string
	CreatedAt      time.Time
}

// Occupies reports whether the booking blocks its seat. Cancelled rows
// stay in the table for audit but free the seat.
func (b Booking) Occupies() bool {
	switch b.Status {
	case BookingPending, BookingConfirmed, BookingCheckedIn:
		return true
	}
	return false
}

// PaymentTransaction is one row of the append-only payment ledger.
// Refunds carry a negative amount.
type PaymentTransaction struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Amount    float64
	Method    string
	Reference string
	Reason    string
	Status    string
	CreatedAt time.Time
}

type Availability struct {
	TripID    uuid.UUID
	Total     int
	Available []int
	Booked    []int
	Held      []int
}
