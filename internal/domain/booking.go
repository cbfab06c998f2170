package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func NewBooking(tripID uuid.UUID, seatNo int, passengerID uuid.UUID, name, phone string, amount float64, now time.Time) Booking {
	return Booking{
		ID:             uuid.New(),
		TripID:         tripID,
		SeatNo:         seatNo,
		PassengerID:    passengerID,
		PassengerName:  name,
		PassengerPhone: phone,
		TotalAmount:    amount,
		PaymentStatus:  PaymentPending,
		Status:         BookingPending,
		TicketNo:       NewTicketNo(),
		CreatedAt:      now,
	}
}

// NewTicketNo returns a ticket number of the form TKT-XXXXXXXXXX.
func NewTicketNo() string {
	b := make([]byte, 5)
	rand.Read(b)
	return "TKT-" + hex.EncodeToString(b)
}

// CanTransition reports whether a booking may move from one status to
// another. CHECKED_IN, CANCELLED and NO_SHOW are terminal.
func CanTransition(from, to BookingStatus) bool {
	switch to {
	case BookingConfirmed:
		return from == BookingPending
	case BookingCheckedIn:
		return from == BookingConfirmed
	case BookingCancelled:
		return from == BookingPending || from == BookingConfirmed
	case BookingNoShow:
		return from == BookingConfirmed
	}
	return false
}

// Transition validates and applies a status change.
func (b *Booking) Transition(to BookingStatus) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("cannot move booking from %s to %s: %w", b.Status, to, ErrInvalidTransition)
	}
	b.Status = to
	return nil
}

// TicketState is the outcome of validating a ticket at boarding.
type TicketState string

const (
	TicketValid   TicketState = "valid"
	TicketInvalid TicketState = "invalid"
	TicketBlocked TicketState = "blocked"
)

// TicketValidation is deliberately not an error: a bad ticket is a
// business outcome the driver app renders, not a fault.
type TicketValidation struct {
	State   TicketState
	Reason  string
	Booking *Booking
}

// ValidateForBoarding classifies a booking for check-in at the door.
func ValidateForBoarding(b *Booking, tripID uuid.UUID) TicketValidation {
	if b == nil || b.TripID != tripID {
		return TicketValidation{State: TicketInvalid, Reason: "ticket not found for this trip"}
	}
	switch {
	case b.Status == BookingCancelled:
		return TicketValidation{State: TicketBlocked, Reason: "booking cancelled", Booking: b}
	case b.Status == BookingCheckedIn:
		return TicketValidation{State: TicketBlocked, Reason: "already checked in", Booking: b}
	case b.Status == BookingNoShow:
		return TicketValidation{State: TicketBlocked, Reason: "marked no-show", Booking: b}
	case b.PaymentStatus != PaymentPaid:
		return TicketValidation{State: TicketBlocked, Reason: "payment incomplete", Booking: b}
	case b.Status != BookingConfirmed:
		return TicketValidation{State: TicketBlocked, Reason: "booking not confirmed", Booking: b}
	}
	return TicketValidation{State: TicketValid, Booking: b}
}
