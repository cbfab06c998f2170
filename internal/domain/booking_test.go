package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

var allStatuses = []BookingStatus{
	BookingPending, BookingConfirmed, BookingCheckedIn, BookingCancelled, BookingNoShow,
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{BookingPending, BookingConfirmed}:   true,
		{BookingPending, BookingCancelled}:   true,
		{BookingConfirmed, BookingCheckedIn}: true,
		{BookingConfirmed, BookingCancelled}: true,
		{BookingConfirmed, BookingNoShow}:    true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := CanTransition(from, to)
			want := allowed[[2]BookingStatus{from, to}]
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCheckInGuard(t *testing.T) {
	// Only CONFIRMED may check in; every other state is rejected.
	for _, from := range allStatuses {
		b := Booking{Status: from}
		err := b.Transition(BookingCheckedIn)
		if from == BookingConfirmed {
			if err != nil {
				t.Errorf("expected check-in from %s to succeed, got %v", from, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition from %s, got %v", from, err)
		}
	}
}

func TestNewTicketNo(t *testing.T) {
	a, b := NewTicketNo(), NewTicketNo()
	if !strings.HasPrefix(a, "TKT-") || len(a) != 14 {
		t.Errorf("unexpected ticket format: %q", a)
	}
	if a == b {
		t.Error("ticket numbers should not repeat")
	}
}

func TestValidateForBoarding(t *testing.T) {
	tripID := uuid.New()

	valid := &Booking{TripID: tripID, Status: BookingConfirmed, PaymentStatus: PaymentPaid}
	if v := ValidateForBoarding(valid, tripID); v.State != TicketValid {
		t.Errorf("expected valid, got %s (%s)", v.State, v.Reason)
	}

	if v := ValidateForBoarding(nil, tripID); v.State != TicketInvalid {
		t.Errorf("expected invalid for missing booking, got %s", v.State)
	}

	wrongTrip := &Booking{TripID: uuid.New(), Status: BookingConfirmed, PaymentStatus: PaymentPaid}
	if v := ValidateForBoarding(wrongTrip, tripID); v.State != TicketInvalid {
		t.Errorf("expected invalid for wrong trip, got %s", v.State)
	}

	blocked := []Booking{
		{TripID: tripID, Status: BookingCancelled, PaymentStatus: PaymentPaid},
		{TripID: tripID, Status: BookingCheckedIn, PaymentStatus: PaymentPaid},
		{TripID: tripID, Status: BookingNoShow, PaymentStatus: PaymentPaid},
		{TripID: tripID, Status: BookingConfirmed, PaymentStatus: PaymentPartial},
		{TripID: tripID, Status: BookingPending, PaymentStatus: PaymentPending},
	}
	for i := range blocked {
		if v := ValidateForBoarding(&blocked[i], tripID); v.State != TicketBlocked {
			t.Errorf("case %d: expected blocked, got %s", i, v.State)
		}
	}
}

func TestSeatHoldActiveAt(t *testing.T) {
	now := time.Now()
	h := SeatHold{Status: HoldActive, ExpiresAt: now.Add(time.Minute)}
	if !h.ActiveAt(now) {
		t.Error("unexpired ACTIVE hold should be active")
	}
	if h.ActiveAt(now.Add(2 * time.Minute)) {
		t.Error("hold past expiry must read as absent even while the row is ACTIVE")
	}
	h.Status = HoldReleased
	if h.ActiveAt(now) {
		t.Error("released hold should not be active")
	}
}

func TestTripBookable(t *testing.T) {
	now := time.Now()
	trip := Trip{Status: TripScheduled, DepartureAt: now.Add(time.Hour)}
	if !trip.Bookable(now) {
		t.Error("scheduled future trip should be bookable")
	}
	trip.Status = TripCancelled
	if trip.Bookable(now) {
		t.Error("cancelled trip should not be bookable")
	}
	trip.Status = TripScheduled
	trip.DepartureAt = now.Add(-time.Minute)
	if trip.Bookable(now) {
		t.Error("departed trip should not be bookable")
	}
}
