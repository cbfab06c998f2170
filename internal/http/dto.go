package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
)

type holdResponse struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	SeatNo    int       `json:"seat_no"`
	ExpiresAt string    `json:"expires_at"`
}

func toHoldResponse(h domain.SeatHold) holdResponse {
	return holdResponse{
		ID:        h.ID,
		TripID:    h.TripID,
		SeatNo:    h.SeatNo,
		ExpiresAt: h.ExpiresAt.Format(time.RFC3339),
	}
}

type bookingResponse struct {
	ID            uuid.UUID  `json:"id"`
	TripID        uuid.UUID  `json:"trip_id"`
	SeatNo        int        `json:"seat_no"`
	PassengerID   uuid.UUID  `json:"passenger_id"`
	PassengerName string     `json:"passenger_name,omitempty"`
	TotalAmount   float64    `json:"total_amount"`
	AmountPaid    float64    `json:"amount_paid"`
	PaymentStatus string     `json:"payment_status"`
	Status        string     `json:"status"`
	TicketNo      string     `json:"ticket_no"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		TripID:        b.TripID,
		SeatNo:        b.SeatNo,
		PassengerID:   b.PassengerID,
		PassengerName: b.PassengerName,
		TotalAmount:   b.TotalAmount,
		AmountPaid:    b.AmountPaid,
		PaymentStatus: string(b.PaymentStatus),
		Status:        string(b.Status),
		TicketNo:      b.TicketNo,
		CheckedInAt:   b.CheckedInAt,
		CancelledAt:   b.CancelledAt,
		CancelReason:  b.CancelReason,
	}
}

type availabilityResponse struct {
	TotalSeats     int   `json:"total_seats"`
	AvailableSeats []int `json:"available_seats"`
	BookedSeats    []int `json:"booked_seats"`
	HeldSeats      []int `json:"held_seats"`
}

func toAvailabilityResponse(a domain.Availability) availabilityResponse {
	resp := availabilityResponse{
		TotalSeats:     a.Total,
		AvailableSeats: a.Available,
		BookedSeats:    a.Booked,
		HeldSeats:      a.Held,
	}
	// Empty sets serialize as [], not null.
	if resp.AvailableSeats == nil {
		resp.AvailableSeats = []int{}
	}
	if resp.BookedSeats == nil {
		resp.BookedSeats = []int{}
	}
	if resp.HeldSeats == nil {
		resp.HeldSeats = []int{}
	}
	return resp
}
