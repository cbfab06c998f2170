package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultHoldTTL applies to passenger-initiated holds.
	DefaultHoldTTL = 15 * time.Minute
	// AgentHoldTTL applies to holds placed by ticket-counter agents.
	AgentHoldTTL = 10 * time.Minute
)

func NewSeatHold(tripID uuid.UUID, seatNo int, holderID uuid.UUID, ttl time.Duration, now time.Time) SeatHold {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return SeatHold{
		ID:        uuid.New(),
		TripID:    tripID,
		SeatNo:    seatNo,
		HolderID:  holderID,
		Status:    HoldActive,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
