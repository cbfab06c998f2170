package domain

import (
	"sort"

	"github.com/google/uuid"
)

// ComputeAvailability derives the free seat set from the trip capacity
// and the seats currently booked or held. Seats are numbered 1..total.
func ComputeAvailability(tripID uuid.UUID, total int, booked, held []int) Availability {
	taken := make(map[int]bool, len(booked)+len(held))
	for _, s := range booked {
		taken[s] = true
	}
	for _, s := range held {
		taken[s] = true
	}

	available := make([]int, 0, total)
	for seat := 1; seat <= total; seat++ {
		if !taken[seat] {
			available = append(available, seat)
		}
	}

	sort.Ints(booked)
	sort.Ints(held)

	return Availability{
		TripID:    tripID,
		Total:     total,
		Available: available,
		Booked:    booked,
		Held:      held,
	}
}
