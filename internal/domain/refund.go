package domain

import (
	"fmt"
	"math"
	"time"
)

// Refund windows, measured from the refund request to trip departure.
// Boundaries are inclusive of the more permissive tier: exactly 24h to
// departure earns the full cap, exactly 2h still earns the partial cap.
const (
	refundCutoff   = 2 * time.Hour
	fullRefundFrom = 24 * time.Hour
)

// RefundCap returns the maximum refundable amount for a booking whose
// trip departs at departureAt, or ErrRefundWindowClosed inside the
// two-hour cutoff.
func RefundCap(totalAmount float64, departureAt, now time.Time) (float64, error) {
	untilDeparture := departureAt.Sub(now)
	switch {
	case untilDeparture < refundCutoff:
		return 0, fmt.Errorf("departure in %s: %w", untilDeparture.Round(time.Minute), ErrRefundWindowClosed)
	case untilDeparture < fullRefundFrom:
		return RoundMoney(totalAmount * 0.5), nil
	}
	return totalAmount, nil
}

// RoundMoney rounds to 2 decimal places, the precision of every amount
// on the wire and in the ledger.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
