package domain

import "errors"

// Business-rule errors. Handlers map these to 400/404 responses with a
// stable kind; they are never logged as server faults.
var (
	ErrSeatUnavailable     = errors.New("seat unavailable")
	ErrTripNotFound        = errors.New("trip not found")
	ErrTripNotBookable     = errors.New("trip not bookable")
	ErrInvalidTransition   = errors.New("invalid booking transition")
	ErrAlreadyPaid         = errors.New("booking already paid")
	ErrNotPaid             = errors.New("booking not paid")
	ErrRefundWindowClosed  = errors.New("refund window closed")
	ErrDepartureNotReached = errors.New("trip has not departed yet")
)

// Infrastructure errors.
var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
)

// Kind returns the stable machine-readable kind for a business error, or
// "" when err is not part of the business taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSeatUnavailable):
		return "SEAT_UNAVAILABLE"
	case errors.Is(err, ErrTripNotFound):
		return "TRIP_NOT_FOUND"
	case errors.Is(err, ErrTripNotBookable):
		return "TRIP_NOT_BOOKABLE"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDepartureNotReached):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrAlreadyPaid):
		return "ALREADY_PAID"
	case errors.Is(err, ErrNotPaid):
		return "NOT_PAID"
	case errors.Is(err, ErrRefundWindowClosed):
		return "REFUND_WINDOW_CLOSED"
	}
	return ""
}
