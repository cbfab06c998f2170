package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

// PaymentPolicy applies incremental payments and the tiered refund rules
// to a booking, appending one ledger row per money movement.
type PaymentPolicy struct {
	store  Store
	trips  TripSource
	audit  Auditor
	logger observability.Logger
	now    func() time.Time
}

func NewPaymentPolicy(store Store, trips TripSource, audit Auditor, logger observability.Logger) *PaymentPolicy {
	return &PaymentPolicy{store: store, trips: trips, audit: audit, logger: logger, now: time.Now}
}

// ApplyPayment adds amount to the booking's paid total. The booking
// reaches PAID once the total is covered, PARTIAL before that, and a
// PENDING booking confirms automatically once fully paid.
func (p *PaymentPolicy) ApplyPayment(ctx context.Context, bookingID uuid.UUID, amount float64, method, reference string) (domain.Booking, error) {
	if amount <= 0 {
		return domain.Booking{}, errors.Wrap(domain.ErrInvalidInput, "payment amount must be positive")
	}
	amount = domain.RoundMoney(amount)

	var out domain.Booking
	err := withRetry(ctx, func() error {
		return p.store.WithTx(ctx, func(tx Tx) error {
			b, err := tx.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.PaymentStatus == domain.PaymentPaid {
				return errors.Wrapf(domain.ErrAlreadyPaid, "booking %s", b.ID)
			}
			if b.Status == domain.BookingCancelled || b.Status == domain.BookingNoShow {
				return errors.Wrapf(domain.ErrInvalidTransition, "cannot pay booking with status %s", b.Status)
			}

			b.AmountPaid = domain.RoundMoney(b.AmountPaid + amount)
			if b.AmountPaid >= b.TotalAmount {
				b.PaymentStatus = domain.PaymentPaid
			} else {
				b.PaymentStatus = domain.PaymentPartial
			}
			if b.PaymentStatus == domain.PaymentPaid && b.Status == domain.BookingPending {
				if err := b.Transition(domain.BookingConfirmed); err != nil {
					return err
				}
			}
			if err := tx.UpdateBooking(ctx, *b); err != nil {
				return err
			}
			if err := tx.InsertPayment(ctx, domain.PaymentTransaction{
				ID:        uuid.New(),
				BookingID: b.ID,
				Amount:    amount,
				Method:    method,
				Reference: reference,
				Status:    "COMPLETED",
				CreatedAt: p.now(),
			}); err != nil {
				return err
			}
			out = *b
			return nil
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}

	observability.PaymentsApplied.Inc()
	p.recordAudit(ctx, "payment.applied", out.PassengerID, map[string]any{
		"booking_id": out.ID,
		"amount":     amount,
		"method":     method,
	})
	return out, nil
}

// Refund settles a refund under the time-to-departure tiers: inside two
// hours nothing refunds, between two and twenty-four hours half the
// total, from twenty-four hours out the full total. The actual refund is
// min(requested, cap); the booking cancels and the ledger gains a
// negative row.
func (p *PaymentPolicy) Refund(ctx context.Context, bookingID uuid.UUID, requested float64, reason string) (domain.Booking, float64, error) {
	if requested <= 0 {
		return domain.Booking{}, 0, errors.Wrap(domain.ErrInvalidInput, "refund amount must be positive")
	}

	var (
		out    domain.Booking
		refund float64
	)
	err := withRetry(ctx, func() error {
		return p.store.WithTx(ctx, func(tx Tx) error {
			b, err := tx.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.AmountPaid <= 0 {
				return errors.Wrapf(domain.ErrNotPaid, "booking %s has no payments", b.ID)
			}
			if b.PaymentStatus == domain.PaymentRefunded {
				return errors.Wrapf(domain.ErrInvalidTransition, "booking %s already refunded", b.ID)
			}
			trip, err := p.trips.GetTrip(ctx, b.TripID)
			if err != nil {
				return err
			}
			cap, err := domain.RefundCap(b.TotalAmount, trip.DepartureAt, p.now())
			if err != nil {
				return err
			}
			refund = domain.RoundMoney(requested)
			if refund > cap {
				refund = cap
			}

			if err := b.Transition(domain.BookingCancelled); err != nil {
				return err
			}
			now := p.now()
			b.CancelledAt = &now
			b.CancelReason = reason
			b.PaymentStatus = domain.PaymentRefunded
			if err := tx.UpdateBooking(ctx, *b); err != nil {
				return err
			}
			if err := tx.InsertPayment(ctx, domain.PaymentTransaction{
				ID:        uuid.New(),
				BookingID: b.ID,
				Amount:    -refund,
				Method:    "refund",
				Reason:    reason,
				Status:    "COMPLETED",
				CreatedAt: now,
			}); err != nil {
				return err
			}
			if err := tx.InsertEvent(ctx, Event{
				Type:        EventBookingCancelled,
				AggregateID: b.ID,
				Payload:     map[string]any{"type": "cancelled", "booking": bookingPayload(*b), "reason": reason, "refund": refund},
			}); err != nil {
				return err
			}
			out = *b
			return nil
		})
	})
	if err != nil {
		return domain.Booking{}, 0, err
	}

	observability.RefundsIssued.Inc()
	p.recordAudit(ctx, "payment.refunded", out.PassengerID, map[string]any{
		"booking_id": out.ID,
		"refund":     refund,
		"reason":     reason,
	})
	return out, refund, nil
}

func (p *PaymentPolicy) recordAudit(ctx context.Context, action string, actor uuid.UUID, data map[string]any) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Record(ctx, action, actor, data); err != nil {
		p.logger.Warn("audit record failed: ", err)
	}
}
