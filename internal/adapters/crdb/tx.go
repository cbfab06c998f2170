package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetops/busbooking/internal/booking"
	"github.com/fleetops/busbooking/internal/domain"
)

// sqlTx implements booking.Tx over one pgx transaction.
type sqlTx struct {
	tx pgx.Tx
}

var _ booking.Tx = (*sqlTx)(nil)

// InsertHold relies on the partial unique index over ACTIVE rows: the
// insert and the conflict check are one statement, so two racers for the
// same seat cannot both land a row.
func (t *sqlTx) InsertHold(ctx context.Context, h domain.SeatHold) error {
	result, err := t.tx.Exec(ctx, `
		INSERT INTO seat_holds (id, trip_id, seat_no, holder_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, 'ACTIVE', $5, $6)
		ON CONFLICT (trip_id, seat_no) WHERE status = 'ACTIVE' DO NOTHING
	`, h.ID, h.TripID, h.SeatNo, h.HolderID, h.CreatedAt, h.ExpiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (t *sqlTx) ExpireStaleHold(ctx context.Context, tripID uuid.UUID, seatNo int, now time.Time) (bool, error) {
	result, err := t.tx.Exec(ctx, `
		UPDATE seat_holds SET status = 'EXPIRED'
		WHERE trip_id = $1 AND seat_no = $2 AND status = 'ACTIVE' AND expires_at <= $3
	`, tripID, seatNo, now)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (t *sqlTx) ActiveHold(ctx context.Context, tripID uuid.UUID, seatNo int) (*domain.SeatHold, error) {
	h, err := scanHold(t.tx.QueryRow(ctx, selectHold+` WHERE trip_id = $1 AND seat_no = $2 AND status = 'ACTIVE'`, tripID, seatNo))
	if err == domain.ErrNotFound {
		return nil, nil
	}
	return h, err
}

func (t *sqlTx) FinishHold(ctx context.Context, holdID uuid.UUID, status domain.HoldStatus) (bool, error) {
	result, err := t.tx.Exec(ctx, `
		UPDATE seat_holds SET status = $2 WHERE id = $1 AND status = 'ACTIVE'
	`, holdID, status)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (t *sqlTx) ReleaseHold(ctx context.Context, tripID uuid.UUID, seatNo int, holderID uuid.UUID) (bool, error) {
	result, err := t.tx.Exec(ctx, `
		UPDATE seat_holds SET status = 'RELEASED'
		WHERE trip_id = $1 AND seat_no = $2 AND holder_id = $3 AND status = 'ACTIVE'
	`, tripID, seatNo, holderID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (t *sqlTx) SeatBooked(ctx context.Context, tripID uuid.UUID, seatNo int) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE trip_id = $1 AND seat_no = $2 AND status != 'CANCELLED'
		)
	`, tripID, seatNo).Scan(&exists)
	return exists, err
}

// InsertBooking relies on the partial unique index over non-cancelled
// bookings, the second half of the overbooking guard.
func (t *sqlTx) InsertBooking(ctx context.Context, b domain.Booking) error {
	result, err := t.tx.Exec(ctx, `
		INSERT INTO bookings (id, trip_id, seat_no, passenger_id, passenger_name, passenger_phone,
		                      total_amount, amount_paid, payment_status, status, ticket_no, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (trip_id, seat_no) WHERE status != 'CANCELLED' DO NOTHING
	`, b.ID, b.TripID, b.SeatNo, b.PassengerID, b.PassengerName, b.PassengerPhone,
		b.TotalAmount, b.AmountPaid, b.PaymentStatus, b.Status, b.TicketNo, b.CreatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (t *sqlTx) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return scanBooking(t.tx.QueryRow(ctx, selectBooking+" WHERE id = $1 FOR UPDATE", id))
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b domain.Booking) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET amount_paid = $2, payment_status = $3, status = $4,
		    checked_in_at = $5, checked_in_by = $6, cancelled_at = $7, cancel_reason = $8
		WHERE id = $1
	`, b.ID, b.AmountPaid, b.PaymentStatus, b.Status, b.CheckedInAt, b.CheckedInBy, b.CancelledAt, nullable(b.CancelReason))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *sqlTx) InsertPayment(ctx context.Context, p domain.PaymentTransaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payment_transactions (id, booking_id, amount, method, reference, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.BookingID, p.Amount, p.Method, nullable(p.Reference), nullable(p.Reason), p.Status, p.CreatedAt)
	return err
}

func (t *sqlTx) InsertEvent(ctx context.Context, e booking.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	return insertOutbox(ctx, t.tx, OutboxRecord{
		ID:          uuid.New(),
		AggregateID: e.AggregateID,
		EventType:   e.Type,
		Payload:     payload,
		DedupeKey:   uuid.New().String(),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
