package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetops/busbooking/internal/booking"
	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
)

// Repository implements booking.Store on CockroachDB.
type Repository struct {
	pool *pgxpool.Pool
}

var _ booking.Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a SERIALIZABLE transaction, mapping pg error
// 40001 to domain.ErrSerializationFailure so the core can retry.
func (r *Repository) WithTx(ctx context.Context, fn func(booking.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return mapPgErr(err)
	}

	return mapPgErr(tx.Commit(ctx))
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case serializationFailureCode:
			return domain.ErrSerializationFailure
		case uniqueViolationCode:
			return domain.ErrConflict
		}
	}
	return err
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, selectBooking+" WHERE id = $1", id))
}

func (r *Repository) GetBookingByTicket(ctx context.Context, ticketNo string) (*domain.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, selectBooking+" WHERE ticket_no = $1", ticketNo))
}

func (r *Repository) HoldByID(ctx context.Context, id uuid.UUID) (*domain.SeatHold, error) {
	return scanHold(r.pool.QueryRow(ctx, selectHold+" WHERE id = $1", id))
}

// BookedSeats lists seats occupied by a non-cancelled booking.
func (r *Repository) BookedSeats(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seat_no FROM bookings
		WHERE trip_id = $1 AND status IN ('PENDING', 'CONFIRMED', 'CHECKED_IN')
	`, tripID)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// HeldSeats lists seats under an ACTIVE hold that has not yet expired.
// The expires_at predicate is the lazy-expiry guarantee: rows the
// sweeper has not reached do not count.
func (r *Repository) HeldSeats(ctx context.Context, tripID uuid.UUID, now time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seat_no FROM seat_holds
		WHERE trip_id = $1 AND status = 'ACTIVE' AND expires_at > $2
	`, tripID, now)
	if err != nil {
		return nil, err
	}
	return collectSeats(rows)
}

// ExpireHolds flips every overdue ACTIVE hold to EXPIRED and returns
// the flipped rows. Only ever touches rows matching the expiry
// predicate, so it is safe beside concurrent acquires and releases.
func (r *Repository) ExpireHolds(ctx context.Context, now time.Time) ([]domain.SeatHold, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE seat_holds SET status = 'EXPIRED'
		WHERE status = 'ACTIVE' AND expires_at <= $1
		RETURNING id, trip_id, seat_no, holder_id, status, created_at, expires_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holds []domain.SeatHold
	for rows.Next() {
		var h domain.SeatHold
		if err := rows.Scan(&h.ID, &h.TripID, &h.SeatNo, &h.HolderID, &h.Status, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func collectSeats(rows pgx.Rows) ([]int, error) {
	defer rows.Close()
	var seats []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

const selectBooking = `
	SELECT id, trip_id, seat_no, passenger_id, passenger_name, passenger_phone,
	       total_amount, amount_paid, payment_status, status, ticket_no,
	       checked_in_at, checked_in_by, cancelled_at, cancel_reason, created_at
	FROM bookings`

const selectHold = `
	SELECT id, trip_id, seat_no, holder_id, status, created_at, expires_at
	FROM seat_holds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b            domain.Booking
		cancelReason *string
	)
	err := row.Scan(&b.ID, &b.TripID, &b.SeatNo, &b.PassengerID, &b.PassengerName,
		&b.PassengerPhone, &b.TotalAmount, &b.AmountPaid, &b.PaymentStatus, &b.Status,
		&b.TicketNo, &b.CheckedInAt, &b.CheckedInBy, &b.CancelledAt, &cancelReason, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cancelReason != nil {
		b.CancelReason = *cancelReason
	}
	return &b, nil
}

func scanHold(row rowScanner) (*domain.SeatHold, error) {
	var h domain.SeatHold
	err := row.Scan(&h.ID, &h.TripID, &h.SeatNo, &h.HolderID, &h.Status, &h.CreatedAt, &h.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
