package crdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the DDL for the core tables. The two partial unique
// indexes carry the overbooking guarantee: at most one ACTIVE hold and
// at most one non-cancelled booking per (trip, seat).
const Schema = `
CREATE TABLE IF NOT EXISTS seat_holds (
	id UUID PRIMARY KEY,
	trip_id UUID NOT NULL,
	seat_no INT NOT NULL,
	holder_id UUID NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RELEASED', 'CONSUMED', 'EXPIRED')),
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	UNIQUE (trip_id, seat_no) WHERE status = 'ACTIVE'
);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	trip_id UUID NOT NULL,
	seat_no INT NOT NULL,
	passenger_id UUID NOT NULL,
	passenger_name TEXT NOT NULL DEFAULT '',
	passenger_phone TEXT NOT NULL DEFAULT '',
	total_amount NUMERIC NOT NULL,
	amount_paid NUMERIC NOT NULL DEFAULT 0,
	payment_status TEXT NOT NULL CHECK (payment_status IN ('PENDING', 'PARTIAL', 'PAID', 'REFUNDED')),
	status TEXT NOT NULL CHECK (status IN ('PENDING', 'CONFIRMED', 'CHECKED_IN', 'CANCELLED', 'NO_SHOW')),
	ticket_no TEXT NOT NULL UNIQUE,
	checked_in_at TIMESTAMPTZ,
	checked_in_by UUID,
	cancelled_at TIMESTAMPTZ,
	cancel_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (trip_id, seat_no) WHERE status != 'CANCELLED'
);

CREATE TABLE IF NOT EXISTS payment_transactions (
	id UUID PRIMARY KEY,
	booking_id UUID NOT NULL REFERENCES bookings (id),
	amount NUMERIC NOT NULL,
	method TEXT NOT NULL,
	reference TEXT,
	reason TEXT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);
`

// Migrate applies the schema. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
