package database

import (
	"context"
	"fmt"
)

// schema is idempotent. The exclusion constraint is what keeps two active
// bookings from ever sharing an instant; application checks only report it.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                UUID PRIMARY KEY,
		confirmation_code VARCHAR(8)   NOT NULL,
		apartment_number  VARCHAR(20)  NOT NULL,
		full_name         VARCHAR(100) NOT NULL,
		vehicle_plate     VARCHAR(20)  NOT NULL,
		booking_date      TIMESTAMPTZ  NOT NULL,
		time_slot         VARCHAR(11)  NOT NULL,
		start_time        TIMESTAMPTZ  NOT NULL,
		end_time          TIMESTAMPTZ  NOT NULL,
		status            VARCHAR(16)  NOT NULL DEFAULT 'active',
		cancelled_at      TIMESTAMPTZ,
		created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT ck_bookings_interval CHECK (end_time > start_time),
		CONSTRAINT ck_bookings_status CHECK (status IN ('active', 'cancelled')),
		CONSTRAINT ex_bookings_active_overlap EXCLUDE USING gist (
			tstzrange(start_time, end_time, '[)') WITH &&
		) WHERE (status = 'active')
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_confirmation_code ON bookings (confirmation_code)`,
	`CREATE INDEX IF NOT EXISTS ix_bookings_booking_date ON bookings (booking_date) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS ix_bookings_apartment ON bookings (apartment_number, booking_date DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_bookings_end_time ON bookings (end_time) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS users (
		id               UUID PRIMARY KEY,
		apartment_number VARCHAR(20)  NOT NULL UNIQUE,
		full_name        VARCHAR(100) NOT NULL,
		email            VARCHAR(255),
		created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db PgxIface) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
