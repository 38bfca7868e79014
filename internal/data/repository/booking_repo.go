package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type BookingRepository interface {
	// Create inserts an active booking. It returns ErrOverlap when the interval
	// intersects another active booking and ErrDuplicateCode when the
	// confirmation code is taken; in both cases nothing is written.
	Create(ctx context.Context, booking *entity.Booking) error
	// FindByCode returns every booking carrying code, oldest first.
	FindByCode(ctx context.Context, code string) ([]*entity.Booking, error)
	// FindOverlapping returns active bookings intersecting [start, end),
	// skipping excludeID (uuid.Nil skips nothing).
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) ([]*entity.Booking, error)
	// Cancel moves an active booking to cancelled, or returns ErrNotActive.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) error
	// Reschedule rewrites the interval fields of an active booking under the
	// same overlap guarantee as Create.
	Reschedule(ctx context.Context, booking *entity.Booking) error

	// Read-only projections
	FindActiveByBookingDate(ctx context.Context, from, to time.Time) ([]*entity.Booking, error)
	FindByApartment(ctx context.Context, apartment string, limit, offset int) ([]*entity.Booking, error)
	CountByApartment(ctx context.Context, apartment string) (int64, error)
	FindActiveAt(ctx context.Context, at time.Time) ([]*entity.Booking, error)
	FindUpcoming(ctx context.Context, after time.Time, limit int) ([]*entity.Booking, error)
	FindLatestActiveByApartment(ctx context.Context, apartment string) (*entity.Booking, error)
}

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"

	confirmationCodeIndex = "ux_bookings_confirmation_code"

	bookingColumns = `id, confirmation_code, apartment_number, full_name, vehicle_plate,
		booking_date, time_slot, start_time, end_time, status, cancelled_at, created_at, updated_at`
)

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ConfirmationCode,
		&booking.ApartmentNumber,
		&booking.FullName,
		&booking.VehiclePlate,
		&booking.BookingDate,
		&booking.TimeSlot,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.CancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// mapWriteError turns constraint violations into repository sentinels.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgExclusionViolation:
		return ErrOverlap
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == confirmationCodeIndex:
		return ErrDuplicateCode
	default:
		return err
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.ConfirmationCode,
		booking.ApartmentNumber,
		booking.FullName,
		booking.VehiclePlate,
		booking.BookingDate,
		booking.TimeSlot,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.CancelledAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("confirmation_code", booking.ConfirmationCode),
			zap.String("apartment_number", booking.ApartmentNumber),
		)
		return fmt.Errorf("create booking %s: %w", booking.ConfirmationCode, err)
	}

	return nil
}

func (r *bookingRepository) FindByCode(ctx context.Context, code string) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE confirmation_code = $1
		ORDER BY created_at
	`

	return r.queryBookings(ctx, "find bookings by code", query, code)
}

func (r *bookingRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND start_time < $2 AND end_time > $1 AND id <> $3
		ORDER BY start_time
	`

	return r.queryBookings(ctx, "find overlapping bookings", query, start, end, excludeID)
}

func (r *bookingRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("cancel booking %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotActive
	}

	return nil
}

func (r *bookingRepository) Reschedule(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET booking_date = $2, time_slot = $3, start_time = $4, end_time = $5, updated_at = $6
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingDate,
		booking.TimeSlot,
		booking.StartTime,
		booking.EndTime,
		booking.UpdatedAt,
	)

	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		r.log.Error("Failed to reschedule booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("reschedule booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotActive
	}

	return nil
}

func (r *bookingRepository) FindActiveByBookingDate(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND booking_date >= $1 AND booking_date < $2
		ORDER BY start_time
	`

	return r.queryBookings(ctx, "find bookings by booking date", query, from, to)
}

func (r *bookingRepository) FindByApartment(ctx context.Context, apartment string, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE apartment_number = $1
		ORDER BY booking_date DESC, start_time DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryBookings(ctx, "find bookings by apartment", query, apartment, limit, offset)
}

func (r *bookingRepository) CountByApartment(ctx context.Context, apartment string) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE apartment_number = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, apartment).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return 0, fmt.Errorf("count bookings by apartment %s: %w", apartment, err)
	}

	return count, nil
}

func (r *bookingRepository) FindActiveAt(ctx context.Context, at time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND start_time <= $1 AND end_time > $1
		ORDER BY start_time
	`

	return r.queryBookings(ctx, "find active booking", query, at)
}

func (r *bookingRepository) FindUpcoming(ctx context.Context, after time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND end_time > $1
		ORDER BY end_time
		LIMIT $2
	`

	return r.queryBookings(ctx, "find upcoming bookings", query, after, limit)
}

func (r *bookingRepository) FindLatestActiveByApartment(ctx context.Context, apartment string) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE apartment_number = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, apartment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest booking by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return nil, fmt.Errorf("find latest booking by apartment %s: %w", apartment, err)
	}

	return booking, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, op, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate booking rows", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}
