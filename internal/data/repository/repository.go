package repository

import (
	"errors"

	"charger-booking/pkg/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrOverlap is returned when a write would leave two active bookings with
	// intersecting intervals.
	ErrOverlap = errors.New("booking interval overlaps an active booking")
	// ErrDuplicateCode is returned when the confirmation code is already taken.
	ErrDuplicateCode = errors.New("confirmation code already in use")
	// ErrNotActive is returned when a transition requires an active booking
	// and the stored one is not (or no longer) active.
	ErrNotActive = errors.New("booking is not active")
)

type Repository struct {
	Booking BookingRepository
	User    UserRepository
}

// NewRepository builds the PostgreSQL-backed repositories.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking: NewBookingRepository(db, log),
		User:    NewUserRepository(db, log),
	}
}

// NewMongoRepository builds the MongoDB-backed repositories.
func NewMongoRepository(db *mongo.Database, log *zap.Logger) *Repository {
	return &Repository{
		Booking: NewMongoBookingRepository(db, log),
		User:    NewMongoUserRepository(db, log),
	}
}

// NewMemoryRepository builds process-local repositories.
func NewMemoryRepository(log *zap.Logger) *Repository {
	return &Repository{
		Booking: NewMemoryBookingRepository(log),
		User:    NewMemoryUserRepository(log),
	}
}
