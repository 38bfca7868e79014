package repository

import (
	"context"
	"errors"
	"fmt"

	"charger-booking/internal/data/entity"
	"charger-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindByApartment(ctx context.Context, apartment string) (*entity.User, error)
	// Upsert keeps one record per apartment. On an existing record the name and
	// updated_at are refreshed, the email only when user.Email is set; ID and
	// CreatedAt of the stored record are copied back into user.
	Upsert(ctx context.Context, user *entity.User) error
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (ur *userRepository) FindByApartment(ctx context.Context, apartment string) (*entity.User, error) {
	query := `
		SELECT id, apartment_number, full_name, email, created_at, updated_at
		FROM users
		WHERE apartment_number = $1
	`

	var user entity.User
	err := ur.db.QueryRow(ctx, query, apartment).Scan(
		&user.ID,
		&user.ApartmentNumber,
		&user.FullName,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return nil, fmt.Errorf("find user by apartment %s: %w", apartment, err)
	}

	return &user, nil
}

func (ur *userRepository) Upsert(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, apartment_number, full_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (apartment_number) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = COALESCE(EXCLUDED.email, users.email),
		    updated_at = EXCLUDED.updated_at
		RETURNING id, email, created_at
	`

	err := ur.db.QueryRow(ctx, query,
		user.ID,
		user.ApartmentNumber,
		user.FullName,
		user.Email,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)

	if err != nil {
		ur.log.Error("Failed to upsert user",
			zap.Error(err),
			zap.String("apartment_number", user.ApartmentNumber),
		)
		return fmt.Errorf("upsert user %s: %w", user.ApartmentNumber, err)
	}

	return nil
}
