package usecase

import (
	"context"
	"strings"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/internal/data/repository"
	"charger-booking/internal/dto/request"
	"charger-booking/internal/dto/response"
	"charger-booking/pkg/apperror"
	"charger-booking/pkg/utils"

	"go.uber.org/zap"
)

type UserService interface {
	UpsertUser(ctx context.Context, req *request.UpsertUserRequest) (*response.UserResponse, error)
	GetUserByApartment(ctx context.Context, apartment string) (*response.UserProfileResponse, error)
}

type userService struct {
	repo  *repository.Repository
	clock Clock
	log   *zap.Logger
}

func NewUserService(repo *repository.Repository, clock Clock, log *zap.Logger) UserService {
	if clock == nil {
		clock = systemClock{}
	}
	return &userService{
		repo:  repo,
		clock: clock,
		log:   log.With(zap.String("service", "user")),
	}
}

func (us *userService) UpsertUser(ctx context.Context, req *request.UpsertUserRequest) (*response.UserResponse, error) {
	req.Normalize()
	if err := validateRequest(req); err != nil {
		us.log.Warn("Upsert user validation failed", zap.Error(err))
		return nil, err
	}

	user := newUserRecord(req.ApartmentNumber, req.FullName, req.Email, us.clock.Now())
	if err := us.repo.User.Upsert(ctx, user); err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	us.log.Info("User upserted", zap.String("apartment_number", user.ApartmentNumber))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) GetUserByApartment(ctx context.Context, apartment string) (*response.UserProfileResponse, error) {
	if !utils.ValidateVar(apartment, "required,apartment") {
		return nil, apperror.ErrValidation.WithMessage("apartment number must be TOWER-UNIT, e.g. 5-1502")
	}

	user, err := us.repo.User.FindByApartment(ctx, apartment)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}
	if user == nil {
		return nil, apperror.ErrNotFound.WithMessage("user not found")
	}

	profile := &response.UserProfileResponse{UserResponse: response.UserToResponse(user)}

	// the plate is a convenience; a failed lookup still returns the user
	latest, err := us.repo.Booking.FindLatestActiveByApartment(ctx, apartment)
	if err != nil {
		us.log.Warn("Failed to load latest booking for autofill",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
	} else if latest != nil {
		plate := latest.VehiclePlate
		profile.VehiclePlate = &plate
	}

	return profile, nil
}

func newUserRecord(apartment, fullName string, email *string, now time.Time) *entity.User {
	if email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*email))
		email = &normalized
		if normalized == "" {
			email = nil
		}
	}

	return &entity.User{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ApartmentNumber: apartment,
		FullName:        fullName,
		Email:           email,
	}
}

func upsertUser(ctx context.Context, users repository.UserRepository, apartment, fullName string, email *string, now time.Time) error {
	return users.Upsert(ctx, newUserRecord(apartment, fullName, email, now))
}
