package usecase

import (
	"charger-booking/internal/data/repository"
	"charger-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	User    UserService
	Booking BookingService
}

func NewService(repo *repository.Repository, config *utils.Config, deps BookingDeps, log *zap.Logger) *Service {
	return &Service{
		User:    NewUserService(repo, deps.Clock, log),
		Booking: NewBookingService(repo, config.Booking, deps, log),
	}
}
