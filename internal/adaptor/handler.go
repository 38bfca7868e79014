package adaptor

import (
	"net/http"

	"charger-booking/internal/usecase"
	"charger-booking/pkg/apperror"
	"charger-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	User    *UserHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		User:    NewUserHandler(service.User, log),
	}
}

// handleServiceError writes the envelope for a service failure. Untyped
// errors are treated as internal and never leak their message.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindAlreadyCancelled, apperror.KindNotFound:
		log.Warn(operation+" rejected", zap.Error(err), zap.String("operation", operation))
	case apperror.KindConflict:
		log.Warn(operation+" failed - time slot taken", zap.String("operation", operation))
	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
	}

	utils.ResponseError(w, err)
}
