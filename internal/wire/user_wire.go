package wire

import (
	"charger-booking/internal/adaptor"
	"charger-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

// wireUser configures the resident records used to autofill the booking form
func wireUser(r chi.Router, userHandler *adaptor.UserHandler, limiter *middleware.RateLimiter) {
	r.Route("/api/users", func(r chi.Router) {
		r.With(limiter.Handler).Post("/", userHandler.UpsertUser)
		r.Get("/{apartmentNumber}", userHandler.GetUserByApartment)
	})
}
