package wire

import (
	"charger-booking/internal/adaptor"
	"charger-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, limiter *middleware.RateLimiter) {
	r.Route("/api/bookings", func(r chi.Router) {
		// ==================== WRITES (rate limited) ====================
		r.With(limiter.Handler).Post("/", bookingHandler.CreateBooking)
		r.With(limiter.Handler).Put("/{code}", bookingHandler.UpdateBooking)
		r.Delete("/{code}", bookingHandler.CancelBooking)

		// ==================== READS ====================
		r.Post("/check-availability", bookingHandler.CheckAvailability)
		r.Get("/active", bookingHandler.GetActiveBooking)
		r.Get("/upcoming", bookingHandler.GetUpcomingBookings)
		r.Get("/calendar", bookingHandler.GetCalendar)                               // ?month=YYYY-MM
		r.Get("/day/{date}", bookingHandler.GetBookingsByDay)                        // YYYY-MM-DD
		r.Get("/apartment/{apartmentNumber}", bookingHandler.GetBookingsByApartment) // ?page=1&per_page=10
		r.Get("/{code}", bookingHandler.GetBookingByCode)
	})
}
