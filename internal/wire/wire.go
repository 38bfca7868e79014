// internal/wire/wire.go
package wire

import (
	"net/http"
	"time"

	"charger-booking/internal/adaptor"
	"charger-booking/internal/data/repository"
	"charger-booking/internal/usecase"
	"charger-booking/pkg/middleware"
	"charger-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the assembled HTTP application
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and the router. Cache, publisher and clock
// come in through deps; nil members fall back to no-op implementations.
func Wiring(repo *repository.Repository, config *utils.Config, deps usecase.BookingDeps, logger *zap.Logger) *App {
	if deps.CalendarTTL == 0 && config.Redis.CalendarTTLSecs > 0 {
		deps.CalendarTTL = time.Duration(config.Redis.CalendarTTLSecs) * time.Second
	}

	service := usecase.NewService(repo, config, deps, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter configures the chi router
func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics)

	limiter := middleware.NewRateLimiter(config.RateLimit, logger)

	// Apply routes
	wireBooking(r, handler.Booking, limiter)
	wireUser(r, handler.User, limiter)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
