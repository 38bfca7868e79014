package adaptor

import (
	"encoding/json"
	"net/http"

	"charger-booking/internal/dto/request"
	"charger-booking/internal/usecase"
	"charger-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking created", booking)
}

// CheckAvailability handles POST /api/bookings/check-availability
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req request.CheckAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "check availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}

// GetActiveBooking handles GET /api/bookings/active
func (h *BookingHandler) GetActiveBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetActiveBooking(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "get active booking")
		return
	}

	if booking == nil {
		utils.ResponseSuccess(w, "Charger is free", nil)
		return
	}
	utils.ResponseSuccess(w, "success", booking)
}

// GetUpcomingBookings handles GET /api/bookings/upcoming
func (h *BookingHandler) GetUpcomingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.GetUpcomingBookings(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "get upcoming bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetCalendar handles GET /api/bookings/calendar?month=YYYY-MM
// Without a month the current one is shown.
func (h *BookingHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	calendar, err := h.service.GetCalendar(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		handleServiceError(w, h.log, err, "get calendar")
		return
	}

	utils.ResponseSuccess(w, "success", calendar)
}

// GetBookingsByDay handles GET /api/bookings/day/{date}
func (h *BookingHandler) GetBookingsByDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.service.GetBookingsByDay(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		handleServiceError(w, h.log, err, "get bookings by day")
		return
	}

	utils.ResponseSuccess(w, "success", day)
}

// GetBookingsByApartment handles GET /api/bookings/apartment/{apartmentNumber}
func (h *BookingHandler) GetBookingsByApartment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParsePositiveInt(query.Get("page"), 1),
		PerPage: utils.ParsePositiveInt(query.Get("per_page"), utils.DefaultPerPage),
	}

	bookings, err := h.service.GetBookingsByApartment(r.Context(), chi.URLParam(r, "apartmentNumber"), req)
	if err != nil {
		handleServiceError(w, h.log, err, "get bookings by apartment")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBookingByCode handles GET /api/bookings/{code}
func (h *BookingHandler) GetBookingByCode(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetBookingByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "get booking by code")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// UpdateBooking handles PUT /api/bookings/{code}
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.UpdateBooking(r.Context(), chi.URLParam(r, "code"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update booking")
		return
	}

	utils.ResponseSuccess(w, "Booking rescheduled", booking)
}

// CancelBooking handles DELETE /api/bookings/{code}
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.CancelBooking(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking cancelled", booking)
}
