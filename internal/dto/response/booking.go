package response

import (
	"charger-booking/internal/data/entity"
	"charger-booking/pkg/civiltime"
)

// BookingResponse renders every instant as a civil ISO-8601 string with the
// -05:00 offset, never as UTC.
type BookingResponse struct {
	ID               string               `json:"id"`
	ConfirmationCode string               `json:"confirmation_code"`
	ApartmentNumber  string               `json:"apartment_number"`
	FullName         string               `json:"full_name"`
	VehiclePlate     string               `json:"vehicle_plate"`
	BookingDate      string               `json:"booking_date"`
	TimeSlot         string               `json:"time_slot"`
	StartTime        string               `json:"start_time"`
	EndTime          string               `json:"end_time"`
	DurationHours    int                  `json:"duration_hours"`
	Status           entity.BookingStatus `json:"status"`
	CancelledAt      *string              `json:"cancelled_at,omitempty"`
	CreatedAt        string               `json:"created_at"`
	UpdatedAt        string               `json:"updated_at"`
}

type CreateBookingResponse struct {
	ConfirmationCode string          `json:"confirmation_code"`
	Booking          BookingResponse `json:"booking"`
}

type AvailabilityResponse struct {
	Available bool              `json:"available"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Conflicts []BookingResponse `json:"conflicts"`
}

type DayResponse struct {
	Date     string            `json:"date"`
	Bookings []BookingResponse `json:"bookings"`
}

// CalendarDay summarizes the occupancy of one civil day.
type CalendarDay struct {
	Date          string   `json:"date"`
	BookingCount  int      `json:"booking_count"`
	BookedHours   float64  `json:"booked_hours"`
	TimeSlots     []string `json:"time_slots"`
	FullyOccupied bool     `json:"fully_occupied"`
}

type CalendarResponse struct {
	Month    string            `json:"month"`
	Days     []CalendarDay     `json:"days"`
	Bookings []BookingResponse `json:"bookings"`
}

// Helper converters
func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:               b.ID.String(),
		ConfirmationCode: b.ConfirmationCode,
		ApartmentNumber:  b.ApartmentNumber,
		FullName:         b.FullName,
		VehiclePlate:     b.VehiclePlate,
		BookingDate:      civiltime.CivilDate(b.BookingDate),
		TimeSlot:         b.TimeSlot,
		StartTime:        civiltime.FormatISO(b.StartTime),
		EndTime:          civiltime.FormatISO(b.EndTime),
		DurationHours:    int(b.EndTime.Sub(b.StartTime).Hours()),
		Status:           b.Status,
		CreatedAt:        civiltime.FormatISO(b.CreatedAt),
		UpdatedAt:        civiltime.FormatISO(b.UpdatedAt),
	}
	if b.CancelledAt != nil {
		at := civiltime.FormatISO(*b.CancelledAt)
		resp.CancelledAt = &at
	}
	return resp
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
