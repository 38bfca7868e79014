package request

import "strings"

type CreateBookingRequest struct {
	ApartmentNumber string  `json:"apartment_number" validate:"required,apartment"`
	FullName        string  `json:"full_name" validate:"required,min=2,max=100"`
	VehiclePlate    string  `json:"vehicle_plate" validate:"required,max=20"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Date            string  `json:"date" validate:"required,civildate"`
	StartTime       string  `json:"start_time" validate:"required,clock"`
	EndTime         string  `json:"end_time" validate:"required,clock"`
}

// Normalize trims the free-text fields so that blank values fail validation
// instead of being stored empty.
func (r *CreateBookingRequest) Normalize() {
	if r == nil {
		return
	}
	r.ApartmentNumber = strings.TrimSpace(r.ApartmentNumber)
	r.FullName = strings.TrimSpace(r.FullName)
	r.VehiclePlate = strings.ToUpper(strings.TrimSpace(r.VehiclePlate))
	r.Email = trimOptional(r.Email)
}

// UpdateBookingRequest moves an active booking to a new interval.
type UpdateBookingRequest struct {
	Date      string `json:"date" validate:"required,civildate"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// CheckAvailabilityRequest asks about one interval, or the whole civil day
// when both clocks are omitted.
type CheckAvailabilityRequest struct {
	Date      string `json:"date" validate:"required,civildate"`
	StartTime string `json:"start_time,omitempty" validate:"required_with=EndTime,omitempty,clock"`
	EndTime   string `json:"end_time,omitempty" validate:"required_with=StartTime,omitempty,clock"`
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
