package response

import (
	"charger-booking/internal/data/entity"
	"charger-booking/pkg/civiltime"
)

type UserResponse struct {
	ID              string  `json:"id"`
	ApartmentNumber string  `json:"apartment_number"`
	FullName        string  `json:"full_name"`
	Email           *string `json:"email,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// UserProfileResponse is what the booking form autofills from.
type UserProfileResponse struct {
	UserResponse
	VehiclePlate *string `json:"vehicle_plate,omitempty"`
}

func UserToResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:              u.ID.String(),
		ApartmentNumber: u.ApartmentNumber,
		FullName:        u.FullName,
		Email:           u.Email,
		CreatedAt:       civiltime.FormatISO(u.CreatedAt),
		UpdatedAt:       civiltime.FormatISO(u.UpdatedAt),
	}
}
