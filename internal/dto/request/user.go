package request

import "strings"

type UpsertUserRequest struct {
	ApartmentNumber string  `json:"apartment_number" validate:"required,apartment"`
	FullName        string  `json:"full_name" validate:"required,min=2,max=100"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
}

func (r *UpsertUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.ApartmentNumber = strings.TrimSpace(r.ApartmentNumber)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = trimOptional(r.Email)
}
