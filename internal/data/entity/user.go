package entity

// User is a form-autofill cache keyed by apartment number. It plays no part
// in conflict detection.
type User struct {
	Base
	ApartmentNumber string  `db:"apartment_number"`
	FullName        string  `db:"full_name"`
	Email           *string `db:"email"`
}
