package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is one reservation of the shared charger.
//
// StartTime and EndTime are absolute instants and the only source of truth for
// conflicts. BookingDate (civil midnight) is used for day bucketing and
// TimeSlot ("HH:MM-HH:MM") is a display copy kept in sync on every write.
type Booking struct {
	Base
	ConfirmationCode string        `db:"confirmation_code"`
	ApartmentNumber  string        `db:"apartment_number"`
	FullName         string        `db:"full_name"`
	VehiclePlate     string        `db:"vehicle_plate"`
	BookingDate      time.Time     `db:"booking_date"`
	TimeSlot         string        `db:"time_slot"`
	StartTime        time.Time     `db:"start_time"`
	EndTime          time.Time     `db:"end_time"`
	Status           BookingStatus `db:"status"`
	CancelledAt      *time.Time    `db:"cancelled_at"`
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// Overlaps applies the half-open test [StartTime, EndTime) against [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}
