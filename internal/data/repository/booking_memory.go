package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"charger-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryBookingRepository keeps bookings in process. The overlap re-check and
// the write happen under the same lock, which gives it the same exclusion
// guarantee as the database constraint.
type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings []*entity.Booking
	byID     map[uuid.UUID]*entity.Booking
	log      *zap.Logger
}

func NewMemoryBookingRepository(log *zap.Logger) BookingRepository {
	return &memoryBookingRepository{
		byID: make(map[uuid.UUID]*entity.Booking),
		log:  log.With(zap.String("repository", "booking_memory")),
	}
}

func cloneBooking(b *entity.Booking) *entity.Booking {
	out := *b
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		out.CancelledAt = &at
	}
	return &out
}

func (r *memoryBookingRepository) overlappingLocked(start, end time.Time, excludeID uuid.UUID) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.bookings {
		if !b.IsActive() || b.ID == excludeID {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.ConfirmationCode == booking.ConfirmationCode {
			return ErrDuplicateCode
		}
	}
	if len(r.overlappingLocked(booking.StartTime, booking.EndTime, uuid.Nil)) > 0 {
		return ErrOverlap
	}

	stored := cloneBooking(booking)
	r.bookings = append(r.bookings, stored)
	r.byID[stored.ID] = stored

	return nil
}

func (r *memoryBookingRepository) FindByCode(ctx context.Context, code string) ([]*entity.Booking, error) {
	return r.filter(ctx, func(b *entity.Booking) bool {
		return b.ConfirmationCode == code
	}, byCreatedAt)
}

func (r *memoryBookingRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) ([]*entity.Booking, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.overlappingLocked(start, end, excludeID)
	sort.SliceStable(out, byStartTime(out))
	return out, nil
}

func (r *memoryBookingRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[id]
	if !ok || !b.IsActive() {
		return ErrNotActive
	}

	b.Status = entity.BookingStatusCancelled
	b.CancelledAt = &at
	b.UpdatedAt = at
	return nil
}

func (r *memoryBookingRepository) Reschedule(ctx context.Context, booking *entity.Booking) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byID[booking.ID]
	if !ok || !b.IsActive() {
		return ErrNotActive
	}
	if len(r.overlappingLocked(booking.StartTime, booking.EndTime, booking.ID)) > 0 {
		return ErrOverlap
	}

	b.BookingDate = booking.BookingDate
	b.TimeSlot = booking.TimeSlot
	b.StartTime = booking.StartTime
	b.EndTime = booking.EndTime
	b.UpdatedAt = booking.UpdatedAt
	return nil
}

func (r *memoryBookingRepository) FindActiveByBookingDate(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	return r.filter(ctx, func(b *entity.Booking) bool {
		return b.IsActive() && !b.BookingDate.Before(from) && b.BookingDate.Before(to)
	}, byStartTime)
}

func (r *memoryBookingRepository) FindByApartment(ctx context.Context, apartment string, limit, offset int) ([]*entity.Booking, error) {
	all, err := r.filter(ctx, func(b *entity.Booking) bool {
		return b.ApartmentNumber == apartment
	}, newestFirst)
	if err != nil {
		return nil, err
	}

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryBookingRepository) CountByApartment(ctx context.Context, apartment string) (int64, error) {
	all, err := r.filter(ctx, func(b *entity.Booking) bool {
		return b.ApartmentNumber == apartment
	}, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (r *memoryBookingRepository) FindActiveAt(ctx context.Context, at time.Time) ([]*entity.Booking, error) {
	return r.filter(ctx, func(b *entity.Booking) bool {
		return b.IsActive() && !b.StartTime.After(at) && b.EndTime.After(at)
	}, byStartTime)
}

func (r *memoryBookingRepository) FindUpcoming(ctx context.Context, after time.Time, limit int) ([]*entity.Booking, error) {
	all, err := r.filter(ctx, func(b *entity.Booking) bool {
		return b.IsActive() && b.EndTime.After(after)
	}, byEndTime)
	if err != nil {
		return nil, err
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryBookingRepository) FindLatestActiveByApartment(ctx context.Context, apartment string) (*entity.Booking, error) {
	all, err := r.filter(ctx, func(b *entity.Booking) bool {
		return b.IsActive() && b.ApartmentNumber == apartment
	}, byCreatedAt)
	if err != nil {
		return nil, err
	}

	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

func (r *memoryBookingRepository) filter(ctx context.Context, keep func(*entity.Booking) bool, order func([]*entity.Booking) func(i, j int) bool) ([]*entity.Booking, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}

	if order != nil {
		sort.SliceStable(out, order(out))
	}
	return out, nil
}

func byStartTime(bs []*entity.Booking) func(i, j int) bool {
	return func(i, j int) bool { return bs[i].StartTime.Before(bs[j].StartTime) }
}

func byEndTime(bs []*entity.Booking) func(i, j int) bool {
	return func(i, j int) bool { return bs[i].EndTime.Before(bs[j].EndTime) }
}

func byCreatedAt(bs []*entity.Booking) func(i, j int) bool {
	return func(i, j int) bool { return bs[i].CreatedAt.Before(bs[j].CreatedAt) }
}

func newestFirst(bs []*entity.Booking) func(i, j int) bool {
	return func(i, j int) bool {
		if !bs[i].BookingDate.Equal(bs[j].BookingDate) {
			return bs[i].BookingDate.After(bs[j].BookingDate)
		}
		return bs[i].StartTime.After(bs[j].StartTime)
	}
}
