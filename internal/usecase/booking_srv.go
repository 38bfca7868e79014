package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/internal/data/repository"
	"charger-booking/internal/dto/request"
	"charger-booking/internal/dto/response"
	"charger-booking/pkg/apperror"
	"charger-booking/pkg/cache"
	"charger-booking/pkg/civiltime"
	"charger-booking/pkg/metrics"
	"charger-booking/pkg/mq"
	"charger-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Availability & lifecycle
	CheckAvailability(ctx context.Context, req *request.CheckAvailabilityRequest) (*response.AvailabilityResponse, error)
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.CreateBookingResponse, error)
	GetBookingByCode(ctx context.Context, code string) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, code string) (*response.BookingResponse, error)
	UpdateBooking(ctx context.Context, code string, req *request.UpdateBookingRequest) (*response.BookingResponse, error)

	// Views
	GetBookingsByDay(ctx context.Context, date string) (*response.DayResponse, error)
	GetCalendar(ctx context.Context, month string) (*response.CalendarResponse, error)
	GetBookingsByApartment(ctx context.Context, apartment string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	// GetActiveBooking returns nil when the charger is free right now.
	GetActiveBooking(ctx context.Context) (*response.BookingResponse, error)
	GetUpcomingBookings(ctx context.Context) ([]response.BookingResponse, error)
}

// Clock is the service's only source of "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// BookingDeps are the optional collaborators of the booking service. Nil
// fields fall back to no-op implementations and the system clock.
type BookingDeps struct {
	Cache       cache.Store
	Events      mq.Publisher
	Clock       Clock
	CalendarTTL time.Duration
}

// BookingEvent is the payload published on every lifecycle transition.
type BookingEvent struct {
	Event             string `json:"event"`
	BookingID         string `json:"booking_id"`
	ConfirmationCode  string `json:"confirmation_code"`
	ApartmentNumber   string `json:"apartment_number"`
	BookingDate       string `json:"booking_date"`
	TimeSlot          string `json:"time_slot"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Status            string `json:"status"`
	PreviousTimeSlot  string `json:"previous_time_slot,omitempty"`
	PreviousStartTime string `json:"previous_start_time,omitempty"`
	OccurredAt        string `json:"occurred_at"`
}

const (
	calendarKeyPrefix  = "calendar:"
	defaultCalendarTTL = 5 * time.Minute
	eventTimeout       = 2 * time.Second
)

type bookingService struct {
	repo        *repository.Repository
	config      utils.BookingConfig
	cache       cache.Store
	events      mq.Publisher
	clock       Clock
	calendarTTL time.Duration
	calendarGen *keyVersions
	log         *zap.Logger
}

func NewBookingService(repo *repository.Repository, config utils.BookingConfig, deps BookingDeps, log *zap.Logger) BookingService {
	defaults := utils.DefaultBookingConfig()
	if config.MaxDurationHours < 1 {
		config.MaxDurationHours = defaults.MaxDurationHours
	}
	if config.UpcomingLimit < 1 {
		config.UpcomingLimit = defaults.UpcomingLimit
	}
	if config.CodeAttempts < 1 {
		config.CodeAttempts = defaults.CodeAttempts
	}

	s := &bookingService{
		repo:        repo,
		config:      config,
		cache:       deps.Cache,
		events:      deps.Events,
		clock:       deps.Clock,
		calendarTTL: deps.CalendarTTL,
		calendarGen: newKeyVersions(),
		log:         log.With(zap.String("service", "booking")),
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.events == nil {
		s.events = mq.Noop{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.calendarTTL <= 0 {
		s.calendarTTL = defaultCalendarTTL
	}
	return s
}

// ==================== AVAILABILITY & LIFECYCLE ====================

func (s *bookingService) CheckAvailability(ctx context.Context, req *request.CheckAvailabilityRequest) (*response.AvailabilityResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var interval civiltime.Interval
	if req.StartTime == "" {
		from, to, err := civiltime.DayRange(req.Date)
		if err != nil {
			return nil, apperror.ErrValidation.WithMessage(err.Error())
		}
		interval = civiltime.Interval{Start: from, End: to}
	} else {
		iv, err := s.requestedInterval(req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		interval = iv
	}

	conflicts, err := s.repo.Booking.FindOverlapping(ctx, interval.Start, interval.End, uuid.Nil)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	return &response.AvailabilityResponse{
		Available: len(conflicts) == 0,
		StartTime: civiltime.FormatISO(interval.Start),
		EndTime:   civiltime.FormatISO(interval.End),
		Conflicts: response.BookingsToResponse(conflicts),
	}, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.CreateBookingResponse, error) {
	req.Normalize()
	if err := validateRequest(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	interval, err := s.requestedInterval(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	bookingDate, err := civiltime.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}

	now := s.clock.Now()

	// the user record only feeds form autofill, so it never blocks a booking
	if err := upsertUser(ctx, s.repo.User, req.ApartmentNumber, req.FullName, req.Email, now); err != nil {
		s.log.Warn("Failed to upsert user for booking",
			zap.Error(err),
			zap.String("apartment_number", req.ApartmentNumber),
		)
	}

	conflicts, err := s.repo.Booking.FindOverlapping(ctx, interval.Start, interval.End, uuid.Nil)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}
	if len(conflicts) > 0 {
		metrics.RecordConflict("precheck")
		return nil, conflictError(conflicts)
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ApartmentNumber: req.ApartmentNumber,
		FullName:        req.FullName,
		VehiclePlate:    req.VehiclePlate,
		BookingDate:     bookingDate,
		TimeSlot:        civiltime.FormatSlot(interval),
		StartTime:       interval.Start,
		EndTime:         interval.End,
		Status:          entity.BookingStatusActive,
	}

	if err := s.insertWithFreshCode(ctx, booking); err != nil {
		return nil, err
	}

	s.invalidateCalendar(ctx, booking)
	s.publish(ctx, mq.KeyBookingCreated, booking, nil)
	metrics.BookingsCreated.Inc()

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("confirmation_code", booking.ConfirmationCode),
		zap.String("apartment_number", booking.ApartmentNumber),
		zap.String("start_time", civiltime.FormatISO(booking.StartTime)),
		zap.String("end_time", civiltime.FormatISO(booking.EndTime)),
	)

	return &response.CreateBookingResponse{
		ConfirmationCode: booking.ConfirmationCode,
		Booking:          response.BookingToResponse(booking),
	}, nil
}

// insertWithFreshCode draws confirmation codes until one is accepted by the
// store. An overlap rejected by the store means a concurrent writer won.
func (s *bookingService) insertWithFreshCode(ctx context.Context, booking *entity.Booking) error {
	for attempt := 1; attempt <= s.config.CodeAttempts; attempt++ {
		code, err := utils.GenerateConfirmationCode()
		if err != nil {
			return apperror.ErrTransient.WithError(err)
		}
		booking.ConfirmationCode = code

		err = s.repo.Booking.Create(ctx, booking)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateCode):
			metrics.CodeCollisions.Inc()
			s.log.Warn("Confirmation code collision, regenerating",
				zap.String("confirmation_code", code),
				zap.Int("attempt", attempt),
			)
		case errors.Is(err, repository.ErrOverlap):
			metrics.RecordConflict("storage")
			return s.storageConflict(ctx, booking.StartTime, booking.EndTime, uuid.Nil)
		default:
			return apperror.ErrTransient.WithError(err)
		}
	}

	return apperror.ErrTransient.WithMessage("could not allocate a confirmation code, try again")
}

func (s *bookingService) GetBookingByCode(ctx context.Context, code string) (*response.BookingResponse, error) {
	booking, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, code string) (*response.BookingResponse, error) {
	booking, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return nil, apperror.ErrAlreadyCancelled
	}

	now := s.clock.Now()
	if err := s.repo.Booking.Cancel(ctx, booking.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotActive) {
			return nil, apperror.ErrAlreadyCancelled
		}
		return nil, apperror.ErrTransient.WithError(err)
	}

	booking.Status = entity.BookingStatusCancelled
	booking.CancelledAt = &now
	booking.UpdatedAt = now

	s.invalidateCalendar(ctx, booking)
	s.publish(ctx, mq.KeyBookingCancelled, booking, nil)
	metrics.BookingsCancelled.Inc()

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("confirmation_code", booking.ConfirmationCode),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, code string, req *request.UpdateBookingRequest) (*response.BookingResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	booking, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return nil, apperror.ErrAlreadyCancelled.WithMessage("cancelled bookings cannot be rescheduled")
	}

	interval, err := s.requestedInterval(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	bookingDate, err := civiltime.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}

	conflicts, err := s.repo.Booking.FindOverlapping(ctx, interval.Start, interval.End, booking.ID)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}
	if len(conflicts) > 0 {
		metrics.RecordConflict("precheck")
		return nil, conflictError(conflicts)
	}

	previous := *booking
	updated := *booking
	updated.BookingDate = bookingDate
	updated.TimeSlot = civiltime.FormatSlot(interval)
	updated.StartTime = interval.Start
	updated.EndTime = interval.End
	updated.UpdatedAt = s.clock.Now()

	if err := s.repo.Booking.Reschedule(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			metrics.RecordConflict("storage")
			return nil, s.storageConflict(ctx, interval.Start, interval.End, booking.ID)
		case errors.Is(err, repository.ErrNotActive):
			return nil, apperror.ErrAlreadyCancelled.WithMessage("cancelled bookings cannot be rescheduled")
		default:
			return nil, apperror.ErrTransient.WithError(err)
		}
	}

	s.invalidateCalendar(ctx, &previous, &updated)
	s.publish(ctx, mq.KeyBookingRescheduled, &updated, &previous)
	metrics.BookingsRescheduled.Inc()

	s.log.Info("Booking rescheduled",
		zap.String("booking_id", updated.ID.String()),
		zap.String("confirmation_code", updated.ConfirmationCode),
		zap.String("from", previous.TimeSlot),
		zap.String("to", updated.TimeSlot),
	)

	resp := response.BookingToResponse(&updated)
	return &resp, nil
}

// ==================== VIEWS ====================

func (s *bookingService) GetBookingsByDay(ctx context.Context, date string) (*response.DayResponse, error) {
	from, to, err := civiltime.DayRange(date)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}

	bookings, err := s.repo.Booking.FindActiveByBookingDate(ctx, from, to)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	return &response.DayResponse{
		Date:     civiltime.CivilDate(from),
		Bookings: response.BookingsToResponse(bookings),
	}, nil
}

// GetCalendar summarizes month (YYYY-MM); an empty month means the current one.
func (s *bookingService) GetCalendar(ctx context.Context, month string) (*response.CalendarResponse, error) {
	if month == "" {
		month = civiltime.CivilMonth(s.clock.Now())
	}
	from, to, err := civiltime.MonthRange(month)
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}
	month = civiltime.CivilMonth(from)
	key := calendarKeyPrefix + month

	var cached response.CalendarResponse
	err = s.cache.Get(ctx, key, &cached)
	if err == nil {
		metrics.RecordCacheLookup(true)
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("Calendar cache read failed", zap.Error(err), zap.String("key", key))
	}
	metrics.RecordCacheLookup(false)

	version := s.calendarGen.current(key)
	bookings, err := s.repo.Booking.FindActiveByBookingDate(ctx, from, to)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	calendar := &response.CalendarResponse{
		Month:    month,
		Days:     buildCalendarDays(from, to, bookings),
		Bookings: response.BookingsToResponse(bookings),
	}

	if s.calendarGen.current(key) != version {
		// a write landed during the read; the next request rebuilds
		return calendar, nil
	}
	if err := s.cache.Set(ctx, key, calendar, s.calendarTTL); err != nil {
		s.log.Warn("Calendar cache write failed", zap.Error(err), zap.String("key", key))
		return calendar, nil
	}
	// an invalidation between the check and Set may have run its Delete first
	if s.calendarGen.current(key) != version {
		s.dropCalendarKeys(ctx, []string{key})
	}

	return calendar, nil
}

// buildCalendarDays summarizes each civil day of [from, to) that has at
// least one booking dated on it or any occupied time.
func buildCalendarDays(from, to time.Time, bookings []*entity.Booking) []response.CalendarDay {
	days := make([]response.CalendarDay, 0)

	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		dayEnd := day.AddDate(0, 0, 1)
		date := civiltime.CivilDate(day)

		entry := response.CalendarDay{Date: date, TimeSlots: []string{}}
		var occupied time.Duration
		for _, b := range bookings {
			if civiltime.CivilDate(b.BookingDate) == date {
				entry.BookingCount++
				entry.TimeSlots = append(entry.TimeSlots, b.TimeSlot)
			}
			occupied += clippedDuration(b.StartTime, b.EndTime, day, dayEnd)
		}

		if entry.BookingCount == 0 && occupied == 0 {
			continue
		}
		entry.BookedHours = occupied.Hours()
		entry.FullyOccupied = occupied >= dayEnd.Sub(day)
		days = append(days, entry)
	}

	return days
}

func clippedDuration(start, end, from, to time.Time) time.Duration {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func (s *bookingService) GetBookingsByApartment(ctx context.Context, apartment string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if !utils.ValidateVar(apartment, "required,apartment") {
		return nil, apperror.ErrValidation.WithMessage("apartment number must be TOWER-UNIT, e.g. 5-1502")
	}

	// Set defaults
	if req == nil {
		req = &request.PaginatedRequest{}
	}
	if req.Page < 1 {
		req.Page = 1
	}
	limit := req.Limit()
	req.PerPage = limit

	total, err := s.repo.Booking.CountByApartment(ctx, apartment)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	bookings, err := s.repo.Booking.FindByApartment(ctx, apartment, limit, req.Offset())
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), req.Page, limit, total), nil
}

func (s *bookingService) GetActiveBooking(ctx context.Context) (*response.BookingResponse, error) {
	bookings, err := s.repo.Booking.FindActiveAt(ctx, s.clock.Now())
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	if len(bookings) > 1 {
		s.log.Error("More than one active booking contains the current instant",
			zap.Int("count", len(bookings)),
		)
	}

	resp := response.BookingToResponse(bookings[0])
	return &resp, nil
}

func (s *bookingService) GetUpcomingBookings(ctx context.Context) ([]response.BookingResponse, error) {
	bookings, err := s.repo.Booking.FindUpcoming(ctx, s.clock.Now(), s.config.UpcomingLimit)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}

	return response.BookingsToResponse(bookings), nil
}

// ==================== HELPERS ====================

func validateRequest(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return apperror.ErrValidation.
			WithMessage(utils.FormatValidationErrors(errs)).
			WithDetails(errs)
	}
	return nil
}

// requestedInterval resolves the clocks on date and enforces whole-hour
// durations within [1, MaxDurationHours].
func (s *bookingService) requestedInterval(date, startClock, endClock string) (civiltime.Interval, error) {
	interval, err := civiltime.SlotInterval(date, startClock, endClock)
	if err != nil {
		return civiltime.Interval{}, apperror.ErrValidation.WithMessage(err.Error())
	}

	d := interval.Duration()
	maxDuration := time.Duration(s.config.MaxDurationHours) * time.Hour
	if d%time.Hour != 0 || d < time.Hour || d > maxDuration {
		return civiltime.Interval{}, apperror.ErrValidation.WithMessage(
			fmt.Sprintf("duration must be a whole number of hours between 1 and %d, got %s", s.config.MaxDurationHours, d),
		)
	}

	return interval, nil
}

func (s *bookingService) findByCode(ctx context.Context, code string) (*entity.Booking, error) {
	normalized, ok := utils.NormalizeConfirmationCode(code)
	if !ok {
		return nil, apperror.ErrValidation.WithMessage("confirmation code must be 8 letters or digits")
	}

	bookings, err := s.repo.Booking.FindByCode(ctx, normalized)
	if err != nil {
		return nil, apperror.ErrTransient.WithError(err)
	}
	if len(bookings) == 0 {
		return nil, apperror.ErrNotFound.WithMessage("booking not found")
	}
	if len(bookings) > 1 {
		s.log.Warn("Confirmation code shared by several bookings, using the oldest",
			zap.String("confirmation_code", normalized),
			zap.Int("count", len(bookings)),
		)
	}

	return bookings[0], nil
}

func conflictError(conflicts []*entity.Booking) error {
	return apperror.ErrConflict.WithDetails(response.BookingsToResponse(conflicts))
}

// storageConflict reports a conflict detected by the store. The conflicting
// bookings are re-read for the payload; a failed re-read still yields the
// conflict.
func (s *bookingService) storageConflict(ctx context.Context, start, end time.Time, excludeID uuid.UUID) error {
	conflicts, err := s.repo.Booking.FindOverlapping(ctx, start, end, excludeID)
	if err != nil {
		s.log.Warn("Failed to load conflicting bookings", zap.Error(err))
		return apperror.ErrConflict
	}
	return conflictError(conflicts)
}

func (s *bookingService) invalidateCalendar(ctx context.Context, bookings ...*entity.Booking) {
	seen := make(map[string]bool)
	var keys []string
	for _, b := range bookings {
		for _, t := range []time.Time{b.BookingDate, b.StartTime, b.EndTime} {
			key := calendarKeyPrefix + civiltime.CivilMonth(t)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	s.calendarGen.bump(keys...)
	s.dropCalendarKeys(ctx, keys)
}

func (s *bookingService) dropCalendarKeys(ctx context.Context, keys []string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Calendar cache invalidation failed", zap.Error(err), zap.Strings("keys", keys))
	}
}

// keyVersions counts invalidations per cache key so a reader can tell
// whether its snapshot went stale while it was being built.
type keyVersions struct {
	mu       sync.Mutex
	versions map[string]uint64
}

func newKeyVersions() *keyVersions {
	return &keyVersions{versions: make(map[string]uint64)}
}

func (v *keyVersions) current(key string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.versions[key]
}

func (v *keyVersions) bump(keys ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, k := range keys {
		v.versions[k]++
	}
}

// publish is best effort: a broker outage never fails the booking operation.
func (s *bookingService) publish(ctx context.Context, key string, booking, previous *entity.Booking) {
	evt := BookingEvent{
		Event:            key,
		BookingID:        booking.ID.String(),
		ConfirmationCode: booking.ConfirmationCode,
		ApartmentNumber:  booking.ApartmentNumber,
		BookingDate:      civiltime.CivilDate(booking.BookingDate),
		TimeSlot:         booking.TimeSlot,
		StartTime:        civiltime.FormatISO(booking.StartTime),
		EndTime:          civiltime.FormatISO(booking.EndTime),
		Status:           string(booking.Status),
		OccurredAt:       civiltime.FormatISO(s.clock.Now()),
	}
	if previous != nil {
		evt.PreviousTimeSlot = previous.TimeSlot
		evt.PreviousStartTime = civiltime.FormatISO(previous.StartTime)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()

	err := s.events.PublishJSON(pubCtx, key, evt)
	metrics.RecordEvent(key, err)
	if err != nil {
		s.log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("event", key),
			zap.String("confirmation_code", booking.ConfirmationCode),
		)
	}
}
