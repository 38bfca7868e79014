package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/internal/data/repository"
	"charger-booking/internal/dto/request"
	"charger-booking/internal/dto/response"
	"charger-booking/pkg/apperror"
	"charger-booking/pkg/cache"
	"charger-booking/pkg/civiltime"
	"charger-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ==================== FAKES ====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	fail error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.fail
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// mapStore round-trips values through JSON like the Redis store does.
type mapStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	hits    int
	deleted []string
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *mapStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *mapStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *mapStore) Close() error { return nil }

// collidingBookings reports the first n inserts as confirmation code collisions.
type collidingBookings struct {
	repository.BookingRepository
	mu        sync.Mutex
	remaining int
	codes     []string
}

func (c *collidingBookings) Create(ctx context.Context, b *entity.Booking) error {
	c.mu.Lock()
	c.codes = append(c.codes, b.ConfirmationCode)
	if c.remaining > 0 {
		c.remaining--
		c.mu.Unlock()
		return repository.ErrDuplicateCode
	}
	c.mu.Unlock()
	return c.BookingRepository.Create(ctx, b)
}

// racingBookings runs onRead once while a month is being read, the way a
// concurrent write would land between the snapshot and the cache fill.
type racingBookings struct {
	repository.BookingRepository
	once   sync.Once
	onRead func()
}

func (r *racingBookings) FindActiveByBookingDate(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	bookings, err := r.BookingRepository.FindActiveByBookingDate(ctx, from, to)
	r.once.Do(r.onRead)
	return bookings, err
}

type failingUsers struct {
	repository.UserRepository
}

func (failingUsers) Upsert(context.Context, *entity.User) error {
	return errors.New("users table unavailable")
}

// ==================== HELPERS ====================

type fixture struct {
	svc    BookingService
	users  UserService
	repo   *repository.Repository
	clock  *fakeClock
	events *recordingPublisher
	cache  *mapStore
}

func newFixture(t *testing.T, cfg utils.BookingConfig) *fixture {
	t.Helper()

	log := zap.NewNop()
	f := &fixture{
		repo:   repository.NewMemoryRepository(log),
		clock:  &fakeClock{now: at(t, "2026-01-09", 8, 0)},
		events: &recordingPublisher{},
		cache:  newMapStore(),
	}
	f.build(cfg)
	return f
}

func (f *fixture) build(cfg utils.BookingConfig) {
	log := zap.NewNop()
	deps := BookingDeps{Cache: f.cache, Events: f.events, Clock: f.clock}
	f.svc = NewBookingService(f.repo, cfg, deps, log)
	f.users = NewUserService(f.repo, f.clock, log)
}

func at(t *testing.T, date string, hour, minute int) time.Time {
	t.Helper()
	ts, err := civiltime.DateTime(date, hour, minute)
	if err != nil {
		t.Fatalf("DateTime(%s %02d:%02d): %v", date, hour, minute, err)
	}
	return ts
}

func createReq(apartment, date, start, end string) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ApartmentNumber: apartment,
		FullName:        "Ana Pérez",
		VehiclePlate:    "abc123",
		Date:            date,
		StartTime:       start,
		EndTime:         end,
	}
}

func mustCreate(t *testing.T, f *fixture, req *request.CreateBookingRequest) *response.CreateBookingResponse {
	t.Helper()
	resp, err := f.svc.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateBooking(%s %s-%s) error = %v", req.Date, req.StartTime, req.EndTime, err)
	}
	return resp
}

func conflictCodes(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindConflict {
		t.Fatalf("error = %v, want conflict", err)
	}
	details, ok := appErr.Details.([]response.BookingResponse)
	if !ok {
		t.Fatalf("conflict details = %T, want []response.BookingResponse", appErr.Details)
	}
	codes := make([]string, 0, len(details))
	for _, d := range details {
		codes = append(codes, d.ConfirmationCode)
	}
	return codes
}

// ==================== LIFECYCLE ====================

func TestCreateBooking_OvernightAndConflict(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	req := createReq("2-101", "2026-01-09", "20:00", "02:00")
	req.VehiclePlate = "abc-123"
	created := mustCreate(t, f, req)
	b := created.Booking

	if b.TimeSlot != "20:00-02:00" {
		t.Errorf("time slot = %s, want 20:00-02:00", b.TimeSlot)
	}
	if b.StartTime != "2026-01-09T20:00:00.000-05:00" {
		t.Errorf("start = %s", b.StartTime)
	}
	if b.EndTime != "2026-01-10T02:00:00.000-05:00" {
		t.Errorf("end = %s", b.EndTime)
	}
	if b.DurationHours != 6 {
		t.Errorf("duration = %d, want 6", b.DurationHours)
	}
	if b.BookingDate != "2026-01-09" || b.Status != entity.BookingStatusActive {
		t.Errorf("booking date/status = %s/%s", b.BookingDate, b.Status)
	}
	if b.VehiclePlate != "ABC-123" {
		t.Errorf("plate = %s, want upper-cased ABC-123", b.VehiclePlate)
	}
	if _, ok := utils.NormalizeConfirmationCode(created.ConfirmationCode); !ok {
		t.Errorf("confirmation code %q is malformed", created.ConfirmationCode)
	}

	_, err := f.svc.CreateBooking(ctx, createReq("3-201", "2026-01-09", "21:00", "22:00"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("overlapping create error = %v, want conflict", err)
	}
	if codes := conflictCodes(t, err); len(codes) != 1 || codes[0] != created.ConfirmationCode {
		t.Errorf("conflicts = %v, want [%s]", codes, created.ConfirmationCode)
	}

	// touching the end boundary is not an overlap
	mustCreate(t, f, createReq("3-201", "2026-01-10", "02:00", "03:00"))
}

func TestCreateBooking_ConflictWritesNothing(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "12:00"))
	before := len(f.events.Keys())

	if _, err := f.svc.CreateBooking(ctx, createReq("3-201", "2026-01-09", "11:00", "13:00")); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}

	count, err := f.repo.Booking.CountByApartment(ctx, "3-201")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rejected create stored %d bookings", count)
	}
	if got := len(f.events.Keys()); got != before {
		t.Errorf("rejected create published %d events", got-before)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t, utils.BookingConfig{MaxDurationHours: 8})

	tests := []struct {
		name string
		req  *request.CreateBookingRequest
	}{
		{"apartment without tower", createReq("1502", "2026-01-09", "10:00", "11:00")},
		{"impossible date", createReq("5-1502", "2026-02-30", "10:00", "11:00")},
		{"bad clock", createReq("5-1502", "2026-01-09", "10:00", "25:00")},
		{"half hour", createReq("5-1502", "2026-01-09", "10:00", "10:30")},
		{"longer than max", createReq("5-1502", "2026-01-09", "08:00", "17:00")},
		{"equal clocks exceed max", createReq("5-1502", "2026-01-09", "08:00", "08:00")},
		{"missing plate", func() *request.CreateBookingRequest {
			r := createReq("5-1502", "2026-01-09", "10:00", "11:00")
			r.VehiclePlate = ""
			return r
		}()},
		{"blank plate", func() *request.CreateBookingRequest {
			r := createReq("5-1502", "2026-01-09", "10:00", "11:00")
			r.VehiclePlate = "   "
			return r
		}()},
		{"blank name", func() *request.CreateBookingRequest {
			r := createReq("5-1502", "2026-01-09", "10:00", "11:00")
			r.FullName = "   "
			return r
		}()},
		{"name of one letter after trim", func() *request.CreateBookingRequest {
			r := createReq("5-1502", "2026-01-09", "10:00", "11:00")
			r.FullName = "  A \t"
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(context.Background(), tt.req)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestCreateBooking_EqualClocksIsFullDay(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())

	created := mustCreate(t, f, createReq("5-1502", "2026-01-15", "08:00", "08:00"))
	if created.Booking.DurationHours != 24 {
		t.Errorf("duration = %d, want 24", created.Booking.DurationHours)
	}
	if created.Booking.EndTime != "2026-01-16T08:00:00.000-05:00" {
		t.Errorf("end = %s", created.Booking.EndTime)
	}
}

func TestCreateBooking_ConcurrentSameInterval(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateBooking(context.Background(), createReq("5-1502", "2026-01-09", "18:00", "20:00"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 || conflicts != n-1 || len(others) != 0 {
		t.Fatalf("successes=%d conflicts=%d others=%v, want 1/%d/none", successes, conflicts, others, n-1)
	}

	active, err := f.repo.Booking.FindOverlapping(context.Background(), at(t, "2026-01-09", 0, 0), at(t, "2026-01-10", 0, 0), uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Errorf("stored active bookings = %d, want 1", len(active))
	}
}

func TestCreateBooking_RetriesCodeCollisions(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	colliding := &collidingBookings{BookingRepository: f.repo.Booking, remaining: 2}
	f.repo.Booking = colliding
	f.build(utils.DefaultBookingConfig())

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "11:00"))
	if len(colliding.codes) != 3 {
		t.Fatalf("insert attempts = %d, want 3", len(colliding.codes))
	}
	if created.ConfirmationCode != colliding.codes[2] {
		t.Errorf("returned code %s, want the accepted one %s", created.ConfirmationCode, colliding.codes[2])
	}

	colliding.remaining = 100
	_, err := f.svc.CreateBooking(context.Background(), createReq("5-1502", "2026-01-09", "12:00", "13:00"))
	if !errors.Is(err, apperror.ErrTransient) {
		t.Errorf("exhausted attempts error = %v, want transient", err)
	}
}

func TestCreateBooking_UserUpsertFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	f.repo.User = failingUsers{UserRepository: f.repo.User}
	f.build(utils.DefaultBookingConfig())

	mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "11:00"))
}

func TestCreateBooking_UpsertsUser(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	email := "Ana@Example.com"
	req := createReq("5-1502", "2026-01-09", "10:00", "11:00")
	req.Email = &email
	mustCreate(t, f, req)

	profile, err := f.users.GetUserByApartment(context.Background(), "5-1502")
	if err != nil {
		t.Fatalf("GetUserByApartment() error = %v", err)
	}
	if profile.FullName != "Ana Pérez" {
		t.Errorf("full name = %s", profile.FullName)
	}
	if profile.Email == nil || *profile.Email != "ana@example.com" {
		t.Errorf("email = %v, want ana@example.com", profile.Email)
	}
	if profile.VehiclePlate == nil || *profile.VehiclePlate != "ABC123" {
		t.Errorf("vehicle plate = %v, want ABC123", profile.VehiclePlate)
	}
}

func TestCreateBooking_TrimsFreeText(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	blank := "  "
	req := createReq(" 5-1502 ", "2026-01-09", "10:00", "11:00")
	req.FullName = "  Ana Pérez "
	req.VehiclePlate = " abc123\t"
	req.Email = &blank

	created := mustCreate(t, f, req)
	if created.Booking.FullName != "Ana Pérez" || created.Booking.VehiclePlate != "ABC123" {
		t.Errorf("stored name/plate = %q/%q", created.Booking.FullName, created.Booking.VehiclePlate)
	}
	if created.Booking.ApartmentNumber != "5-1502" {
		t.Errorf("apartment = %q", created.Booking.ApartmentNumber)
	}

	profile, err := f.users.GetUserByApartment(context.Background(), "5-1502")
	if err != nil {
		t.Fatalf("GetUserByApartment() error = %v", err)
	}
	if profile.Email != nil {
		t.Errorf("blank email stored as %q", *profile.Email)
	}
}

func TestGetBookingByCode_Normalizes(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "11:00"))
	code := created.ConfirmationCode

	for _, input := range []string{code, utils.FormatConfirmationCode(code), "  " + strings.ToLower(code[:4]) + "-" + strings.ToLower(code[4:]) + " "} {
		got, err := f.svc.GetBookingByCode(ctx, input)
		if err != nil {
			t.Fatalf("GetBookingByCode(%q) error = %v", input, err)
		}
		if got.ID != created.Booking.ID {
			t.Errorf("GetBookingByCode(%q) returned %s, want %s", input, got.ID, created.Booking.ID)
		}
	}

	if _, err := f.svc.GetBookingByCode(ctx, "ZZZZ9999"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown code error = %v, want not found", err)
	}
	if _, err := f.svc.GetBookingByCode(ctx, "abc"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("malformed code error = %v, want validation", err)
	}
}

func TestCancelBooking_TwiceAndFreesSlot(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "20:00", "02:00"))
	f.clock.Set(at(t, "2026-01-09", 9, 30))

	cancelled, err := f.svc.CancelBooking(ctx, created.ConfirmationCode)
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if cancelled.Status != entity.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil || *cancelled.CancelledAt != "2026-01-09T09:30:00.000-05:00" {
		t.Errorf("cancelled_at = %v", cancelled.CancelledAt)
	}

	if _, err := f.svc.CancelBooking(ctx, created.ConfirmationCode); !errors.Is(err, apperror.ErrAlreadyCancelled) {
		t.Errorf("second cancel error = %v, want already cancelled", err)
	}

	got, err := f.svc.GetBookingByCode(ctx, created.ConfirmationCode)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.BookingStatusCancelled {
		t.Errorf("stored status = %s, want cancelled", got.Status)
	}

	avail, err := f.svc.CheckAvailability(ctx, &request.CheckAvailabilityRequest{Date: "2026-01-09", StartTime: "20:00", EndTime: "02:00"})
	if err != nil {
		t.Fatal(err)
	}
	if !avail.Available || len(avail.Conflicts) != 0 {
		t.Errorf("cancelled slot still reported busy: %+v", avail.Conflicts)
	}

	mustCreate(t, f, createReq("3-201", "2026-01-09", "21:00", "22:00"))
}

func TestCancelBooking_Concurrent(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "11:00"))

	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CancelBooking(context.Background(), created.ConfirmationCode)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrAlreadyCancelled):
			already++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || already != n-1 {
		t.Errorf("ok=%d already=%d, want 1/%d", ok, already, n-1)
	}
}

func TestUpdateBooking_MovesAndFreesOldSlot(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "10:00", "12:00"))

	updated, err := f.svc.UpdateBooking(ctx, utils.FormatConfirmationCode(created.ConfirmationCode), &request.UpdateBookingRequest{
		Date: "2026-01-10", StartTime: "22:00", EndTime: "01:00",
	})
	if err != nil {
		t.Fatalf("UpdateBooking() error = %v", err)
	}
	if updated.ConfirmationCode != created.ConfirmationCode || updated.ID != created.Booking.ID {
		t.Errorf("reschedule changed identity: %s/%s", updated.ConfirmationCode, updated.ID)
	}
	if updated.TimeSlot != "22:00-01:00" || updated.BookingDate != "2026-01-10" {
		t.Errorf("slot = %s on %s", updated.TimeSlot, updated.BookingDate)
	}
	if updated.EndTime != "2026-01-11T01:00:00.000-05:00" {
		t.Errorf("end = %s", updated.EndTime)
	}

	// old slot is free again
	mustCreate(t, f, createReq("3-201", "2026-01-09", "10:00", "12:00"))

	// overlapping only itself is allowed
	if _, err := f.svc.UpdateBooking(ctx, created.ConfirmationCode, &request.UpdateBookingRequest{
		Date: "2026-01-10", StartTime: "23:00", EndTime: "01:00",
	}); err != nil {
		t.Errorf("shrinking within own interval error = %v", err)
	}
}

func TestUpdateBooking_ConflictLeavesBothUnchanged(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	a := mustCreate(t, f, createReq("5-1502", "2026-01-09", "08:00", "10:00"))
	b := mustCreate(t, f, createReq("3-201", "2026-01-09", "12:00", "14:00"))

	_, err := f.svc.UpdateBooking(ctx, a.ConfirmationCode, &request.UpdateBookingRequest{
		Date: "2026-01-09", StartTime: "11:00", EndTime: "13:00",
	})
	if codes := conflictCodes(t, err); len(codes) != 1 || codes[0] != b.ConfirmationCode {
		t.Errorf("conflicts = %v, want [%s]", codes, b.ConfirmationCode)
	}

	for _, want := range []response.BookingResponse{a.Booking, b.Booking} {
		got, err := f.svc.GetBookingByCode(ctx, want.ConfirmationCode)
		if err != nil {
			t.Fatal(err)
		}
		if got.StartTime != want.StartTime || got.EndTime != want.EndTime {
			t.Errorf("%s moved to %s-%s", want.ConfirmationCode, got.StartTime, got.EndTime)
		}
	}
}

func TestUpdateBooking_CancelledRejected(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "08:00", "10:00"))
	if _, err := f.svc.CancelBooking(ctx, created.ConfirmationCode); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.UpdateBooking(ctx, created.ConfirmationCode, &request.UpdateBookingRequest{
		Date: "2026-01-09", StartTime: "11:00", EndTime: "12:00",
	})
	if !errors.Is(err, apperror.ErrAlreadyCancelled) {
		t.Errorf("error = %v, want already cancelled", err)
	}
}

// ==================== VIEWS ====================

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	overnight := mustCreate(t, f, createReq("5-1502", "2026-01-09", "22:00", "02:00"))

	day, err := f.svc.CheckAvailability(ctx, &request.CheckAvailabilityRequest{Date: "2026-01-10"})
	if err != nil {
		t.Fatalf("CheckAvailability(day) error = %v", err)
	}
	if day.Available || len(day.Conflicts) != 1 || day.Conflicts[0].ConfirmationCode != overnight.ConfirmationCode {
		t.Errorf("day view = %+v, want the overnight booking spilling in", day)
	}

	free, err := f.svc.CheckAvailability(ctx, &request.CheckAvailabilityRequest{Date: "2026-01-10", StartTime: "02:00", EndTime: "04:00"})
	if err != nil {
		t.Fatal(err)
	}
	if !free.Available || len(free.Conflicts) != 0 {
		t.Errorf("02:00-04:00 = %+v, want available", free)
	}

	if _, err := f.svc.CheckAvailability(ctx, &request.CheckAvailabilityRequest{Date: "2026-01-10", StartTime: "02:00"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("start without end error = %v, want validation", err)
	}
}

func TestUpcomingAndActive(t *testing.T) {
	f := newFixture(t, utils.BookingConfig{UpcomingLimit: 3})
	ctx := context.Background()

	past := mustCreate(t, f, createReq("1-101", "2026-01-09", "06:00", "07:00"))
	inProgress := mustCreate(t, f, createReq("2-202", "2026-01-09", "20:00", "22:00"))
	tomorrow := mustCreate(t, f, createReq("3-303", "2026-01-10", "08:00", "09:00"))
	tonight := mustCreate(t, f, createReq("4-404", "2026-01-09", "23:00", "00:00"))
	mustCreate(t, f, createReq("5-505", "2026-01-11", "08:00", "09:00"))
	cancelled := mustCreate(t, f, createReq("6-606", "2026-01-09", "22:00", "23:00"))
	if _, err := f.svc.CancelBooking(ctx, cancelled.ConfirmationCode); err != nil {
		t.Fatal(err)
	}

	f.clock.Set(at(t, "2026-01-09", 21, 0))

	upcoming, err := f.svc.GetUpcomingBookings(ctx)
	if err != nil {
		t.Fatalf("GetUpcomingBookings() error = %v", err)
	}
	want := []string{inProgress.ConfirmationCode, tonight.ConfirmationCode, tomorrow.ConfirmationCode}
	if len(upcoming) != len(want) {
		t.Fatalf("upcoming = %d bookings, want %d", len(upcoming), len(want))
	}
	for i, b := range upcoming {
		if b.ConfirmationCode != want[i] {
			t.Errorf("upcoming[%d] = %s, want %s", i, b.ConfirmationCode, want[i])
		}
		if b.ConfirmationCode == past.ConfirmationCode {
			t.Errorf("finished booking listed as upcoming")
		}
	}

	active, err := f.svc.GetActiveBooking(ctx)
	if err != nil {
		t.Fatalf("GetActiveBooking() error = %v", err)
	}
	if active == nil || active.ConfirmationCode != inProgress.ConfirmationCode {
		t.Errorf("active = %+v, want %s", active, inProgress.ConfirmationCode)
	}

	// at the exact end instant the booking is over
	f.clock.Set(at(t, "2026-01-09", 22, 0))
	active, err = f.svc.GetActiveBooking(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Errorf("active at 22:00 = %s, want none", active.ConfirmationCode)
	}
}

func TestGetBookingsByDay(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	late := mustCreate(t, f, createReq("5-1502", "2026-01-09", "22:00", "02:00"))
	early := mustCreate(t, f, createReq("3-201", "2026-01-09", "06:00", "07:00"))
	mustCreate(t, f, createReq("3-201", "2026-01-10", "06:00", "07:00"))

	day, err := f.svc.GetBookingsByDay(ctx, "2026-01-09")
	if err != nil {
		t.Fatalf("GetBookingsByDay() error = %v", err)
	}
	if len(day.Bookings) != 2 {
		t.Fatalf("bookings = %d, want 2", len(day.Bookings))
	}
	if day.Bookings[0].ConfirmationCode != early.ConfirmationCode || day.Bookings[1].ConfirmationCode != late.ConfirmationCode {
		t.Errorf("day order = %s, %s", day.Bookings[0].ConfirmationCode, day.Bookings[1].ConfirmationCode)
	}

	if _, err := f.svc.GetBookingsByDay(ctx, "2026-1-9"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad date error = %v, want validation", err)
	}
}

func TestGetCalendar_SummaryAndCache(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	mustCreate(t, f, createReq("5-1502", "2026-01-15", "08:00", "08:00"))
	mustCreate(t, f, createReq("3-201", "2026-01-31", "22:00", "02:00"))
	mustCreate(t, f, createReq("3-201", "2026-02-03", "10:00", "11:00"))

	cal, err := f.svc.GetCalendar(ctx, "2026-01")
	if err != nil {
		t.Fatalf("GetCalendar() error = %v", err)
	}
	if len(cal.Bookings) != 2 {
		t.Fatalf("january bookings = %d, want 2", len(cal.Bookings))
	}

	days := make(map[string]response.CalendarDay)
	for _, d := range cal.Days {
		days[d.Date] = d
	}
	if d := days["2026-01-15"]; d.BookingCount != 1 || d.BookedHours != 16 {
		t.Errorf("2026-01-15 = %+v, want 1 booking and 16 hours", d)
	}
	if d := days["2026-01-16"]; d.BookingCount != 0 || d.BookedHours != 8 {
		t.Errorf("2026-01-16 = %+v, want spill-over of 8 hours", d)
	}
	if d := days["2026-01-31"]; d.BookingCount != 1 || d.BookedHours != 2 || d.FullyOccupied {
		t.Errorf("2026-01-31 = %+v, want 1 booking and 2 hours", d)
	}

	if _, err := f.svc.GetCalendar(ctx, "2026-01"); err != nil {
		t.Fatal(err)
	}
	if f.cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", f.cache.hits)
	}

	// a write in January drops the cached month
	mustCreate(t, f, createReq("7-701", "2026-01-20", "10:00", "11:00"))
	cal, err = f.svc.GetCalendar(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(cal.Bookings) != 3 {
		t.Errorf("after invalidation bookings = %d, want 3", len(cal.Bookings))
	}
	if f.cache.hits != 1 {
		t.Errorf("stale calendar served from cache")
	}
}

func TestGetCalendar_WriteDuringReadIsNotCached(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()
	mustCreate(t, f, createReq("5-1502", "2026-01-15", "10:00", "11:00"))

	racing := &racingBookings{BookingRepository: f.repo.Booking}
	f.repo.Booking = racing
	f.build(utils.DefaultBookingConfig())
	racing.onRead = func() {
		mustCreate(t, f, createReq("3-201", "2026-01-20", "10:00", "11:00"))
	}

	stale, err := f.svc.GetCalendar(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(stale.Bookings) != 1 {
		t.Fatalf("snapshot bookings = %d, want 1", len(stale.Bookings))
	}

	fresh, err := f.svc.GetCalendar(ctx, "2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Bookings) != 2 {
		t.Errorf("second read bookings = %d, want 2", len(fresh.Bookings))
	}
	if f.cache.hits != 0 {
		t.Errorf("cache hits = %d, want the snapshot to stay out of the cache", f.cache.hits)
	}
}

func TestGetCalendar_DefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	f.clock.Set(at(t, "2026-03-31", 23, 30))
	mustCreate(t, f, createReq("5-1502", "2026-04-02", "10:00", "11:00"))

	cal, err := f.svc.GetCalendar(context.Background(), "")
	if err != nil {
		t.Fatalf("GetCalendar() error = %v", err)
	}
	if cal.Month != "2026-03" || len(cal.Bookings) != 0 {
		t.Errorf("calendar = %s with %d bookings, want 2026-03 and none", cal.Month, len(cal.Bookings))
	}

	f.clock.Set(at(t, "2026-04-01", 0, 30))
	cal, err = f.svc.GetCalendar(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cal.Month != "2026-04" || len(cal.Bookings) != 1 {
		t.Errorf("calendar = %s with %d bookings, want 2026-04 and one", cal.Month, len(cal.Bookings))
	}
}

func TestGetCalendar_FullyOccupiedDay(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())

	mustCreate(t, f, createReq("5-1502", "2026-03-04", "00:00", "00:00"))

	cal, err := f.svc.GetCalendar(context.Background(), "2026-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(cal.Days) != 1 || !cal.Days[0].FullyOccupied || cal.Days[0].BookedHours != 24 {
		t.Errorf("days = %+v, want 2026-03-04 fully occupied", cal.Days)
	}
}

func TestGetBookingsByApartment(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	first := mustCreate(t, f, createReq("5-1502", "2026-01-09", "08:00", "09:00"))
	second := mustCreate(t, f, createReq("5-1502", "2026-01-12", "08:00", "09:00"))
	third := mustCreate(t, f, createReq("5-1502", "2026-01-10", "08:00", "09:00"))
	mustCreate(t, f, createReq("3-201", "2026-01-11", "08:00", "09:00"))
	if _, err := f.svc.CancelBooking(ctx, first.ConfirmationCode); err != nil {
		t.Fatal(err)
	}

	page, err := f.svc.GetBookingsByApartment(ctx, "5-1502", &request.PaginatedRequest{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("GetBookingsByApartment() error = %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v, want total 3 in 2 pages", page.Pagination)
	}
	if len(page.Data) != 2 || page.Data[0].ConfirmationCode != second.ConfirmationCode || page.Data[1].ConfirmationCode != third.ConfirmationCode {
		t.Errorf("page 1 order wrong: %+v", page.Data)
	}

	page, err = f.svc.GetBookingsByApartment(ctx, "5-1502", &request.PaginatedRequest{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 1 || page.Data[0].Status != entity.BookingStatusCancelled {
		t.Errorf("page 2 = %+v, want the cancelled booking", page.Data)
	}

	if _, err := f.svc.GetBookingsByApartment(ctx, "tower5", nil); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad apartment error = %v, want validation", err)
	}
}

func TestLifecycleEvents(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	ctx := context.Background()

	created := mustCreate(t, f, createReq("5-1502", "2026-01-09", "08:00", "09:00"))
	if _, err := f.svc.UpdateBooking(ctx, created.ConfirmationCode, &request.UpdateBookingRequest{
		Date: "2026-01-09", StartTime: "10:00", EndTime: "11:00",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelBooking(ctx, created.ConfirmationCode); err != nil {
		t.Fatal(err)
	}

	want := []string{"booking.created", "booking.rescheduled", "booking.cancelled"}
	got := f.events.Keys()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, utils.DefaultBookingConfig())
	f.events.fail = errors.New("broker down")

	mustCreate(t, f, createReq("5-1502", "2026-01-09", "08:00", "09:00"))
}

func TestNoOverlapAcrossRandomOperations(t *testing.T) {
	f := newFixture(t, utils.BookingConfig{MaxDurationHours: 8})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var codes []string
	randomSlot := func() (string, string, string) {
		date := fmt.Sprintf("2026-01-%02d", 10+rng.Intn(3))
		start := rng.Intn(24)
		end := (start + 1 + rng.Intn(8)) % 24
		return date, fmt.Sprintf("%02d:00", start), fmt.Sprintf("%02d:00", end)
	}

	windowStart := at(t, "2026-01-09", 0, 0)
	windowEnd := at(t, "2026-01-15", 0, 0)

	for i := 0; i < 300; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(codes) == 0:
			date, start, end := randomSlot()
			resp, err := f.svc.CreateBooking(ctx, createReq("5-1502", date, start, end))
			if err == nil {
				codes = append(codes, resp.ConfirmationCode)
			} else if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("op %d create: %v", i, err)
			}
		case op == 1:
			code := codes[rng.Intn(len(codes))]
			if _, err := f.svc.CancelBooking(ctx, code); err != nil && !errors.Is(err, apperror.ErrAlreadyCancelled) {
				t.Fatalf("op %d cancel: %v", i, err)
			}
		default:
			code := codes[rng.Intn(len(codes))]
			date, start, end := randomSlot()
			_, err := f.svc.UpdateBooking(ctx, code, &request.UpdateBookingRequest{Date: date, StartTime: start, EndTime: end})
			if err != nil && !errors.Is(err, apperror.ErrConflict) && !errors.Is(err, apperror.ErrAlreadyCancelled) {
				t.Fatalf("op %d update: %v", i, err)
			}
		}

		active, err := f.repo.Booking.FindOverlapping(ctx, windowStart, windowEnd, uuid.Nil)
		if err != nil {
			t.Fatal(err)
		}
		for a := 0; a < len(active); a++ {
			for b := a + 1; b < len(active); b++ {
				if active[a].Overlaps(active[b].StartTime, active[b].EndTime) {
					t.Fatalf("op %d: %s (%s) overlaps %s (%s)", i,
						active[a].ConfirmationCode, active[a].TimeSlot,
						active[b].ConfirmationCode, active[b].TimeSlot)
				}
			}
		}
	}
}
