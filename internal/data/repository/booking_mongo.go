package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/pkg/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	BookingsCollection = "bookings"
	UsersCollection    = "users"
	LocksCollection    = "locks"

	// chargerLockID names the single lock document every booking write bumps
	// inside its transaction. Two writers touching it conflict, so one of them
	// is retried and sees the other's booking on its overlap re-check.
	chargerLockID = "charger"
)

type bookingDocument struct {
	ID               string     `bson:"_id"`
	ConfirmationCode string     `bson:"confirmationCode"`
	ApartmentNumber  string     `bson:"apartmentNumber"`
	FullName         string     `bson:"fullName"`
	VehiclePlate     string     `bson:"vehiclePlate"`
	BookingDate      time.Time  `bson:"bookingDate"`
	TimeSlot         string     `bson:"timeSlot"`
	StartTime        time.Time  `bson:"startTime"`
	EndTime          time.Time  `bson:"endTime"`
	Status           string     `bson:"status"`
	CancelledAt      *time.Time `bson:"cancelledAt,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
}

func toBookingDocument(b *entity.Booking) bookingDocument {
	return bookingDocument{
		ID:               b.ID.String(),
		ConfirmationCode: b.ConfirmationCode,
		ApartmentNumber:  b.ApartmentNumber,
		FullName:         b.FullName,
		VehiclePlate:     b.VehiclePlate,
		BookingDate:      b.BookingDate,
		TimeSlot:         b.TimeSlot,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Status:           string(b.Status),
		CancelledAt:      b.CancelledAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func (d bookingDocument) toEntity() (*entity.Booking, error) {
	id, err := utils.ParseUUID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse booking id %q: %w", d.ID, err)
	}

	return &entity.Booking{
		Base: entity.Base{
			ID:        id,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		ConfirmationCode: d.ConfirmationCode,
		ApartmentNumber:  d.ApartmentNumber,
		FullName:         d.FullName,
		VehiclePlate:     d.VehiclePlate,
		BookingDate:      d.BookingDate,
		TimeSlot:         d.TimeSlot,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		Status:           entity.BookingStatus(d.Status),
		CancelledAt:      d.CancelledAt,
	}, nil
}

type mongoBookingRepository struct {
	client   *mongo.Client
	bookings *mongo.Collection
	locks    *mongo.Collection
	log      *zap.Logger
}

func NewMongoBookingRepository(db *mongo.Database, log *zap.Logger) BookingRepository {
	return &mongoBookingRepository{
		client:   db.Client(),
		bookings: db.Collection(BookingsCollection),
		locks:    db.Collection(LocksCollection),
		log:      log.With(zap.String("repository", "booking_mongo")),
	}
}

func overlapFilter(start, end time.Time, excludeID uuid.UUID) bson.M {
	filter := bson.M{
		"status":    string(entity.BookingStatusActive),
		"startTime": bson.M{"$lt": end},
		"endTime":   bson.M{"$gt": start},
	}
	if excludeID != uuid.Nil {
		filter["_id"] = bson.M{"$ne": excludeID.String()}
	}
	return filter
}

// withChargerLock runs fn in a transaction that first bumps the lock document.
func (r *mongoBookingRepository) withChargerLock(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		_, err := r.locks.UpdateOne(sc,
			bson.M{"_id": chargerLockID},
			bson.M{"$inc": bson.M{"seq": 1}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, fmt.Errorf("acquire charger lock: %w", err)
		}
		return nil, fn(sc)
	})
	return err
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	err := r.withChargerLock(ctx, func(sc mongo.SessionContext) error {
		n, err := r.bookings.CountDocuments(sc, overlapFilter(booking.StartTime, booking.EndTime, uuid.Nil))
		if err != nil {
			return fmt.Errorf("count overlapping bookings: %w", err)
		}
		if n > 0 {
			return ErrOverlap
		}

		if _, err := r.bookings.InsertOne(sc, toBookingDocument(booking)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrOverlap) || errors.Is(err, ErrDuplicateCode) {
			return err
		}
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("confirmation_code", booking.ConfirmationCode),
		)
		return fmt.Errorf("create booking %s: %w", booking.ConfirmationCode, err)
	}

	return nil
}

func (r *mongoBookingRepository) FindByCode(ctx context.Context, code string) ([]*entity.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, "find bookings by code", bson.M{"confirmationCode": code}, opts)
}

func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID uuid.UUID) ([]*entity.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	return r.find(ctx, "find overlapping bookings", overlapFilter(start, end, excludeID), opts)
}

func (r *mongoBookingRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	filter := bson.M{"_id": id.String(), "status": string(entity.BookingStatusActive)}
	update := bson.M{"$set": bson.M{
		"status":      string(entity.BookingStatusCancelled),
		"cancelledAt": at,
		"updatedAt":   at,
	}}

	res, err := r.bookings.UpdateOne(ctx, filter, update)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("cancel booking %s: %w", id.String(), err)
	}

	if res.MatchedCount == 0 {
		return ErrNotActive
	}

	return nil
}

func (r *mongoBookingRepository) Reschedule(ctx context.Context, booking *entity.Booking) error {
	err := r.withChargerLock(ctx, func(sc mongo.SessionContext) error {
		n, err := r.bookings.CountDocuments(sc, overlapFilter(booking.StartTime, booking.EndTime, booking.ID))
		if err != nil {
			return fmt.Errorf("count overlapping bookings: %w", err)
		}
		if n > 0 {
			return ErrOverlap
		}

		filter := bson.M{"_id": booking.ID.String(), "status": string(entity.BookingStatusActive)}
		update := bson.M{"$set": bson.M{
			"bookingDate": booking.BookingDate,
			"timeSlot":    booking.TimeSlot,
			"startTime":   booking.StartTime,
			"endTime":     booking.EndTime,
			"updatedAt":   booking.UpdatedAt,
		}}

		res, err := r.bookings.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotActive
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrOverlap) || errors.Is(err, ErrNotActive) {
			return err
		}
		r.log.Error("Failed to reschedule booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("reschedule booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *mongoBookingRepository) FindActiveByBookingDate(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	filter := bson.M{
		"status":      string(entity.BookingStatusActive),
		"bookingDate": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	return r.find(ctx, "find bookings by booking date", filter, opts)
}

func (r *mongoBookingRepository) FindByApartment(ctx context.Context, apartment string, limit, offset int) ([]*entity.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "bookingDate", Value: -1}, {Key: "startTime", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, "find bookings by apartment", bson.M{"apartmentNumber": apartment}, opts)
}

func (r *mongoBookingRepository) CountByApartment(ctx context.Context, apartment string) (int64, error) {
	count, err := r.bookings.CountDocuments(ctx, bson.M{"apartmentNumber": apartment})
	if err != nil {
		r.log.Error("Failed to count bookings by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return 0, fmt.Errorf("count bookings by apartment %s: %w", apartment, err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindActiveAt(ctx context.Context, at time.Time) ([]*entity.Booking, error) {
	filter := bson.M{
		"status":    string(entity.BookingStatusActive),
		"startTime": bson.M{"$lte": at},
		"endTime":   bson.M{"$gt": at},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	return r.find(ctx, "find active booking", filter, opts)
}

func (r *mongoBookingRepository) FindUpcoming(ctx context.Context, after time.Time, limit int) ([]*entity.Booking, error) {
	filter := bson.M{
		"status":  string(entity.BookingStatusActive),
		"endTime": bson.M{"$gt": after},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "endTime", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, "find upcoming bookings", filter, opts)
}

func (r *mongoBookingRepository) FindLatestActiveByApartment(ctx context.Context, apartment string) (*entity.Booking, error) {
	filter := bson.M{
		"apartmentNumber": apartment,
		"status":          string(entity.BookingStatusActive),
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc bookingDocument
	err := r.bookings.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest booking by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return nil, fmt.Errorf("find latest booking by apartment %s: %w", apartment, err)
	}

	return doc.toEntity()
}

func (r *mongoBookingRepository) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]*entity.Booking, error) {
	cursor, err := r.bookings.Find(ctx, filter, opts)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.log.Error("Failed to decode bookings", zap.Error(err))
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	bookings := make([]*entity.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := doc.toEntity()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}
