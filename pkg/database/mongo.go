package database

import (
	"charger-booking/pkg/utils"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongo connects and pings. Booking writes use multi-document
// transactions, so the URI must point at a replica set.
func InitMongo(config utils.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo failed: %w", err)
	}

	return client.Database(config.Database), nil
}

// EnsureMongoIndexes creates the indexes the booking and user collections rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	bookingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "confirmationCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_confirmation_code"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "startTime", Value: 1}, {Key: "endTime", Value: 1}},
			Options: options.Index().SetName("status_interval_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "bookingDate", Value: 1}},
			Options: options.Index().SetName("status_booking_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "apartmentNumber", Value: 1}, {Key: "bookingDate", Value: -1}},
			Options: options.Index().SetName("apartment_booking_date_idx"),
		},
	}
	if _, err := db.Collection("bookings").Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "apartmentNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_apartment_number"),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	return nil
}
