package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charger-booking/internal/data/entity"
	"charger-booking/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type userDocument struct {
	ID              string    `bson:"_id"`
	ApartmentNumber string    `bson:"apartmentNumber"`
	FullName        string    `bson:"fullName"`
	Email           *string   `bson:"email,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func (d userDocument) toEntity() (*entity.User, error) {
	id, err := utils.ParseUUID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", d.ID, err)
	}

	return &entity.User{
		Base: entity.Base{
			ID:        id,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		ApartmentNumber: d.ApartmentNumber,
		FullName:        d.FullName,
		Email:           d.Email,
	}, nil
}

type mongoUserRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewMongoUserRepository(db *mongo.Database, log *zap.Logger) UserRepository {
	return &mongoUserRepository{
		coll: db.Collection(UsersCollection),
		log:  log.With(zap.String("repository", "user_mongo")),
	}
}

func (ur *mongoUserRepository) FindByApartment(ctx context.Context, apartment string) (*entity.User, error) {
	var doc userDocument
	err := ur.coll.FindOne(ctx, bson.M{"apartmentNumber": apartment}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by apartment",
			zap.Error(err),
			zap.String("apartment_number", apartment),
		)
		return nil, fmt.Errorf("find user by apartment %s: %w", apartment, err)
	}

	return doc.toEntity()
}

func (ur *mongoUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	set := bson.M{
		"fullName":  user.FullName,
		"updatedAt": user.UpdatedAt,
	}
	if user.Email != nil {
		set["email"] = *user.Email
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       user.ID.String(),
			"createdAt": user.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc userDocument
	err := ur.coll.FindOneAndUpdate(ctx, bson.M{"apartmentNumber": user.ApartmentNumber}, update, opts).Decode(&doc)
	if err != nil {
		ur.log.Error("Failed to upsert user",
			zap.Error(err),
			zap.String("apartment_number", user.ApartmentNumber),
		)
		return fmt.Errorf("upsert user %s: %w", user.ApartmentNumber, err)
	}

	stored, err := doc.toEntity()
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}
