package repository

import (
	"context"
	"sync"

	"charger-booking/internal/data/entity"

	"go.uber.org/zap"
)

type memoryUserRepository struct {
	mu          sync.RWMutex
	byApartment map[string]*entity.User
	log         *zap.Logger
}

func NewMemoryUserRepository(log *zap.Logger) UserRepository {
	return &memoryUserRepository{
		byApartment: make(map[string]*entity.User),
		log:         log.With(zap.String("repository", "user_memory")),
	}
}

func (ur *memoryUserRepository) FindByApartment(ctx context.Context, apartment string) (*entity.User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ur.mu.RLock()
	defer ur.mu.RUnlock()

	u, ok := ur.byApartment[apartment]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (ur *memoryUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	ur.mu.Lock()
	defer ur.mu.Unlock()

	existing, ok := ur.byApartment[user.ApartmentNumber]
	if !ok {
		stored := *user
		ur.byApartment[user.ApartmentNumber] = &stored
		return nil
	}

	existing.FullName = user.FullName
	existing.UpdatedAt = user.UpdatedAt
	if user.Email != nil {
		email := *user.Email
		existing.Email = &email
	}

	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt
	user.Email = existing.Email
	return nil
}
