package repository

import (
	"context"
	"time"

	"karsaz/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}
