package repository

import (
	"context"

	"karsaz/internal/domain/entity"
)

type AdRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Ad, error)
}
