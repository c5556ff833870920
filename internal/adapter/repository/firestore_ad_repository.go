package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
)

type firestoreAdRepository struct {
	client *firestore.Client
}

func NewFirestoreAdRepository(client *firestore.Client) repository.AdRepository {
	return &firestoreAdRepository{
		client: client,
	}
}

func (r *firestoreAdRepository) GetByID(ctx context.Context, id string) (*entity.Ad, error) {
	doc, err := r.client.Collection("ads").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Ad", err)
		}
		return nil, errors.Internal("Failed to get ad", err)
	}

	var ad entity.Ad
	if err := doc.DataTo(&ad); err != nil {
		return nil, errors.Internal("Failed to parse ad data", err)
	}
	if ad.ID == "" {
		ad.ID = doc.Ref.ID
	}
	return &ad, nil
}
