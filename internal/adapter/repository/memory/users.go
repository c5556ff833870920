package memory

import (
	"context"
	"sync"
	"time"

	"karsaz/internal/domain/entity"
	"karsaz/pkg/errors"
)

// UserRepository stores users in memory. Not suitable for production.
type UserRepository struct {
	mu   sync.RWMutex
	byID map[string]*entity.User
}

func NewUserRepository(users ...*entity.User) *UserRepository {
	r := &UserRepository{byID: make(map[string]*entity.User)}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

func (r *UserRepository) Put(user *entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[user.ID] = cloneUser(user)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, errors.NotFound("User", nil)
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	u.LastSeenAt = &at
	return nil
}

func cloneUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.LastSeenAt != nil {
		at := *u.LastSeenAt
		cp.LastSeenAt = &at
	}
	if u.DeletedAt != nil {
		at := *u.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}

// AdRepository stores ads in memory.
type AdRepository struct {
	mu   sync.RWMutex
	byID map[string]*entity.Ad
}

func NewAdRepository(ads ...*entity.Ad) *AdRepository {
	r := &AdRepository{byID: make(map[string]*entity.Ad)}
	for _, a := range ads {
		r.Put(a)
	}
	return r
}

func (r *AdRepository) Put(ad *entity.Ad) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ad
	cp.Images = append([]string(nil), ad.Images...)
	r.byID[ad.ID] = &cp
}

func (r *AdRepository) GetByID(ctx context.Context, id string) (*entity.Ad, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		cp.Images = append([]string(nil), a.Images...)
		return &cp, nil
	}
	return nil, errors.NotFound("Ad", nil)
}
