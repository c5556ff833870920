package entity

import (
	"time"
)

// User is the subset of the account record the messaging layer reads.
type User struct {
	ID         string     `json:"id" firestore:"id"`
	Email      string     `json:"email,omitempty" firestore:"email"`
	FullName   string     `json:"fullName" firestore:"fullName"`
	AvatarURL  string     `json:"avatarUrl,omitempty" firestore:"avatarUrl,omitempty"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty" firestore:"lastSeenAt,omitempty"`
	DeletedAt  *time.Time `json:"-" firestore:"deletedAt,omitempty"`
}

func (u *User) Active() bool {
	return u != nil && u.DeletedAt == nil
}

// UserSummary is what other participants get to see.
type UserSummary struct {
	ID         string     `json:"id"`
	FullName   string     `json:"fullName"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:         u.ID,
		FullName:   u.FullName,
		AvatarURL:  u.AvatarURL,
		LastSeenAt: u.LastSeenAt,
	}
}
