package entity

import (
	"time"
)

const AdStatusActive = "ACTIVE"

type Ad struct {
	ID        string     `json:"id" firestore:"id"`
	Title     string     `json:"title" firestore:"title"`
	UserID    string     `json:"userId" firestore:"userId"`
	Price     float64    `json:"price,omitempty" firestore:"price"`
	Images    []string   `json:"images,omitempty" firestore:"images"`
	Status    string     `json:"status" firestore:"status"`
	DeletedAt *time.Time `json:"-" firestore:"deletedAt,omitempty"`
}

// Open reports whether new conversations may be started on the ad.
func (a *Ad) Open() bool {
	return a != nil && a.Status == AdStatusActive && a.DeletedAt == nil
}

type AdSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price,omitempty"`
	Images []string `json:"images,omitempty"`
	Status string   `json:"status,omitempty"`
}

func (a *Ad) Summary() *AdSummary {
	if a == nil {
		return nil
	}
	return &AdSummary{ID: a.ID, Title: a.Title, Price: a.Price, Images: a.Images, Status: a.Status}
}
