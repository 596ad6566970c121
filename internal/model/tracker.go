package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Access tracker types.
const (
	TrackerView     = "view"
	TrackerViewAPI  = "view-api"
	TrackerEdit     = "edit"
	TrackerDownload = "download"
	TrackerCreate   = "create"
)

// Search tracker types.
const (
	SearchWeb = "search"
	SearchAPI = "search-api"
)

// ResourceTracker is an append-only access log row. Rows are never updated
// once written; the actor is nil for anonymous access.
type ResourceTracker struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Type           string     `gorm:"size:50;not null;default:view" json:"type"`
	ResourceID     *uuid.UUID `gorm:"type:uuid;index" json:"resource_id,omitempty"`
	ResourceFileID *uuid.UUID `gorm:"type:uuid" json:"resource_file_id,omitempty"`
	ResourceURLID  *uuid.UUID `gorm:"type:uuid" json:"resource_url_id,omitempty"`
	IP             *string    `gorm:"size:45" json:"ip,omitempty"`
	UserAgent      *string    `gorm:"type:text" json:"user_agent,omitempty"`
	ExtraData      *string    `gorm:"type:text" json:"extra_data,omitempty"`
	AccessDate     time.Time  `gorm:"autoCreateTime" json:"access_date"`
}

func (t *ResourceTracker) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}

// SearchTracker is an append-only search log row.
type SearchTracker struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Query      string     `gorm:"type:text" json:"query"`
	NoResults  int        `gorm:"not null;default:0" json:"no_results"`
	Type       string     `gorm:"size:50;not null;default:search" json:"type"`
	IP         *string    `gorm:"size:45" json:"ip,omitempty"`
	UserAgent  *string    `gorm:"type:text" json:"user_agent,omitempty"`
	AccessDate time.Time  `gorm:"autoCreateTime" json:"access_date"`
}

func (t *SearchTracker) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}

// UserLocation is a geo-IP visualization row maintained by an external
// lookup job. Absence of a row for an IP is a normal outcome.
type UserLocation struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	IP      string  `gorm:"size:45;index;not null" json:"ip"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Country *string `gorm:"size:100" json:"country,omitempty"`
	Region  *string `gorm:"size:100" json:"region,omitempty"`
	City    *string `gorm:"size:100" json:"city,omitempty"`
	Hits    int     `gorm:"not null;default:0" json:"hits"`
}

// ResourceRating is a user's 1-5 rating of a resource. One row per
// (user, resource) pair is maintained by the rating service.
type ResourceRating struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comments   *string   `gorm:"type:text" json:"comments,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ResourceRating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
