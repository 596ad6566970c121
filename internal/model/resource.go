package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Moderation statuses. A resource is publicly visible only when approved.
const (
	StatusRejected   = "rejected"
	StatusPendingCRT = "pending_crt"
	StatusPendingMRT = "pending_mrt"
	StatusApproved   = "approved"
)

// Relationship types between two resources.
const (
	RelTranslationOf = "is_translation_of"
	RelDerivativeOf  = "is_derivative_of"
	RelContainedIn   = "is_contained_in"
)

type Resource struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	ImageURL     *string   `gorm:"size:200" json:"image_url,omitempty"`
	Status       string    `gorm:"size:50;not null;index" json:"status"`
	Slug         string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	CreateUserID uuid.UUID `gorm:"type:uuid;not null" json:"create_user_id"`
	CreateUser   User      `gorm:"foreignKey:CreateUserID" json:"create_user,omitempty"`
	UpdateUserID uuid.UUID `gorm:"type:uuid;not null" json:"update_user_id"`
	UpdateUser   User      `gorm:"foreignKey:UpdateUserID" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Files []ResourceFile `gorm:"foreignKey:ResourceID" json:"files,omitempty"`
	URLs  []ResourceURL  `gorm:"foreignKey:ResourceID" json:"urls,omitempty"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type ResourceFile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	FileURL      string    `gorm:"size:200;not null" json:"file_url"`
	FileName     string    `gorm:"size:200;not null" json:"file_name"`
	Title        *string   `gorm:"type:text" json:"title,omitempty"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	FileFullText *string   `gorm:"type:text" json:"-"`
	CreateUserID uuid.UUID `gorm:"type:uuid;not null" json:"create_user_id"`
	UpdateUserID uuid.UUID `gorm:"type:uuid;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *ResourceFile) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}

type ResourceURL struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	URL          string    `gorm:"size:500;not null" json:"url"`
	Title        *string   `gorm:"type:text" json:"title,omitempty"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	CreateUserID uuid.UUID `gorm:"type:uuid;not null" json:"create_user_id"`
	UpdateUserID uuid.UUID `gorm:"type:uuid;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *ResourceURL) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

// ResourceRelationship is a directed typed edge between two resources,
// e.g. "X is_translation_of Y".
type ResourceRelationship struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID        uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	Resource          Resource  `gorm:"foreignKey:ResourceID" json:"-"`
	RelatedResourceID uuid.UUID `gorm:"type:uuid;not null;index" json:"related_resource_id"`
	RelatedResource   Resource  `gorm:"foreignKey:RelatedResourceID" json:"related_resource,omitempty"`
	RelationshipType  string    `gorm:"size:50;not null" json:"relationship_type"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	CreateUserID      uuid.UUID `gorm:"type:uuid;not null" json:"create_user_id"`
	UpdateUserID      uuid.UUID `gorm:"type:uuid;not null" json:"-"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *ResourceRelationship) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

// ValidStatus reports whether s is one of the four moderation statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusRejected, StatusPendingCRT, StatusPendingMRT, StatusApproved:
		return true
	}
	return false
}

// ValidRelationshipType reports whether t is a known relationship type.
func ValidRelationshipType(t string) bool {
	switch t {
	case RelTranslationOf, RelDerivativeOf, RelContainedIn:
		return true
	}
	return false
}
