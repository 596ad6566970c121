package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a named grouping of tags (audience, geography, license...).
// Top-level categories are the ones offered on the submission form.
type Category struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"size:100;not null" json:"name"`
	Slug     string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	TopLevel bool      `gorm:"not null;default:false" json:"top_level"`
	OrderBy  int       `gorm:"not null;default:0" json:"order_by"`

	Tags []Tag `gorm:"foreignKey:CategoryID" json:"tags,omitempty"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// Tag is a classification value scoped to exactly one category. Tags may
// form a hierarchy within their category via ParentTagID.
type Tag struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"category_id"`
	Category     Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ParentTagID  *uuid.UUID `gorm:"type:uuid" json:"parent_tag_id,omitempty"`
	ParentTag    *Tag       `gorm:"foreignKey:ParentTagID" json:"-"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Slug         string     `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	ImageURL     *string    `gorm:"size:200" json:"image_url,omitempty"`
	ExternalURL  *string    `gorm:"size:500" json:"external_url,omitempty"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	Summary      *string    `gorm:"size:100" json:"summary,omitempty"`
	OrderBy      int        `gorm:"not null;default:0" json:"order_by"`
	CreateUserID uuid.UUID  `gorm:"type:uuid;not null" json:"-"`
	UpdateUserID uuid.UUID  `gorm:"type:uuid;not null" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}

// ResourceTag associates a resource with a tag. Duplicate rows are not
// prevented by a constraint; callers de-duplicate before writing.
type ResourceTag struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResourceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"resource_id"`
	TagID        uuid.UUID `gorm:"type:uuid;not null;index" json:"tag_id"`
	Tag          Tag       `gorm:"foreignKey:TagID" json:"tag,omitempty"`
	CreateUserID uuid.UUID `gorm:"type:uuid;not null" json:"create_user_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (rt *ResourceTag) BeforeCreate(tx *gorm.DB) (err error) {
	if rt.ID == uuid.Nil {
		rt.ID, err = uuid.NewV7()
	}
	return
}
