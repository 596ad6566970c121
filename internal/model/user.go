package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleAdmin       = "admin"
	RoleReviewer    = "reviewer"
	RoleContributor = "contributor"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	// APIKey is assigned when the account is created and authenticates
	// view-api / search-api access.
	APIKey    string       `gorm:"size:64;uniqueIndex;not null" json:"-"`
	RoleID    *uint        `json:"role_id"`
	Role      Role         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	Profile   *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserProfile extends an account with the submitter-facing fields. The
// organisation is a tag from the "organisation" category.
type UserProfile struct {
	UserID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	OrganisationID *uuid.UUID `gorm:"type:uuid" json:"organisation_id,omitempty"`
	Organisation   *Tag       `gorm:"foreignKey:OrganisationID" json:"organisation,omitempty"`
	JobTitle       *string    `gorm:"type:text" json:"job_title,omitempty"`
	About          *string    `gorm:"type:text" json:"about,omitempty"`
	PhoneNumber    *string    `gorm:"type:text" json:"phone_number,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
