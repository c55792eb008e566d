package models

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// User is the local record of an identity issued by the auth provider.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"external_id"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	ImageURL   string    `gorm:"type:text" json:"image_url,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`

	Accounts []Account `gorm:"foreignKey:UserID" json:"-"`
	Budget   *Budget   `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return u.Validate()
}

func (u *User) Validate() error {
	if u.ExternalID == "" {
		return errors.New("external ID is required")
	}

	if u.Email == "" {
		return errors.New("email is required")
	}

	if !emailRegex.MatchString(u.Email) {
		return errors.New("invalid email format")
	}

	return nil
}

func (u *User) TableName() string {
	return "users"
}
