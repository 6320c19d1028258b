// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultImageURL is the profile image used when a user has not supplied one.
	DefaultImageURL = "/static/images/default-pic.png"
	// DefaultHeaderImageURL is the profile header used when a user has not supplied one.
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a user in the Warbler application.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `gorm:"not null" json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`

	// Derived counts, computed at query time by the profile query.
	MessagesCount  int64 `gorm:"->;-:migration" json:"messages_count"`
	FollowersCount int64 `gorm:"->;-:migration" json:"followers_count"`
	FollowingCount int64 `gorm:"->;-:migration" json:"following_count"`
	LikesCount     int64 `gorm:"->;-:migration" json:"likes_count"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate fills in the platform default images.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
	return nil
}

// OwnerID reports the user that owns this record, which is the user itself.
func (u *User) OwnerID() uint {
	return u.ID
}
