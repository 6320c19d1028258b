package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength bounds the text of a message, in characters.
const MaxMessageLength = 140

// Message represents a short post authored by a user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:varchar(140);not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate stamps the message when the caller did not.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}

// OwnerID reports the author of the message.
func (m *Message) OwnerID() uint {
	return m.UserID
}
