package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailThread groups synced messages by conversation
type EmailThread struct {
	gorm.Model
	UserID    uint `gorm:"not null;index" json:"user_id"`
	AccountID uint `gorm:"not null;index" json:"account_id"`

	Subject       string     `json:"subject"`
	Participants  []string   `gorm:"type:jsonb;serializer:json" json:"participants"`
	LastMessageAt *time.Time `json:"last_message_at"`
	MessageCount  int        `gorm:"default:0" json:"message_count"`

	IsRead     bool `gorm:"default:false" json:"is_read"`
	IsArchived bool `gorm:"default:false" json:"is_archived"`

	// Relations
	Messages []EmailMessage `gorm:"foreignKey:ThreadID" json:"messages,omitempty"`
}

// EmailMessage is a single synced message
type EmailMessage struct {
	gorm.Model
	ThreadID uint `gorm:"not null;index" json:"thread_id"`

	MessageID string   `gorm:"not null;index" json:"message_id"` // RFC 5322 Message-Id
	From      string   `gorm:"not null" json:"from"`
	To        []string `gorm:"type:jsonb;serializer:json" json:"to"`

	Subject    string     `json:"subject"`
	Snippet    string     `json:"snippet"`
	BodyPlain  string     `gorm:"type:text" json:"body_plain"`
	InReplyTo  string     `json:"in_reply_to"`
	ReceivedAt *time.Time `json:"received_at"`

	IsRead bool `gorm:"default:false" json:"is_read"`
}
