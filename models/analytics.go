package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailAnalytic tracks delivery and engagement for one sent email
type EmailAnalytic struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	MessageID      string `gorm:"not null;index" json:"message_id"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`

	TemplateID   *uint `json:"template_id,omitempty"`
	SequenceID   *uint `gorm:"index" json:"sequence_id,omitempty"`
	EnrollmentID *uint `json:"enrollment_id,omitempty"`

	SentAt    time.Time  `gorm:"not null;index" json:"sent_at"`
	OpenedAt  *time.Time `json:"opened_at"`
	ClickedAt *time.Time `json:"clicked_at"`
	RepliedAt *time.Time `json:"replied_at"`

	OpenCount  int `gorm:"default:0" json:"open_count"`
	ClickCount int `gorm:"default:0" json:"click_count"`
}

// ActivityLog records user-facing actions for the dashboard
type ActivityLog struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Action     string `gorm:"not null;index" json:"action"` // ai_compose, template_used, sequence_enrolled, ...
	EntityType string `json:"entity_type"`
	EntityID   *uint  `json:"entity_id,omitempty"`
	Details    string `gorm:"type:text" json:"details"`
}
