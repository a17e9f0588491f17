package models

import (
	"time"

	"gorm.io/gorm"
)

// Template represents a reusable email template with {{variable}} markers
type Template struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name     string `gorm:"not null" json:"name"`
	Subject  string `json:"subject"`
	Body     string `gorm:"type:text;not null" json:"body"`
	Category string `json:"category"`

	Variables []string `gorm:"type:jsonb;serializer:json" json:"variables"` // e.g. firstName, companyName

	UsageCount int        `gorm:"default:0" json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
