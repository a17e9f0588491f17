package models

import (
	"time"

	"gorm.io/gorm"
)

// Insight types
const (
	InsightTypeRelationshipHealth = "relationship_health"
	InsightTypeFollowUpNeeded     = "follow_up_needed"
	InsightTypeBestTimeToSend     = "best_time_to_send"
	InsightTypeToneWarning        = "tone_warning"
	InsightTypeOpportunity        = "opportunity"
	InsightTypeRisk               = "risk"
)

// Insight is an advisory record derived from current state. Insights are
// never a source of truth; they are regenerated and dismissed freely.
type Insight struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Type        string `gorm:"not null;index" json:"type"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Priority   int    `gorm:"default:50" json:"priority"` // 0-100
	Actionable bool   `gorm:"default:true" json:"actionable"`
	ActionURL  string `json:"action_url"`

	RelatedContactID *uint `json:"related_contact_id,omitempty"`
	RelatedThreadID  *uint `json:"related_thread_id,omitempty"`

	IsDismissed bool       `gorm:"default:false" json:"is_dismissed"`
	ExpiresAt   *time.Time `json:"expires_at"`
}
