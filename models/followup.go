package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow-up statuses
const (
	FollowUpStatusPending   = "pending"
	FollowUpStatusCompleted = "completed"
	FollowUpStatusSnoozed   = "snoozed"
	FollowUpStatusCancelled = "cancelled"
)

// Follow-up priorities
const (
	FollowUpPriorityLow    = "low"
	FollowUpPriorityMedium = "medium"
	FollowUpPriorityHigh   = "high"
	FollowUpPriorityUrgent = "urgent"
)

// FollowUp represents a reminder to get back to a contact or thread.
// CompletedAt is set if and only if Status is "completed".
type FollowUp struct {
	gorm.Model
	UserID    uint  `gorm:"not null;index" json:"user_id"`
	ContactID *uint `gorm:"index" json:"contact_id,omitempty"`
	ThreadID  *uint `gorm:"index" json:"thread_id,omitempty"`

	Subject string    `gorm:"not null" json:"subject"`
	DueAt   time.Time `gorm:"not null;index" json:"due_at"`
	Status  string    `gorm:"default:'pending';index" json:"status"` // pending, completed, snoozed, cancelled
	Priority string   `gorm:"default:'medium'" json:"priority"`      // low, medium, high, urgent

	Notes        string `gorm:"type:text" json:"notes"`
	AISuggestion string `gorm:"type:text" json:"ai_suggestion"`

	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	Contact *Contact     `json:"contact,omitempty"`
	Thread  *EmailThread `json:"thread,omitempty"`
}

// IsOverdue reports whether the follow-up is actionable and past due.
// Derived, never stored.
func (f *FollowUp) IsOverdue(now time.Time) bool {
	return (f.Status == FollowUpStatusPending || f.Status == FollowUpStatusSnoozed) &&
		!f.DueAt.After(now)
}

// IsTerminal reports whether the follow-up can no longer transition.
func (f *FollowUp) IsTerminal() bool {
	return f.Status == FollowUpStatusCompleted || f.Status == FollowUpStatusCancelled
}
