package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses
const (
	EnrollmentStatusActive       = "active"
	EnrollmentStatusPaused       = "paused"
	EnrollmentStatusCompleted    = "completed"
	EnrollmentStatusUnsubscribed = "unsubscribed"
)

// EmailSequence represents an automated drip sequence
type EmailSequence struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Steps       []SequenceStep       `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
	Enrollments []SequenceEnrollment `gorm:"foreignKey:SequenceID" json:"enrollments,omitempty"`
}

// OrderedSteps returns the sequence steps sorted by step order.
func (s *EmailSequence) OrderedSteps() []SequenceStep {
	steps := make([]SequenceStep, len(s.Steps))
	copy(steps, s.Steps)
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StepOrder < steps[j].StepOrder
	})
	return steps
}

// SequenceStep represents one email in a sequence. StepOrder values are
// strictly increasing within a sequence.
type SequenceStep struct {
	gorm.Model
	SequenceID uint  `gorm:"not null;index" json:"sequence_id"`
	TemplateID *uint `gorm:"index" json:"template_id,omitempty"`

	StepOrder int `gorm:"not null" json:"step_order"`
	DelayDays int `gorm:"not null" json:"delay_days"` // days after the previous step

	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`

	// Tracking
	SentCount int `gorm:"default:0" json:"sent_count"`
}

// SequenceEnrollment tracks a contact's progress through a sequence.
// CurrentStep is 0-based: 0 means step 1 has not been sent yet.
// NextSendAt is null once the enrollment leaves "active".
type SequenceEnrollment struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`
	ContactID  uint `gorm:"not null;index" json:"contact_id"`
	UserID     uint `gorm:"not null;index" json:"user_id"`

	CurrentStep int        `gorm:"default:0" json:"current_step"`
	Status      string     `gorm:"default:'active';index" json:"status"` // active, paused, completed, unsubscribed
	NextSendAt  *time.Time `gorm:"index" json:"next_send_at"`

	EnrolledAt  time.Time  `gorm:"not null" json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	Sequence EmailSequence `json:"-"`
	Contact  Contact       `json:"-"`
}
