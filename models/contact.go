package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact represents a person the user corresponds with, enriched over time
type Contact struct {
	gorm.Model
	UserID uint `gorm:"not null;index;uniqueIndex:idx_contacts_user_email" json:"user_id"`

	Email       string `gorm:"not null;index;uniqueIndex:idx_contacts_user_email" json:"email"`
	Name        string `json:"name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	JobTitle    string `json:"job_title"`
	Phone       string `json:"phone"`
	LinkedinURL string `json:"linkedin_url"`

	// Enriched data
	CompanySize     string `json:"company_size"`
	CompanyIndustry string `json:"company_industry"`
	Location        string `json:"location"`
	Timezone        string `json:"timezone"`

	// Relationship metrics
	RelationshipScore    int        `gorm:"default:50" json:"relationship_score"` // 0-100
	LastContactedAt      *time.Time `json:"last_contacted_at"`
	TotalEmailsSent      int        `gorm:"default:0" json:"total_emails_sent"`
	TotalEmailsReceived  int        `gorm:"default:0" json:"total_emails_received"`
	AvgResponseTimeHours *int       `json:"avg_response_time_hours"`

	// Metadata
	Tags  []string `gorm:"type:jsonb;serializer:json" json:"tags"`
	Notes string   `gorm:"type:text" json:"notes"`

	// Verification
	IsVerified     bool `gorm:"default:false" json:"is_verified"`
	IsUnsubscribed bool `gorm:"default:false" json:"is_unsubscribed"`

	// Relations
	FollowUps   []FollowUp           `gorm:"foreignKey:ContactID" json:"follow_ups,omitempty"`
	Enrollments []SequenceEnrollment `gorm:"foreignKey:ContactID" json:"enrollments,omitempty"`
}
