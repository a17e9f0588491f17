package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account holder
type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	Password string `json:"-"` // bcrypt hash; empty for OAuth-only accounts

	LoginMethod  string     `gorm:"default:'password'" json:"login_method"` // password, google
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	TokenVersion int        `gorm:"default:0" json:"-"`
	LastSignedIn *time.Time `json:"last_signed_in"`

	// Preferences
	Timezone             string `gorm:"default:'America/New_York'" json:"timezone"`
	NotificationsEnabled bool   `gorm:"default:true" json:"notifications_enabled"`

	// Relations
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	EmailAccounts []EmailAccount `gorm:"foreignKey:UserID" json:"email_accounts,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
}

// EmailAccount is a mailbox connected by the user, used by the inbox sync
// worker and as the From address for sequence sends.
type EmailAccount struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Email    string `gorm:"not null" json:"email"`
	Provider string `gorm:"default:'imap'" json:"provider"` // imap, gmail
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// IMAP settings
	IMAPHost     string `json:"imap_host"`
	IMAPPort     int    `gorm:"default:993" json:"imap_port"`
	IMAPUsername string `json:"imap_username"`
	IMAPPassword string `json:"-"`

	LastSyncedAt *time.Time `json:"last_synced_at"`
	LastError    string     `json:"last_error"`
}
