package models

import "gorm.io/gorm"

// ToneSettings tunes composition along four 0-100 axes.
type ToneSettings struct {
	Formality  int `json:"formality"`
	Enthusiasm int `json:"enthusiasm"`
	Brevity    int `json:"brevity"`
	Empathy    int `json:"empathy"`
}

// Persona is a writing identity used by AI composition. The style profile is
// extracted from sample emails the user provides.
type Persona struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Type        string `gorm:"not null" json:"type"` // work, personal, sales, support, networking, custom
	Description string `json:"description"`

	ToneSettings        *ToneSettings          `gorm:"type:jsonb;serializer:json" json:"tone_settings,omitempty"`
	WritingStyleProfile map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"writing_style_profile,omitempty"`

	IsDefault bool `gorm:"default:false" json:"is_default"`
}
