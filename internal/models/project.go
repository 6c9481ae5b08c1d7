package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultUnusableScoreThreshold = 5
	DefaultUnusableAgeHours       = 48
)

// Project is a content channel. It owns sources and articles and carries the
// thresholds used to retire stale content.
type Project struct {
	ID                      uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Name                    string     `json:"name" db:"name" gorm:"not null"`
	Description             string     `json:"description" db:"description"`
	Language                string     `json:"language" db:"language"`
	VideoPromptExtra        string     `json:"video_prompt_extra" db:"video_prompt_extra" gorm:"type:text"`
	AudioRoundupPromptExtra string     `json:"audio_roundup_prompt_extra" db:"audio_roundup_prompt_extra" gorm:"type:text"`
	GenerationIntervalHours *int       `json:"generation_interval_hours" db:"generation_interval_hours"`
	LastGeneratedAt         *time.Time `json:"last_generated_at" db:"last_generated_at"`
	UnusableScoreThreshold  int        `json:"unusable_score_threshold" db:"unusable_score_threshold" gorm:"default:5"`
	UnusableAgeHours        int        `json:"unusable_age_hours" db:"unusable_age_hours" gorm:"default:48"`
	CreatedAt               time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt               time.Time  `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Sources []Source `json:"sources,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// RetirementThresholds returns the score threshold and age in hours used by
// low-score retirement, falling back to defaults for unset values.
func (p *Project) RetirementThresholds() (int, int) {
	score, hours := p.UnusableScoreThreshold, p.UnusableAgeHours
	if score <= 0 {
		score = DefaultUnusableScoreThreshold
	}
	if hours <= 0 {
		hours = DefaultUnusableAgeHours
	}
	return score, hours
}
