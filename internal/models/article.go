package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Stage names recorded in Article.FailedStage
const (
	StageExtract = "extract"
	StageJudge   = "judge"
)

// UnusableReasonDuplicate marks articles retired by dedupe
const UnusableReasonDuplicate = "duplicate"

// FormatVideo is granted to articles scoring at or above the video threshold
const FormatVideo = "video"

// Article is the canonical content unit tracked through extraction, judging,
// dedupe and retirement
type Article struct {
	ID            uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID     *uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;index"`
	SourceID      *uuid.UUID `json:"source_id" db:"source_id" gorm:"type:uuid;index"`
	SourceURL     string     `json:"source_url" db:"source_url" gorm:"uniqueIndex;not null"` // Canonical URL
	SourceWebsite string     `json:"source_website" db:"source_website"`
	Title         string     `json:"title" db:"title"`

	// Raw text captured at ingestion and the text produced by extraction.
	// Both are nulled by cleanup once an unusable article ages out.
	RawText     *string `json:"raw_text" db:"raw_text" gorm:"type:text"`
	Summary     string  `json:"summary" db:"summary" gorm:"type:text"`
	Content     *string `json:"content" db:"content" gorm:"type:text"`
	ContentHash *string `json:"content_hash" db:"content_hash" gorm:"index"`

	ScrapedAt time.Time `json:"scraped_at" db:"scraped_at" gorm:"index;not null"`

	// Stage flags
	Processed         bool       `json:"processed" db:"processed" gorm:"index;not null"`
	Scored            bool       `json:"scored" db:"scored" gorm:"index;not null"`
	JudgeScore        *int       `json:"judge_score" db:"judge_score"`
	FormatAssignments FormatList `json:"format_assignments" db:"format_assignments"`

	// Attempt tracking for items the summarizer or judge keeps rejecting
	ExtractAttempts int    `json:"extract_attempts" db:"extract_attempts" gorm:"default:0"`
	JudgeAttempts   int    `json:"judge_attempts" db:"judge_attempts" gorm:"default:0"`
	FailedStage     string `json:"failed_stage" db:"failed_stage"`
	LastError       string `json:"last_error" db:"last_error"`

	// Retirement
	Unusable       bool       `json:"unusable" db:"unusable" gorm:"index;not null"`
	UnusableReason string     `json:"unusable_reason" db:"unusable_reason"`
	UnusableAt     *time.Time `json:"unusable_at" db:"unusable_at"`
	DuplicateOf    *uuid.UUID `json:"duplicate_of" db:"duplicate_of" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// Score returns the judge score, treating unscored articles as zero
func (a *Article) Score() int {
	if a.JudgeScore == nil {
		return 0
	}
	return *a.JudgeScore
}

// Text returns the best available body: extracted content, then raw text
func (a *Article) Text() string {
	if a.Content != nil && *a.Content != "" {
		return *a.Content
	}
	if a.RawText != nil {
		return *a.RawText
	}
	return ""
}

// FormatList is a list of output formats, stored as a postgres text[]
type FormatList []string

// Value implements driver.Valuer using the postgres array literal format
func (f FormatList) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	return pq.StringArray(f).Value()
}

// Scan implements sql.Scanner
func (f *FormatList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*f = FormatList(arr)
	return nil
}

// Has reports whether the list contains the format
func (f FormatList) Has(format string) bool {
	for _, v := range f {
		if v == format {
			return true
		}
	}
	return false
}

// GormDBDataType uses text[] on postgres and text elsewhere
func (FormatList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
