package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SourceType identifies which scraper handles a source
type SourceType string

const (
	SourceTypeRSS     SourceType = "rss"
	SourceTypeReddit  SourceType = "reddit"
	SourceTypePage    SourceType = "page"
	SourceTypeWebsite SourceType = "website"
	SourceTypeYouTube SourceType = "youtube"
)

// DefaultScrapeIntervalHours applies when a source is created without an interval
const DefaultScrapeIntervalHours = 6

// NormalizeSourceType lowercases and trims a user supplied type.
func NormalizeSourceType(raw string) SourceType {
	return SourceType(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether a scraper exists for the type.
func (t SourceType) Known() bool {
	switch t {
	case SourceTypeRSS, SourceTypeReddit, SourceTypePage, SourceTypeWebsite, SourceTypeYouTube:
		return true
	}
	return false
}

// Source is a configured scrape target owned by a project
type Source struct {
	ID                  uuid.UUID    `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ProjectID           uuid.UUID    `json:"project_id" db:"project_id" gorm:"type:uuid;index;not null"`
	Name                string       `json:"name" db:"name" gorm:"not null"`
	Type                SourceType   `json:"source_type" db:"source_type" gorm:"column:source_type;not null"`
	URL                 string       `json:"url" db:"url" gorm:"not null"`
	Enabled             bool         `json:"enabled" db:"enabled" gorm:"not null"`
	Config              SourceConfig `json:"config" db:"config"`
	ScrapeIntervalHours int          `json:"scrape_interval_hours" db:"scrape_interval_hours" gorm:"not null;default:6"`
	LastScrapedAt       *time.Time   `json:"last_scraped_at" db:"last_scraped_at"`
	LastStatus          string       `json:"last_status" db:"last_status"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Items []SourceItem `json:"items,omitempty" gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Source model
func (Source) TableName() string {
	return "sources"
}

func (s *Source) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	if s.ScrapeIntervalHours <= 0 {
		s.ScrapeIntervalHours = DefaultScrapeIntervalHours
	}
	return nil
}

// ScrapeInterval returns the configured interval as a duration
func (s *Source) ScrapeInterval() time.Duration {
	hours := s.ScrapeIntervalHours
	if hours <= 0 {
		hours = DefaultScrapeIntervalHours
	}
	return time.Duration(hours) * time.Hour
}

// SourceItem is a raw scrape result, unique per (source, url)
type SourceItem struct {
	ID          uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	SourceID    uuid.UUID  `json:"source_id" db:"source_id" gorm:"type:uuid;not null;uniqueIndex:idx_source_items_source_url"`
	Title       string     `json:"title" db:"title"`
	URL         string     `json:"url" db:"url" gorm:"not null;uniqueIndex:idx_source_items_source_url"`
	Content     string     `json:"content" db:"content" gorm:"type:text"`
	Raw         string     `json:"raw" db:"raw" gorm:"type:text"`
	PublishedAt *time.Time `json:"published_at" db:"published_at"`
	ScrapedAt   time.Time  `json:"scraped_at" db:"scraped_at" gorm:"index;not null"`
}

// TableName sets the table name for the SourceItem model
func (SourceItem) TableName() string {
	return "source_items"
}

func (i *SourceItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}
