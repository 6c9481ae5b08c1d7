package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageAudioRoundup is the usage type recorded when an article feeds an audio roundup
const UsageAudioRoundup = "audio_roundup"

// Post is an output produced by the generation stages. The pipeline only reads
// it to know which articles were already consumed.
type Post struct {
	ID              uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID       *uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;index"`
	Platform        string     `json:"platform" db:"platform"`
	ContentType     string     `json:"content_type" db:"content_type" gorm:"index"`
	GeneratingModel string     `json:"generating_model" db:"generating_model"`
	Selected        bool       `json:"selected" db:"selected" gorm:"not null"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Post model
func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ArticleUsage links an article to the post that consumed it
type ArticleUsage struct {
	ID        uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID uuid.UUID  `json:"article_id" db:"article_id" gorm:"type:uuid;index;not null"`
	PostID    *uuid.UUID `json:"post_id" db:"post_id" gorm:"type:uuid"`
	UsageType string     `json:"usage_type" db:"usage_type" gorm:"index;not null"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the ArticleUsage model
func (ArticleUsage) TableName() string {
	return "article_usage"
}

func (u *ArticleUsage) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}
