// Package models contains all data models for the newsmill pipeline
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Project{},
		&Source{},
		&SourceItem{},
		&Article{},
		&Post{},
		&ArticleUsage{},
		&PipelineRun{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// assignID gives a row a fresh UUID unless the caller already set one.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
