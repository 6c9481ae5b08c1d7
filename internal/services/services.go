// Package services implements the article lifecycle stages on top of gorm.
// Every stage processes a bounded batch and reports how many rows it advanced.
package services

import (
	"errors"
	"fmt"
	"time"

	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a project, source or article does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput wraps validation failures on caller supplied values
	ErrInvalidInput = errors.New("invalid input")
)

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound converts gorm's missing-row error into ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// scopeProject restricts an article query to one project when id is set
func scopeProject(projectID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if projectID == nil {
			return db
		}
		return db.Where("project_id = ?", *projectID)
	}
}

// recordAuthDetection merges a detected login requirement into the source's
// stored config. Other config keys are left as they are.
func recordAuthDetection(db *gorm.DB, source *models.Source, reason, url string, at time.Time) error {
	source.Config.RecordDetection(reason, url, at)
	return db.Model(&models.Source{}).
		Where("id = ?", source.ID).
		Update("config", source.Config).Error
}
