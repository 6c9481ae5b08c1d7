package services

import (
	"fmt"
	"strings"

	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectInput carries project fields for create and partial update.
// Nil fields are left untouched on update.
type ProjectInput struct {
	Name                    *string `json:"name"`
	Description             *string `json:"description"`
	Language                *string `json:"language"`
	VideoPromptExtra        *string `json:"video_prompt_extra"`
	AudioRoundupPromptExtra *string `json:"audio_roundup_prompt_extra"`
	GenerationIntervalHours *int    `json:"generation_interval_hours"`
	UnusableScoreThreshold  *int    `json:"unusable_score_threshold"`
	UnusableAgeHours        *int    `json:"unusable_age_hours"`
}

// SourceInput carries source fields for create and partial update
type SourceInput struct {
	Name                *string              `json:"name"`
	SourceType          *string              `json:"source_type"`
	URL                 *string              `json:"url"`
	Enabled             *bool                `json:"enabled"`
	Config              *models.SourceConfig `json:"config"`
	ScrapeIntervalHours *int                 `json:"scrape_interval_hours"`
}

// AdminService manages projects and sources
type AdminService struct {
	db *gorm.DB
}

// NewAdminService creates a new AdminService
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (in ProjectInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name is required")
	}
	if in.GenerationIntervalHours != nil && *in.GenerationIntervalHours <= 0 {
		return invalid("generation_interval_hours must be > 0")
	}
	if in.UnusableScoreThreshold != nil && (*in.UnusableScoreThreshold < 1 || *in.UnusableScoreThreshold > 10) {
		return invalid("unusable_score_threshold must be within 1..10")
	}
	if in.UnusableAgeHours != nil && *in.UnusableAgeHours <= 0 {
		return invalid("unusable_age_hours must be > 0")
	}
	return nil
}

func (in ProjectInput) apply(p *models.Project) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Language != nil {
		p.Language = strings.TrimSpace(*in.Language)
	}
	if in.VideoPromptExtra != nil {
		p.VideoPromptExtra = *in.VideoPromptExtra
	}
	if in.AudioRoundupPromptExtra != nil {
		p.AudioRoundupPromptExtra = *in.AudioRoundupPromptExtra
	}
	if in.GenerationIntervalHours != nil {
		p.GenerationIntervalHours = in.GenerationIntervalHours
	}
	if in.UnusableScoreThreshold != nil {
		p.UnusableScoreThreshold = *in.UnusableScoreThreshold
	}
	if in.UnusableAgeHours != nil {
		p.UnusableAgeHours = *in.UnusableAgeHours
	}
}

// ListProjects returns all projects, newest first
func (s *AdminService) ListProjects() ([]models.Project, error) {
	var projects []models.Project
	if err := s.db.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject loads one project
func (s *AdminService) GetProject(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "project")
	}
	return &project, nil
}

// CreateProject validates and stores a new project
func (s *AdminService) CreateProject(in ProjectInput) (*models.Project, error) {
	if in.Name == nil {
		return nil, invalid("name is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	project := models.Project{
		UnusableScoreThreshold: models.DefaultUnusableScoreThreshold,
		UnusableAgeHours:       models.DefaultUnusableAgeHours,
	}
	in.apply(&project)
	if err := s.db.Create(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &project, nil
}

// UpdateProject applies a partial update
func (s *AdminService) UpdateProject(id uuid.UUID, in ProjectInput) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	project, err := s.GetProject(id)
	if err != nil {
		return nil, err
	}
	in.apply(project)
	if err := s.db.Save(project).Error; err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// DeleteProject removes a project with its sources and their items
func (s *AdminService) DeleteProject(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		sourceIDs := tx.Model(&models.Source{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("source_id IN (?)", sourceIDs).Delete(&models.SourceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Source{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Project{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (in SourceInput) validate(creating bool) error {
	if creating {
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			return invalid("name is required")
		}
		if in.URL == nil || strings.TrimSpace(*in.URL) == "" {
			return invalid("url is required")
		}
		if in.SourceType == nil {
			return invalid("source_type is required")
		}
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name must not be empty")
	}
	if in.URL != nil && strings.TrimSpace(*in.URL) == "" {
		return invalid("url must not be empty")
	}
	if in.SourceType != nil && !models.NormalizeSourceType(*in.SourceType).Known() {
		return invalid("unsupported source_type %q", *in.SourceType)
	}
	if in.ScrapeIntervalHours != nil && *in.ScrapeIntervalHours <= 0 {
		return invalid("scrape_interval_hours must be > 0")
	}
	if in.Config != nil {
		if err := in.Config.Validate(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func (in SourceInput) apply(src *models.Source) {
	if in.Name != nil {
		src.Name = strings.TrimSpace(*in.Name)
	}
	if in.SourceType != nil {
		src.Type = models.NormalizeSourceType(*in.SourceType)
	}
	if in.URL != nil {
		src.URL = strings.TrimSpace(*in.URL)
	}
	if in.Enabled != nil {
		src.Enabled = *in.Enabled
	}
	if in.Config != nil {
		src.Config = *in.Config
	}
	if in.ScrapeIntervalHours != nil {
		src.ScrapeIntervalHours = *in.ScrapeIntervalHours
	}
}

// ListSources returns a project's sources
func (s *AdminService) ListSources(projectID uuid.UUID) ([]models.Source, error) {
	if _, err := s.GetProject(projectID); err != nil {
		return nil, err
	}
	var sources []models.Source
	if err := s.db.Where("project_id = ?", projectID).Order("created_at ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// GetSource loads one source
func (s *AdminService) GetSource(id uuid.UUID) (*models.Source, error) {
	var source models.Source
	if err := s.db.First(&source, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "source")
	}
	return &source, nil
}

// CreateSource validates and stores a source. Sources are enabled unless
// the input says otherwise.
func (s *AdminService) CreateSource(projectID uuid.UUID, in SourceInput) (*models.Source, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if _, err := s.GetProject(projectID); err != nil {
		return nil, err
	}

	source := models.Source{
		ProjectID:           projectID,
		Enabled:             true,
		ScrapeIntervalHours: models.DefaultScrapeIntervalHours,
	}
	in.apply(&source)
	if err := s.db.Create(&source).Error; err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	return &source, nil
}

// UpdateSource applies a partial update
func (s *AdminService) UpdateSource(id uuid.UUID, in SourceInput) (*models.Source, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	source, err := s.GetSource(id)
	if err != nil {
		return nil, err
	}
	in.apply(source)
	if err := s.db.Save(source).Error; err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}
	return source, nil
}

// DeleteSource removes a source and its items
func (s *AdminService) DeleteSource(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", id).Delete(&models.SourceItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Source{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListSourceItems returns a source's newest items
func (s *AdminService) ListSourceItems(sourceID uuid.UUID, limit int) ([]models.SourceItem, error) {
	if _, err := s.GetSource(sourceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	var items []models.SourceItem
	if err := s.db.Where("source_id = ?", sourceID).Order("scraped_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list source items: %w", err)
	}
	return items, nil
}
