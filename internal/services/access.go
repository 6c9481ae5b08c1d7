package services

import (
	"context"
	"fmt"
	"log"

	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessCheck is the result for one probed URL
type AccessCheck struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AccessReport summarizes an access check of one source
type AccessReport struct {
	SourceID     uuid.UUID     `json:"source_id"`
	SourceName   string        `json:"source_name"`
	Checked      int           `json:"checked"`
	Blocked      int           `json:"blocked"`
	AuthRequired bool          `json:"auth_required"`
	Results      []AccessCheck `json:"results"`
}

// AccessService probes sources for auth and login walls without storing items
type AccessService struct {
	db      *gorm.DB
	fetcher PageFetcher
	now     Clock
}

// NewAccessService creates a new AccessService
func NewAccessService(db *gorm.DB, fetcher PageFetcher) *AccessService {
	return &AccessService{db: db, fetcher: fetcher, now: utcNow}
}

// CheckSourceByID loads a source and checks it
func (s *AccessService) CheckSourceByID(ctx context.Context, id uuid.UUID, sample int) (AccessReport, error) {
	var source models.Source
	if err := s.db.First(&source, "id = ?", id).Error; err != nil {
		return AccessReport{}, notFound(err, "source")
	}
	return s.CheckSource(ctx, &source, sample), nil
}

// CheckSource fetches up to sample URLs for the source and runs login wall
// detection on each. The first detection is recorded on the source config.
func (s *AccessService) CheckSource(ctx context.Context, source *models.Source, sample int) AccessReport {
	report := AccessReport{SourceID: source.ID, SourceName: source.Name}

	recorded := false
	for _, target := range s.sampleURLs(source, sample) {
		check := AccessCheck{URL: target}
		page, err := s.fetcher.FetchPage(ctx, source.Config, target)
		if err != nil {
			check.Error = err.Error()
		} else {
			check.StatusCode = page.StatusCode
			check.Reason = page.LoginReason
		}
		report.Results = append(report.Results, check)
		report.Checked++

		if check.Reason == "" {
			continue
		}
		report.Blocked++
		report.AuthRequired = true
		if !recorded {
			if err := recordAuthDetection(s.db, source, check.Reason, target, s.now()); err != nil {
				log.Printf("⚠️ Failed to record access result for %s: %v", source.Name, err)
			}
			recorded = true
		}
	}

	log.Printf("🔐 Access check for %s: %d checked, %d blocked", source.Name, report.Checked, report.Blocked)
	return report
}

// sampleURLs picks what to probe: the newest item URLs for listing sources,
// the source URL itself otherwise
func (s *AccessService) sampleURLs(source *models.Source, sample int) []string {
	if sample <= 0 {
		sample = 3
	}
	switch source.Type {
	case models.SourceTypeRSS, models.SourceTypeReddit, models.SourceTypeYouTube:
		var urls []string
		err := s.db.Model(&models.SourceItem{}).
			Where("source_id = ?", source.ID).
			Order("scraped_at DESC").
			Limit(sample).
			Pluck("url", &urls).Error
		if err == nil && len(urls) > 0 {
			return urls
		}
	}
	return []string{source.URL}
}

// CheckProject checks every enabled source of a project
func (s *AccessService) CheckProject(ctx context.Context, projectID uuid.UUID, sample int) ([]AccessReport, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, notFound(err, "project")
	}

	var sources []models.Source
	if err := s.db.Where("project_id = ? AND enabled = ?", projectID, true).Order("created_at ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	reports := make([]AccessReport, 0, len(sources))
	for i := range sources {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		reports = append(reports, s.CheckSource(ctx, &sources[i], sample))
	}
	return reports, nil
}
