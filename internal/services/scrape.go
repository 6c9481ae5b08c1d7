package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"newsmill/internal/fingerprint"
	"newsmill/internal/metrics"
	"newsmill/internal/models"
	"newsmill/internal/scraper"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceScraper fetches items for one source
type SourceScraper interface {
	Scrape(ctx context.Context, source *models.Source, maxItems int) scraper.Result
}

// ScrapeOutcome is the per-source status returned to API and CLI callers
type ScrapeOutcome struct {
	SourceID   uuid.UUID `json:"source_id"`
	SourceName string    `json:"source_name"`
	Count      int       `json:"count"`
	Status     string    `json:"status"`
	AuthReason string    `json:"auth_reason,omitempty"`
}

// ScrapeService runs scrapes and persists their results
type ScrapeService struct {
	db      *gorm.DB
	scraper SourceScraper
	now     Clock
}

// NewScrapeService creates a new ScrapeService
func NewScrapeService(db *gorm.DB, s SourceScraper) *ScrapeService {
	return &ScrapeService{db: db, scraper: s, now: utcNow}
}

// ScrapeSource scrapes one source, upserts its items and records the
// attempt on the source. It never fails: problems end up in the status.
func (s *ScrapeService) ScrapeSource(ctx context.Context, source *models.Source, maxItems int) ScrapeOutcome {
	result := s.scraper.Scrape(ctx, source, maxItems)
	outcome := ScrapeOutcome{
		SourceID:   source.ID,
		SourceName: source.Name,
		Status:     result.Status,
		AuthReason: result.AuthReason,
	}

	now := s.now()
	if len(result.Items) > 0 {
		count, err := s.upsertItems(source.ID, result.Items)
		if err != nil {
			log.Printf("❌ Failed to store items for source %s: %v", source.Name, err)
			outcome.Status = "error: database"
		} else {
			outcome.Count = count
		}
	}

	updates := map[string]interface{}{
		"last_scraped_at": now,
		"last_status":     outcome.Status,
	}
	if result.AuthReason != "" {
		source.Config.RecordDetection(result.AuthReason, result.AuthURL, now)
		updates["config"] = source.Config
		log.Printf("⚠️ Source %s requires authentication (%s)", source.Name, result.AuthReason)
	}
	if err := s.db.Model(&models.Source{}).Where("id = ?", source.ID).Updates(updates).Error; err != nil {
		log.Printf("❌ Failed to update status for source %s: %v", source.Name, err)
	}
	source.LastScrapedAt = &now
	source.LastStatus = outcome.Status

	metrics.ScrapeResultsTotal.WithLabelValues(string(source.Type), metrics.ScrapeOutcome(outcome.Status)).Inc()
	metrics.AddStageItems(metrics.StageScrape, outcome.Count)

	if result.Err != nil {
		log.Printf("⚠️ Scrape of %s (%s) finished with status %q: %v", source.Name, source.Type, outcome.Status, result.Err)
	} else {
		log.Printf("✅ Scraped %d items from %s", outcome.Count, source.Name)
	}
	return outcome
}

// upsertItems inserts items keyed on (source_id, url), refreshing rows that
// already exist. Item URLs are canonicalized first.
func (s *ScrapeService) upsertItems(sourceID uuid.UUID, items []scraper.Item) (int, error) {
	now := s.now()
	seen := make(map[string]bool, len(items))
	rows := make([]models.SourceItem, 0, len(items))
	for _, item := range items {
		url := fingerprint.CanonicalizeURL(item.URL)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		rows = append(rows, models.SourceItem{
			SourceID:    sourceID,
			Title:       item.Title,
			URL:         url,
			Content:     item.Content,
			Raw:         item.Raw,
			PublishedAt: item.PublishedAt,
			ScrapedAt:   now,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "raw", "published_at", "scraped_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert source items: %w", err)
	}
	return len(rows), nil
}

// ScrapeSourceByID loads a source and scrapes it regardless of schedule
func (s *ScrapeService) ScrapeSourceByID(ctx context.Context, id uuid.UUID, maxItems int) (ScrapeOutcome, error) {
	var source models.Source
	if err := s.db.First(&source, "id = ?", id).Error; err != nil {
		return ScrapeOutcome{}, notFound(err, "source")
	}
	return s.ScrapeSource(ctx, &source, maxItems), nil
}

// ScrapeProject scrapes the project's enabled sources. Unless force is set
// only sources that are due are scraped.
func (s *ScrapeService) ScrapeProject(ctx context.Context, projectID uuid.UUID, maxItems int, force bool) ([]ScrapeOutcome, error) {
	var count int64
	if err := s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return s.scrapeWhere(ctx, &projectID, maxItems, force)
}

// ScrapeAll scrapes enabled sources across projects, optionally limited to one
func (s *ScrapeService) ScrapeAll(ctx context.Context, projectID *uuid.UUID, maxItems int, force bool) ([]ScrapeOutcome, error) {
	return s.scrapeWhere(ctx, projectID, maxItems, force)
}

func (s *ScrapeService) scrapeWhere(ctx context.Context, projectID *uuid.UUID, maxItems int, force bool) ([]ScrapeOutcome, error) {
	var sources []models.Source
	if err := s.db.Scopes(scopeProject(projectID)).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	now := s.now()
	outcomes := make([]ScrapeOutcome, 0, len(sources))
	for i := range sources {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		source := &sources[i]
		if !force && !scraper.ShouldScrape(source, now) {
			continue
		}
		outcomes = append(outcomes, s.ScrapeSource(ctx, source, maxItems))
	}
	return outcomes, nil
}

// TotalScraped sums item counts across outcomes
func TotalScraped(outcomes []ScrapeOutcome) int {
	total := 0
	for _, o := range outcomes {
		total += o.Count
	}
	return total
}

// FailedOutcomes returns the outcomes whose status is not ok
func FailedOutcomes(outcomes []ScrapeOutcome) []ScrapeOutcome {
	var failed []ScrapeOutcome
	for _, o := range outcomes {
		if !strings.EqualFold(o.Status, scraper.StatusOK) {
			failed = append(failed, o)
		}
	}
	return failed
}
