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

// PageFetcher downloads and reads a single page with source credentials
type PageFetcher interface {
	FetchPage(ctx context.Context, auth models.SourceConfig, pageURL string) (*scraper.PageFetch, error)
}

// IngestOptions controls one ingestion batch
type IngestOptions struct {
	Limit     int
	FetchFull bool
	ProjectID *uuid.UUID
}

// IngestService promotes source items to articles
type IngestService struct {
	db       *gorm.DB
	fetcher  PageFetcher
	maxChars int
	now      Clock
}

// NewIngestService creates a new IngestService. maxChars bounds the text
// stored on new articles.
func NewIngestService(db *gorm.DB, fetcher PageFetcher, maxChars int) *IngestService {
	if maxChars <= 0 {
		maxChars = 20000
	}
	return &IngestService{db: db, fetcher: fetcher, maxChars: maxChars, now: utcNow}
}

// Ingest reads the most recently scraped items and creates one article per
// canonical URL not seen before. It returns the number of articles created.
func (s *IngestService) Ingest(ctx context.Context, opts IngestOptions) (int, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := s.db.Model(&models.SourceItem{}).Order("source_items.scraped_at DESC").Limit(opts.Limit)
	if opts.ProjectID != nil {
		query = query.Select("source_items.*").
			Joins("JOIN sources ON sources.id = source_items.source_id").
			Where("sources.project_id = ?", *opts.ProjectID)
	}
	var items []models.SourceItem
	if err := query.Find(&items).Error; err != nil {
		return 0, fmt.Errorf("failed to load source items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	sources, err := s.loadSources(items)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range items {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		ok, err := s.ingestItem(ctx, &items[i], sources[items[i].SourceID], opts.FetchFull)
		if err != nil {
			log.Printf("⚠️ Failed to ingest %s: %v", items[i].URL, err)
			continue
		}
		if ok {
			created++
		}
	}

	metrics.AddStageItems(metrics.StageIngest, created)
	log.Printf("✅ Ingested %d new articles from %d source items", created, len(items))
	return created, nil
}

func (s *IngestService) loadSources(items []models.SourceItem) (map[uuid.UUID]*models.Source, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.SourceID)
	}
	var sources []models.Source
	if err := s.db.Where("id IN ?", ids).Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Source, len(sources))
	for i := range sources {
		byID[sources[i].ID] = &sources[i]
	}
	return byID, nil
}

func (s *IngestService) ingestItem(ctx context.Context, item *models.SourceItem, source *models.Source, fetchFull bool) (bool, error) {
	canonical := fingerprint.CanonicalizeURL(item.URL)
	if canonical == "" {
		return false, nil
	}

	var existing int64
	if err := s.db.Model(&models.Article{}).Where("source_url = ?", canonical).Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	text := strings.TrimSpace(item.Content)
	if text == "" {
		text = strings.TrimSpace(item.Raw)
	}

	if fetchFull && s.fetcher != nil {
		text = s.fullText(ctx, source, canonical, text)
	}
	if text == "" {
		return false, nil
	}
	text = scraper.Truncate(text, s.maxChars)

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = canonical
	}

	article := models.Article{
		SourceURL:     canonical,
		SourceWebsite: fingerprint.Hostname(canonical),
		Title:         title,
		RawText:       &text,
		ContentHash:   fingerprint.ContentHash(text),
		ScrapedAt:     s.now(),
	}
	if source != nil {
		article.ProjectID = &source.ProjectID
		article.SourceID = &source.ID
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_url"}},
		DoNothing: true,
	}).Create(&article)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// fullText refetches the canonical page. Gated pages are recorded on the
// source and, like any failure, leave the stored text in place.
func (s *IngestService) fullText(ctx context.Context, source *models.Source, pageURL, fallback string) string {
	auth := models.SourceConfig{}
	if source != nil {
		auth = source.Config
	}

	page, err := s.fetcher.FetchPage(ctx, auth, pageURL)
	if err != nil {
		return fallback
	}
	if page.Gated() {
		if source != nil {
			if err := recordAuthDetection(s.db, source, page.LoginReason, pageURL, s.now()); err != nil {
				log.Printf("⚠️ Failed to record login wall for %s: %v", source.Name, err)
			}
		}
		return fallback
	}
	if text := strings.TrimSpace(page.Text); text != "" {
		return text
	}
	return fallback
}
