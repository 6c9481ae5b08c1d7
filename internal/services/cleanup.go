package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"newsmill/internal/metrics"
	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	cleanupPageSize  = 500
	cleanupChunkSize = 200
)

// CleanupSummary reports what one cleanup sweep removed
type CleanupSummary struct {
	SourceItemsDeleted int64 `json:"source_items_deleted"`
	ArticlesWiped      int   `json:"articles_wiped"`
}

// CleanupService drops aged scrape data and the bodies of retired articles
type CleanupService struct {
	db  *gorm.DB
	now Clock
}

// NewCleanupService creates a new CleanupService
func NewCleanupService(db *gorm.DB) *CleanupService {
	return &CleanupService{db: db, now: utcNow}
}

// Run deletes source items scraped before the cutoff and, when wipeUnusable
// is set, nulls raw text and content of unusable articles older than the
// cutoff. Articles referenced by a post or usage row keep their text.
func (s *CleanupService) Run(ctx context.Context, hours int, wipeUnusable bool) (CleanupSummary, error) {
	if hours <= 0 {
		hours = 48
	}
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour)

	var summary CleanupSummary
	result := s.db.Where("scraped_at < ?", cutoff).Delete(&models.SourceItem{})
	if result.Error != nil {
		return summary, fmt.Errorf("failed to delete source items: %w", result.Error)
	}
	summary.SourceItemsDeleted = result.RowsAffected

	if !wipeUnusable {
		log.Printf("🧹 Cleanup deleted %d source items", summary.SourceItemsDeleted)
		return summary, nil
	}

	ids, err := s.unusableBefore(ctx, cutoff)
	if err != nil {
		return summary, err
	}
	if len(ids) == 0 {
		log.Printf("🧹 Cleanup deleted %d source items", summary.SourceItemsDeleted)
		return summary, nil
	}

	blocked, err := s.referenced(ids)
	if err != nil {
		return summary, err
	}

	wipe := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !blocked[id] {
			wipe = append(wipe, id)
		}
	}

	for start := 0; start < len(wipe); start += cleanupChunkSize {
		end := start + cleanupChunkSize
		if end > len(wipe) {
			end = len(wipe)
		}
		err := s.db.Model(&models.Article{}).
			Where("id IN ?", wipe[start:end]).
			Updates(map[string]interface{}{"raw_text": nil, "content": nil}).Error
		if err != nil {
			return summary, fmt.Errorf("failed to wipe article bodies: %w", err)
		}
		summary.ArticlesWiped += end - start
	}

	metrics.AddStageItems(metrics.StageCleanup, summary.ArticlesWiped)
	log.Printf("🧹 Cleanup deleted %d source items and wiped %d articles", summary.SourceItemsDeleted, summary.ArticlesWiped)
	return summary, nil
}

func (s *CleanupService) unusableBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for offset := 0; ; offset += cleanupPageSize {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var page []uuid.UUID
		err := s.db.Model(&models.Article{}).
			Where("unusable = ? AND scraped_at < ?", true, cutoff).
			Order("id").
			Offset(offset).
			Limit(cleanupPageSize).
			Pluck("id", &page).Error
		if err != nil {
			return nil, fmt.Errorf("failed to page unusable articles: %w", err)
		}
		ids = append(ids, page...)
		if len(page) < cleanupPageSize {
			return ids, nil
		}
	}
}

// referenced returns the ids that a post or usage row points at
func (s *CleanupService) referenced(ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	blocked := make(map[uuid.UUID]bool)
	for start := 0; start < len(ids); start += cleanupChunkSize {
		end := start + cleanupChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var fromPosts []uuid.UUID
		if err := s.db.Model(&models.Post{}).Where("article_id IN ?", chunk).Pluck("article_id", &fromPosts).Error; err != nil {
			return nil, fmt.Errorf("failed to load post references: %w", err)
		}
		var fromUsage []uuid.UUID
		if err := s.db.Model(&models.ArticleUsage{}).Where("article_id IN ?", chunk).Pluck("article_id", &fromUsage).Error; err != nil {
			return nil, fmt.Errorf("failed to load usage references: %w", err)
		}
		for _, id := range append(fromPosts, fromUsage...) {
			blocked[id] = true
		}
	}
	return blocked, nil
}
