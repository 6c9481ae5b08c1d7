package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"newsmill/internal/metrics"
	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RetirementService moves articles into the terminal unusable state, either
// as duplicates of a better sibling or because they aged out with a low score.
type RetirementService struct {
	db  *gorm.DB
	now Clock
}

// NewRetirementService creates a new RetirementService
func NewRetirementService(db *gorm.DB) *RetirementService {
	return &RetirementService{db: db, now: utcNow}
}

// rankBefore orders dedupe candidates best first: higher score, then more
// recent scrape, then id so exactly one survivor exists per group.
func rankBefore(a, b *models.Article) bool {
	if a.Score() != b.Score() {
		return a.Score() > b.Score()
	}
	if !a.ScrapedAt.Equal(b.ScrapedAt) {
		return a.ScrapedAt.After(b.ScrapedAt)
	}
	return a.ID.String() > b.ID.String()
}

// Dedupe groups the project's usable articles by content hash and retires
// every member of a group except the best ranked one.
func (s *RetirementService) Dedupe(ctx context.Context, projectID uuid.UUID) (int, error) {
	var articles []models.Article
	err := s.db.Select("id", "content_hash", "judge_score", "scraped_at").
		Where("project_id = ? AND unusable = ? AND content_hash IS NOT NULL AND content_hash <> ?", projectID, false, "").
		Find(&articles).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load articles for dedupe: %w", err)
	}

	groups := make(map[string][]*models.Article)
	for i := range articles {
		hash := *articles[i].ContentHash
		groups[hash] = append(groups[hash], &articles[i])
	}

	now := s.now()
	count := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return rankBefore(group[i], group[j]) })
		keep := group[0]
		retired := make([]uuid.UUID, 0, len(group)-1)
		for _, dup := range group[1:] {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			err := s.db.Model(&models.Article{}).Where("id = ?", dup.ID).Updates(map[string]interface{}{
				"unusable":        true,
				"unusable_reason": models.UnusableReasonDuplicate,
				"duplicate_of":    keep.ID,
				"unusable_at":     now,
			}).Error
			if err != nil {
				return count, fmt.Errorf("failed to retire duplicate %s: %w", dup.ID, err)
			}
			retired = append(retired, dup.ID)
			count++
		}

		// duplicates retired by earlier runs may point at an article that was
		// just retired itself; move them onto the survivor
		err := s.db.Model(&models.Article{}).
			Where("duplicate_of IN ?", retired).
			Update("duplicate_of", keep.ID).Error
		if err != nil {
			return count, fmt.Errorf("failed to repoint duplicates to %s: %w", keep.ID, err)
		}
	}

	metrics.AddStageItems(metrics.StageDedupe, count)
	if count > 0 {
		log.Printf("✅ Retired %d duplicate articles in project %s", count, projectID)
	}
	return count, nil
}

// Thresholds returns the project's retirement thresholds, falling back to
// the defaults when the project is missing or unset.
func (s *RetirementService) Thresholds(projectID uuid.UUID) (int, int) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return models.DefaultUnusableScoreThreshold, models.DefaultUnusableAgeHours
	}
	return project.RetirementThresholds()
}

// RetireStale retires scored articles whose score is below the project's
// threshold and which were scraped longer ago than its age limit.
func (s *RetirementService) RetireStale(ctx context.Context, projectID uuid.UUID) (int, error) {
	threshold, ageHours := s.Thresholds(projectID)
	now := s.now()
	cutoff := now.Add(-time.Duration(ageHours) * time.Hour)

	var ids []uuid.UUID
	err := s.db.Model(&models.Article{}).
		Where("project_id = ? AND scored = ? AND unusable = ?", projectID, true, false).
		Where("judge_score < ? AND scraped_at < ?", threshold, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load stale articles: %w", err)
	}

	reason := fmt.Sprintf("low_score_age(score<%d,>%dh)", threshold, ageHours)
	count := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		err := s.db.Model(&models.Article{}).Where("id = ?", id).Updates(map[string]interface{}{
			"unusable":        true,
			"unusable_reason": reason,
			"unusable_at":     now,
		}).Error
		if err != nil {
			return count, fmt.Errorf("failed to retire article %s: %w", id, err)
		}
		count++
	}

	metrics.AddStageItems(metrics.StageRetire, count)
	if count > 0 {
		log.Printf("✅ Retired %d stale articles in project %s (%s)", count, projectID, reason)
	}
	return count, nil
}
