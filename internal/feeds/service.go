// Package feeds is the generation readiness gate: it decides which articles
// downstream generators may consume and records what they consumed.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidUsage is returned for malformed usage records
var ErrInvalidUsage = errors.New("invalid usage")

// FeedService selects generation candidates
type FeedService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewFeedService creates a new feed service
func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// FeedResponse is returned by the readiness endpoints
type FeedResponse struct {
	Items []Article `json:"items"`
	Meta  FeedMeta  `json:"meta"`
}

// Article represents simplified article data for generators
type Article struct {
	ID                uuid.UUID         `json:"id"`
	ProjectID         *uuid.UUID        `json:"project_id"`
	URL               string            `json:"url"`
	SiteName          string            `json:"site_name"`
	Title             string            `json:"title"`
	Summary           string            `json:"summary"`
	Content           string            `json:"content"`
	JudgeScore        int               `json:"judge_score"`
	FormatAssignments models.FormatList `json:"format_assignments"`
	ScrapedAt         time.Time         `json:"scraped_at"`
}

// FeedMeta contains metadata about the selection
type FeedMeta struct {
	TotalItems  int       `json:"total_items"`
	Limit       int       `json:"limit"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GenerationQuery narrows ReadyForGeneration
type GenerationQuery struct {
	ProjectID        *uuid.UUID
	Limit            int
	ContentType      string
	MinScore         int
	RequireProcessed bool
}

// RoundupQuery narrows ReadyForAudioRoundup
type RoundupQuery struct {
	ProjectID *uuid.UUID
	Hours     int
	Limit     int
}

func toArticle(a models.Article) Article {
	return Article{
		ID:                a.ID,
		ProjectID:         a.ProjectID,
		URL:               a.SourceURL,
		SiteName:          a.SourceWebsite,
		Title:             a.Title,
		Summary:           a.Summary,
		Content:           a.Text(),
		JudgeScore:        a.Score(),
		FormatAssignments: a.FormatAssignments,
		ScrapedAt:         a.ScrapedAt,
	}
}

func (fs *FeedService) response(articles []models.Article, limit int) *FeedResponse {
	items := make([]Article, 0, len(articles))
	for _, a := range articles {
		items = append(items, toArticle(a))
	}
	return &FeedResponse{
		Items: items,
		Meta:  FeedMeta{TotalItems: len(items), Limit: limit, GeneratedAt: fs.now()},
	}
}

// ReadyForGeneration returns scored, usable articles that have no post of
// the requested content type yet, best scored first.
func (fs *FeedService) ReadyForGeneration(ctx context.Context, q GenerationQuery) (*FeedResponse, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.ContentType == "" {
		q.ContentType = models.FormatVideo
	}

	query := fs.db.WithContext(ctx).
		Where("scored = ? AND unusable = ?", true, false).
		Where("NOT EXISTS (SELECT 1 FROM posts WHERE posts.article_id = articles.id AND posts.content_type = ?)", q.ContentType)
	if q.ProjectID != nil {
		query = query.Where("project_id = ?", *q.ProjectID)
	}
	if q.RequireProcessed {
		query = query.Where("processed = ?", true)
	}
	if q.MinScore > 0 {
		query = query.Where("judge_score >= ?", q.MinScore)
	}

	var articles []models.Article
	if err := query.Order("judge_score DESC").Order("scraped_at DESC").Limit(q.Limit).Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to load generation candidates: %w", err)
	}
	return fs.response(articles, q.Limit), nil
}

// ReadyForAudioRoundup returns the best recent articles that were never used
// in a roundup. It over-fetches so enough candidates survive the usage filter.
func (fs *FeedService) ReadyForAudioRoundup(ctx context.Context, q RoundupQuery) (*FeedResponse, error) {
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Hours <= 0 {
		q.Hours = 24
	}
	since := fs.now().Add(-time.Duration(q.Hours) * time.Hour)

	query := fs.db.WithContext(ctx).
		Where("processed = ? AND scored = ? AND unusable = ?", true, true, false).
		Where("scraped_at >= ?", since).
		Where("duplicate_of IS NULL")
	if q.ProjectID != nil {
		query = query.Where("project_id = ?", *q.ProjectID)
	}

	var candidates []models.Article
	if err := query.Order("judge_score DESC").Order("scraped_at DESC").Limit(q.Limit * 3).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to load roundup candidates: %w", err)
	}
	if len(candidates) == 0 {
		return fs.response(nil, q.Limit), nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	var used []uuid.UUID
	err := fs.db.WithContext(ctx).Model(&models.ArticleUsage{}).
		Where("article_id IN ? AND usage_type = ?", ids, models.UsageAudioRoundup).
		Pluck("article_id", &used).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roundup usage: %w", err)
	}
	usedSet := make(map[uuid.UUID]bool, len(used))
	for _, id := range used {
		usedSet[id] = true
	}

	selected := make([]models.Article, 0, q.Limit)
	for _, c := range candidates {
		if usedSet[c.ID] {
			continue
		}
		selected = append(selected, c)
		if len(selected) == q.Limit {
			break
		}
	}
	return fs.response(selected, q.Limit), nil
}

// RecordUsage marks articles as consumed for a usage type. Pairs that were
// already recorded are skipped. It returns the number of new usage rows.
func (fs *FeedService) RecordUsage(ctx context.Context, articleIDs []uuid.UUID, usageType string, postID *uuid.UUID) (int, error) {
	usageType = strings.TrimSpace(usageType)
	if usageType == "" {
		return 0, fmt.Errorf("%w: usage_type is required", ErrInvalidUsage)
	}
	if len(articleIDs) == 0 {
		return 0, fmt.Errorf("%w: article_ids is required", ErrInvalidUsage)
	}

	created := 0
	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var known []uuid.UUID
		if err := tx.Model(&models.Article{}).Where("id IN ?", articleIDs).Pluck("id", &known).Error; err != nil {
			return err
		}
		if len(known) != len(uniqueIDs(articleIDs)) {
			return fmt.Errorf("%w: unknown article id", ErrInvalidUsage)
		}

		var existing []uuid.UUID
		if err := tx.Model(&models.ArticleUsage{}).
			Where("article_id IN ? AND usage_type = ?", articleIDs, usageType).
			Pluck("article_id", &existing).Error; err != nil {
			return err
		}
		skip := make(map[uuid.UUID]bool, len(existing))
		for _, id := range existing {
			skip[id] = true
		}

		for _, id := range articleIDs {
			if skip[id] {
				continue
			}
			skip[id] = true
			if err := tx.Create(&models.ArticleUsage{ArticleID: id, PostID: postID, UsageType: usageType}).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Article loads one article by id
func (fs *FeedService) Article(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var article models.Article
	if err := fs.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("article %s: %w", id, err)
	}
	return &article, nil
}
