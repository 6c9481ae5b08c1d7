package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"newsmill/internal/fingerprint"
	"newsmill/internal/llm"
	"newsmill/internal/metrics"
	"newsmill/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultMaxAttempts is how often a stage retries an article before
// marking it failed
const DefaultMaxAttempts = 3

var (
	errEmptyText    = errors.New("article has no text")
	errEmptySummary = errors.New("summarizer returned an empty summary")
)

// recordFailure bumps the stage attempt counter and parks the article once
// the counter reaches maxAttempts.
func recordFailure(db *gorm.DB, article *models.Article, stage string, cause error, maxAttempts int) error {
	column := "extract_attempts"
	attempts := article.ExtractAttempts + 1
	if stage == models.StageJudge {
		column = "judge_attempts"
		attempts = article.JudgeAttempts + 1
	}

	updates := map[string]interface{}{
		column:       attempts,
		"last_error": truncateError(cause),
	}
	if attempts >= maxAttempts {
		updates["failed_stage"] = stage
		log.Printf("❌ Article %s failed %s after %d attempts: %v", article.ID, stage, attempts, cause)
	}
	return db.Model(&models.Article{}).Where("id = ?", article.ID).Updates(updates).Error
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

// ExtractionService summarizes unprocessed articles
type ExtractionService struct {
	db          *gorm.DB
	summarizer  llm.Summarizer
	maxAttempts int
	now         Clock
}

// NewExtractionService creates a new ExtractionService
func NewExtractionService(db *gorm.DB, summarizer llm.Summarizer, maxAttempts int) *ExtractionService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ExtractionService{db: db, summarizer: summarizer, maxAttempts: maxAttempts, now: utcNow}
}

// Run summarizes up to limit unprocessed articles and returns how many were
// marked processed. Failures count against the article's attempt budget.
func (s *ExtractionService) Run(ctx context.Context, limit int, projectID *uuid.UUID) (int, error) {
	if limit <= 0 {
		limit = 20
	}

	var articles []models.Article
	err := s.db.Scopes(scopeProject(projectID)).
		Where("processed = ? AND failed_stage = ?", false, "").
		Order("created_at ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load unprocessed articles: %w", err)
	}

	count := 0
	for i := range articles {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		article := &articles[i]
		if err := s.extract(ctx, article); err != nil {
			if ferr := recordFailure(s.db, article, models.StageExtract, err, s.maxAttempts); ferr != nil {
				log.Printf("❌ Failed to record extraction failure for %s: %v", article.ID, ferr)
			}
			continue
		}
		count++
	}

	metrics.AddStageItems(metrics.StageExtract, count)
	if len(articles) > 0 {
		log.Printf("✅ Extracted %d of %d articles", count, len(articles))
	}
	return count, nil
}

func (s *ExtractionService) extract(ctx context.Context, article *models.Article) error {
	raw := ""
	if article.RawText != nil {
		raw = strings.TrimSpace(*article.RawText)
	}
	if raw == "" {
		return errEmptyText
	}

	result, err := s.summarizer.Summarize(ctx, raw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Summary) == "" {
		return errEmptySummary
	}

	hash := article.ContentHash
	if hash == nil || *hash == "" {
		basis := result.Content
		if basis == "" {
			basis = raw
		}
		hash = fingerprint.ContentHash(basis)
	}

	updates := map[string]interface{}{
		"summary":      result.Summary,
		"processed":    true,
		"scraped_at":   s.now(),
		"content_hash": hash,
		"last_error":   "",
	}
	if result.Title != "" {
		updates["title"] = result.Title
	}
	if result.Content != "" {
		updates["content"] = result.Content
	}
	return s.db.Model(&models.Article{}).Where("id = ?", article.ID).Updates(updates).Error
}

// JudgeService scores processed articles
type JudgeService struct {
	db            *gorm.DB
	judge         llm.Judge
	videoMinScore int
	maxAttempts   int
}

// NewJudgeService creates a new JudgeService. Articles scoring at least
// videoMinScore are assigned the video format.
func NewJudgeService(db *gorm.DB, judge llm.Judge, videoMinScore, maxAttempts int) *JudgeService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &JudgeService{db: db, judge: judge, videoMinScore: videoMinScore, maxAttempts: maxAttempts}
}

// FormatsForScore returns the formats an article with this score qualifies for
func (s *JudgeService) FormatsForScore(score int) models.FormatList {
	if score >= s.videoMinScore {
		return models.FormatList{models.FormatVideo}
	}
	return models.FormatList{}
}

// Run scores up to limit processed, unscored articles. Without a judge
// nothing is scored and no attempts are spent.
func (s *JudgeService) Run(ctx context.Context, limit int, projectID *uuid.UUID) (int, error) {
	if s.judge == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var articles []models.Article
	err := s.db.Scopes(scopeProject(projectID)).
		Where("processed = ? AND scored = ? AND failed_stage = ?", true, false, "").
		Order("created_at ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load unscored articles: %w", err)
	}

	count := 0
	for i := range articles {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		article := &articles[i]
		if err := s.score(ctx, article); err != nil {
			if ferr := recordFailure(s.db, article, models.StageJudge, err, s.maxAttempts); ferr != nil {
				log.Printf("❌ Failed to record judge failure for %s: %v", article.ID, ferr)
			}
			continue
		}
		count++
	}

	metrics.AddStageItems(metrics.StageJudge, count)
	if len(articles) > 0 {
		log.Printf("✅ Judged %d of %d articles", count, len(articles))
	}
	return count, nil
}

func (s *JudgeService) score(ctx context.Context, article *models.Article) error {
	summary := strings.TrimSpace(article.Summary)
	if summary == "" {
		return errEmptySummary
	}

	verdict, err := s.judge.Judge(ctx, summary)
	if err != nil {
		return err
	}
	score := llm.ClampScore(verdict.Score)

	return s.db.Model(&models.Article{}).Where("id = ?", article.ID).Updates(map[string]interface{}{
		"judge_score":        score,
		"format_assignments": s.FormatsForScore(score),
		"scored":             true,
		"last_error":         "",
	}).Error
}
