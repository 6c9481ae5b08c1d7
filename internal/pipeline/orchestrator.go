// Package pipeline runs the per-project stage sequence and keeps the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"newsmill/internal/config"
	"newsmill/internal/events"
	"newsmill/internal/metrics"
	"newsmill/internal/models"
	"newsmill/internal/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrPipelineBusy is returned when the project already has a run in flight
var ErrPipelineBusy = errors.New("pipeline busy")

const (
	RunTypePipeline = "pipeline"
	StatusOK        = "ok"
	StatusError     = "error"
)

// Options bounds the work of a single run
type Options struct {
	MaxItems     int
	IngestLimit  int
	FetchFull    bool
	ExtractBatch int
	MaxExtract   int
	JudgeBatch   int
	MaxJudge     int
	LockTTL      time.Duration
}

// DefaultOptions returns the stock limits
func DefaultOptions() Options {
	return Options{
		MaxItems:     10,
		IngestLimit:  50,
		FetchFull:    true,
		ExtractBatch: 20,
		MaxExtract:   200,
		JudgeBatch:   50,
		MaxJudge:     500,
		LockTTL:      30 * time.Minute,
	}
}

// OptionsFromConfig derives run limits from the application config
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	if cfg.Scrape.MaxItems > 0 {
		opts.MaxItems = cfg.Scrape.MaxItems
	}
	if cfg.Pipeline.IngestLimit > 0 {
		opts.IngestLimit = cfg.Pipeline.IngestLimit
	}
	if cfg.Extraction.BatchSize > 0 {
		opts.ExtractBatch = cfg.Extraction.BatchSize
	}
	if cfg.Pipeline.MaxExtractItems > 0 {
		opts.MaxExtract = cfg.Pipeline.MaxExtractItems
	}
	if cfg.Judge.BatchSize > 0 {
		opts.JudgeBatch = cfg.Judge.BatchSize
	}
	if cfg.Pipeline.MaxJudgeItems > 0 {
		opts.MaxJudge = cfg.Pipeline.MaxJudgeItems
	}
	if cfg.Pipeline.LockTTL > 0 {
		opts.LockTTL = cfg.Pipeline.LockTTL
	}
	return opts
}

// Stages groups the services a run drives
type Stages struct {
	Scrape  *services.ScrapeService
	Ingest  *services.IngestService
	Extract *services.ExtractionService
	Judge   *services.JudgeService
	Retire  *services.RetirementService
}

// Orchestrator runs scrape, ingest, extract, judge, dedupe and retire for
// a project and records each run
type Orchestrator struct {
	db        *gorm.DB
	stages    Stages
	locker    Locker
	publisher events.Publisher
	opts      Options
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator. A nil locker falls back to an
// in-process lock and a nil publisher disables events.
func NewOrchestrator(db *gorm.DB, stages Stages, locker Locker, publisher events.Publisher, opts Options) *Orchestrator {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if publisher == nil {
		publisher = events.NewMulti()
	}
	return &Orchestrator{
		db:        db,
		stages:    stages,
		locker:    locker,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func lockKey(projectID uuid.UUID) string {
	return "newsmill:pipeline:" + projectID.String()
}

// RunProject executes one pipeline run for the project. maxItems overrides
// the per-source scrape limit when positive.
func (o *Orchestrator) RunProject(ctx context.Context, projectID uuid.UUID, maxItems int) (*models.PipelineRun, error) {
	var project models.Project
	if err := o.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, services.ErrNotFound)
		}
		return nil, err
	}

	release, err := o.locker.Acquire(ctx, lockKey(projectID), o.opts.LockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			log.Printf("⚠️ Pipeline already running for project %s", project.Name)
			return nil, fmt.Errorf("project %s: %w", projectID, ErrPipelineBusy)
		}
		return nil, err
	}
	defer release()

	if maxItems <= 0 {
		maxItems = o.opts.MaxItems
	}

	run := &models.PipelineRun{
		ProjectID: &project.ID,
		RunType:   RunTypePipeline,
		StartedAt: o.now(),
	}
	log.Printf("🔄 Pipeline started for project %s", project.Name)

	runErr := o.runStages(ctx, &project, maxItems, run)
	run.FinishedAt = o.now()
	run.Status = StatusOK
	if runErr != nil {
		run.Status = StatusError
		run.Error = runErr.Error()
		log.Printf("❌ Pipeline failed for project %s: %v", project.Name, runErr)
	} else {
		log.Printf("✅ Pipeline finished for project %s: scraped=%d ingested=%d extracted=%d judged=%d deduped=%d unusable=%d",
			project.Name, run.ScrapeCount, run.IngestCount, run.ExtractCount, run.JudgeCount, run.DedupeCount, run.UnusableCount)
	}

	metrics.PipelineRunsTotal.WithLabelValues(run.Status).Inc()
	metrics.PipelineRunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	o.record(run)
	o.publish(ctx, &project, run)

	return run, runErr
}

func (o *Orchestrator) runStages(ctx context.Context, project *models.Project, maxItems int, run *models.PipelineRun) error {
	outcomes, err := o.stages.Scrape.ScrapeProject(ctx, project.ID, maxItems, false)
	run.ScrapeCount = len(outcomes)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	run.IngestCount, err = o.stages.Ingest.Ingest(ctx, services.IngestOptions{
		Limit:     o.opts.IngestLimit,
		FetchFull: o.opts.FetchFull,
		ProjectID: &project.ID,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	run.ExtractCount, err = drain(ctx, o.opts.ExtractBatch, o.opts.MaxExtract, func(limit int) (int, error) {
		return o.stages.Extract.Run(ctx, limit, &project.ID)
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	run.JudgeCount, err = drain(ctx, o.opts.JudgeBatch, o.opts.MaxJudge, func(limit int) (int, error) {
		return o.stages.Judge.Run(ctx, limit, &project.ID)
	})
	if err != nil {
		return fmt.Errorf("judge: %w", err)
	}

	run.DedupeCount, err = o.stages.Retire.Dedupe(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("dedupe: %w", err)
	}

	run.UnusableCount, err = o.stages.Retire.RetireStale(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("retire: %w", err)
	}
	return nil
}

// drain calls step with batch sized pages until a page yields nothing or
// the total reaches limit.
func drain(ctx context.Context, batch, limit int, step func(int) (int, error)) (int, error) {
	total := 0
	for total < limit {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		size := batch
		if remaining := limit - total; remaining < size {
			size = remaining
		}
		n, err := step(size)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (o *Orchestrator) record(run *models.PipelineRun) {
	if err := o.db.Create(run).Error; err != nil {
		log.Printf("⚠️ Failed to record pipeline run: %v", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, project *models.Project, run *models.PipelineRun) {
	event := events.RunEvent{
		RunID:         run.ID,
		ProjectID:     run.ProjectID,
		ProjectName:   project.Name,
		Status:        run.Status,
		ScrapeCount:   run.ScrapeCount,
		IngestCount:   run.IngestCount,
		ExtractCount:  run.ExtractCount,
		JudgeCount:    run.JudgeCount,
		DedupeCount:   run.DedupeCount,
		UnusableCount: run.UnusableCount,
		Error:         run.Error,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		log.Printf("⚠️ Failed to publish pipeline run: %v", err)
	}
}

// RunAll runs every project in creation order. Busy projects are skipped
// and reported in the returned map; other failures are logged.
func (o *Orchestrator) RunAll(ctx context.Context, maxItems int) ([]*models.PipelineRun, map[uuid.UUID]error, error) {
	var projects []models.Project
	if err := o.db.Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load projects: %w", err)
	}

	var runs []*models.PipelineRun
	failures := make(map[uuid.UUID]error)
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return runs, failures, err
		}
		run, err := o.RunProject(ctx, project.ID, maxItems)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			failures[project.ID] = err
		}
	}
	return runs, failures, nil
}

// ListRuns returns ledger rows, newest first
func (o *Orchestrator) ListRuns(ctx context.Context, projectID *uuid.UUID, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := o.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	var runs []models.PipelineRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to load pipeline runs: %w", err)
	}
	return runs, nil
}
