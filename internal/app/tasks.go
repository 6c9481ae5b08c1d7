package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"newsmill/internal/pipeline"
	"newsmill/internal/services"
	"newsmill/internal/worker"
	"newsmill/internal/workers"

	"github.com/google/uuid"
)

// ScrapeTask scrapes due sources and reports scraped=N
func (a *App) ScrapeTask(projectID *uuid.UUID, maxItems int) workers.Task {
	return func(ctx context.Context) (string, error) {
		outcomes, err := a.Scrape.ScrapeAll(ctx, projectID, maxItems, false)
		if err != nil {
			return "", err
		}
		for _, o := range services.FailedOutcomes(outcomes) {
			log.Printf("⚠️ Source %s (%s) finished with status %s", o.SourceName, o.SourceID, o.Status)
		}
		return fmt.Sprintf("scraped=%d", services.TotalScraped(outcomes)), nil
	}
}

// IngestTask promotes source items and reports ingested_sources=N
func (a *App) IngestTask(projectID *uuid.UUID, limit int, fetchFull bool) workers.Task {
	return func(ctx context.Context) (string, error) {
		n, err := a.Ingest.Ingest(ctx, services.IngestOptions{Limit: limit, FetchFull: fetchFull, ProjectID: projectID})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ingested_sources=%d", n), nil
	}
}

// ExtractTask summarizes one batch and reports extracted=N
func (a *App) ExtractTask(projectID *uuid.UUID, limit int) workers.Task {
	return func(ctx context.Context) (string, error) {
		n, err := a.Extract.Run(ctx, limit, projectID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("extracted=%d", n), nil
	}
}

// JudgeTask scores one batch and reports judged=N
func (a *App) JudgeTask(projectID *uuid.UUID, limit int) workers.Task {
	return func(ctx context.Context) (string, error) {
		n, err := a.Judge.Run(ctx, limit, projectID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("judged=%d", n), nil
	}
}

// PipelineTask runs one project, or every project when projectID is nil, and
// reports pipeline_runs=N. Busy projects are listed as pipeline_busy.
func (a *App) PipelineTask(projectID *uuid.UUID, maxItems int) workers.Task {
	return func(ctx context.Context) (string, error) {
		if projectID != nil {
			_, err := a.Orchestrator.RunProject(ctx, *projectID, maxItems)
			if errors.Is(err, pipeline.ErrPipelineBusy) {
				return fmt.Sprintf("pipeline_runs=0 pipeline_busy=%s", projectID.String()), nil
			}
			if err != nil {
				return "", err
			}
			return "pipeline_runs=1", nil
		}

		runs, failures, err := a.Orchestrator.RunAll(ctx, maxItems)
		if err != nil {
			return "", err
		}
		summary := fmt.Sprintf("pipeline_runs=%d", len(runs))
		var busy []string
		for id, ferr := range failures {
			if errors.Is(ferr, pipeline.ErrPipelineBusy) {
				busy = append(busy, id.String())
			}
		}
		if len(busy) > 0 {
			sort.Strings(busy)
			summary += " pipeline_busy=" + strings.Join(busy, ",")
		}
		return summary, nil
	}
}

// CleanupTask removes aged scrape data and reports both counts
func (a *App) CleanupTask(hours int, wipeUnusable bool) workers.Task {
	return func(ctx context.Context) (string, error) {
		summary, err := a.Cleanup.Run(ctx, hours, wipeUnusable)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("source_items_deleted=%d articles_wiped=%d", summary.SourceItemsDeleted, summary.ArticlesWiped), nil
	}
}

// ScheduledJobs returns the jobs the server registers with its scheduler
func (a *App) ScheduledJobs() []worker.Job {
	return []worker.Job{
		{Name: "pipeline", Spec: a.Config.Schedule.Pipeline, Run: a.PipelineTask(nil, a.Config.Scrape.MaxItems)},
		{Name: "cleanup", Spec: a.Config.Schedule.Cleanup, Run: a.CleanupTask(a.Config.Cleanup.Hours, true)},
	}
}
