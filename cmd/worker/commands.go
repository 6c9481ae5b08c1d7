package main

import (
	"context"
	"fmt"
	"time"

	"newsmill/internal/app"
	"newsmill/internal/auth"
	"newsmill/internal/config"
	"newsmill/internal/database"
	"newsmill/internal/workers"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// taskSpec describes a stage that can run once or as a loop. bind registers
// the stage's flags on cmd and returns the builder for its task.
type taskSpec struct {
	name     string
	short    string
	interval time.Duration
	bind     func(cmd *cobra.Command) func(a *app.App) (workers.Task, error)
}

func taskSpecs() []taskSpec {
	return []taskSpec{
		{
			name:     "scrape",
			short:    "Scrape due sources into source items",
			interval: time.Hour,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				projectID := projectFlag(cmd)
				maxItems := cmd.Flags().Int("max-items", 10, "items kept per source")
				return func(a *app.App) (workers.Task, error) {
					id, err := parseProjectID(*projectID)
					if err != nil {
						return nil, err
					}
					return a.ScrapeTask(id, *maxItems), nil
				}
			},
		},
		{
			name:     "ingest-sources",
			short:    "Promote scraped source items to articles",
			interval: 30 * time.Minute,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				projectID := projectFlag(cmd)
				limit := cmd.Flags().Int("limit", 20, "source items read per run")
				noFetch := cmd.Flags().Bool("no-fetch", false, "skip fetching full article pages")
				return func(a *app.App) (workers.Task, error) {
					id, err := parseProjectID(*projectID)
					if err != nil {
						return nil, err
					}
					return a.IngestTask(id, *limit, !*noFetch), nil
				}
			},
		},
		{
			name:     "extract",
			short:    "Summarize unprocessed articles",
			interval: 10 * time.Minute,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				projectID := projectFlag(cmd)
				limit := cmd.Flags().Int("limit", 20, "articles per batch")
				return func(a *app.App) (workers.Task, error) {
					id, err := parseProjectID(*projectID)
					if err != nil {
						return nil, err
					}
					return a.ExtractTask(id, *limit), nil
				}
			},
		},
		{
			name:     "judge",
			short:    "Score processed articles and assign formats",
			interval: 15 * time.Minute,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				projectID := projectFlag(cmd)
				limit := cmd.Flags().Int("limit", 50, "articles per batch")
				return func(a *app.App) (workers.Task, error) {
					id, err := parseProjectID(*projectID)
					if err != nil {
						return nil, err
					}
					return a.JudgeTask(id, *limit), nil
				}
			},
		},
		{
			name:     "pipeline",
			short:    "Run the full pipeline for one or every project",
			interval: time.Hour,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				projectID := projectFlag(cmd)
				maxItems := cmd.Flags().Int("max-items", 10, "items kept per source")
				return func(a *app.App) (workers.Task, error) {
					id, err := parseProjectID(*projectID)
					if err != nil {
						return nil, err
					}
					return a.PipelineTask(id, *maxItems), nil
				}
			},
		},
		{
			name:     "cleanup",
			short:    "Delete aged source items and wipe retired article bodies",
			interval: 6 * time.Hour,
			bind: func(cmd *cobra.Command) func(a *app.App) (workers.Task, error) {
				hours := cmd.Flags().Int("hours", 48, "age in hours before source items are deleted")
				keepUnusable := cmd.Flags().Bool("keep-unusable", false, "keep the text of unusable articles")
				return func(a *app.App) (workers.Task, error) {
					return a.CleanupTask(*hours, !*keepUnusable), nil
				}
			},
		},
	}
}

func projectFlag(cmd *cobra.Command) *string {
	return cmd.Flags().String("project-id", "", "limit to one project")
}

// parseProjectID returns nil for an empty flag
func parseProjectID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --project-id %q: %w", raw, err)
	}
	return &id, nil
}

func newOnceCmd(spec taskSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name,
		Short: spec.short,
		Args:  cobra.NoArgs,
	}
	build := spec.bind(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			task, err := build(a)
			if err != nil {
				return err
			}
			summary, err := task(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		})
	}
	return cmd
}

func newLoopCmd(spec taskSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name + "-loop",
		Short: spec.short + " on a fixed interval",
		Args:  cobra.NoArgs,
	}
	build := spec.bind(cmd)
	interval := cmd.Flags().Int("interval", int(spec.interval/time.Second), "seconds between runs")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			task, err := build(a)
			if err != nil {
				return err
			}
			workers.NewLoop(spec.name, time.Duration(*interval)*time.Second, task).Run(ctx)
			return nil
		})
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)
			return database.Migrate(db)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo project with a few public sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := database.Migrate(a.DB); err != nil {
					return err
				}
				summary, err := a.Seed()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			token, err := auth.NewTokenManager(cfg.HTTP.JWTSecret).Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 720*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
