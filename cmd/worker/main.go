package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"newsmill/internal/app"
	"newsmill/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsmill-worker",
		Short: "Run newsmill pipeline stages from the command line",
		Long: `Run newsmill pipeline stages once or on a fixed interval.

Each one-shot command prints a single key=value summary line.

Examples:
  # Scrape every due source of one project
  newsmill-worker scrape --project-id 6f1c... --max-items 10

  # Run the full pipeline for every project each hour
  newsmill-worker pipeline-loop --interval 3600`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")

	for _, spec := range taskSpecs() {
		root.AddCommand(newOnceCmd(spec))
		root.AddCommand(newLoopCmd(spec))
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// withApp loads config, opens the application and runs fn until it returns
// or the process is interrupted
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()
	return fn(ctx, a)
}
