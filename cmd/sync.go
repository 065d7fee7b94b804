package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hivemindhq/hivemind/internal/app"
	"github.com/hivemindhq/hivemind/internal/config"
	"github.com/hivemindhq/hivemind/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run an ingestion sweep by hand",
}

var syncSlackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Sweep Slack channels for new messages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd.Context(), func(a *app.App) (syncer.Runner, error) {
			return a.SlackSyncer()
		})
	},
}

var syncMeetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Pull new meeting transcripts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd.Context(), func(a *app.App) (syncer.Runner, error) {
			return a.MeetingSyncer()
		})
	},
}

func init() {
	syncCmd.AddCommand(syncSlackCmd, syncMeetingsCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(parent context.Context, build func(*app.App) (syncer.Runner, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.RequireGeminiKey(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	job, err := build(a)
	if err != nil {
		return err
	}

	result, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("synced=%d staged=%d skipped=%d failed=%d duration=%s\n",
		result.Synced, result.Staged, result.Skipped, result.Failed, result.Duration.Round(time.Millisecond))
	if itemErr := result.Err(); itemErr != nil {
		return fmt.Errorf("completed with item failures: %w", itemErr)
	}
	return nil
}
