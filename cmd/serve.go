package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hivemindhq/hivemind/internal/api"
	"github.com/hivemindhq/hivemind/internal/app"
	"github.com/hivemindhq/hivemind/internal/config"
	"github.com/hivemindhq/hivemind/internal/syncer"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and background sync jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
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
	logger.Info("starting hivemind", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	addr := cfg.ListenAddr
	if flagAddr != "" {
		addr = flagAddr
	}

	server := api.NewServer(a.Chats, a.Agent, a.Inbox, a.Pool, logger)

	sched := syncer.NewScheduler(logger)
	jobs := 0
	if s, err := a.SlackSyncer(); err != nil {
		logger.Info("slack sync disabled", "reason", err)
	} else {
		sched.Add("slack", time.Duration(cfg.Sync.SlackIntervalMinutes)*time.Minute, s)
		jobs++
	}
	if m, err := a.MeetingSyncer(); err != nil {
		logger.Info("meeting sync disabled", "reason", err)
	} else {
		sched.Add("meetings", time.Duration(cfg.Sync.MeetingIntervalMinutes)*time.Minute, m)
		jobs++
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, addr)
	})
	if jobs > 0 {
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}
	return g.Wait()
}
