// Package cmd defines the hivemind command-line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hivemindhq/hivemind/internal/log"
)

var (
	flagJSONLog bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hivemind",
	Short: "Hivemind - a company knowledge brain",
	Long: `Hivemind ingests Slack conversations and meeting transcripts into a
searchable knowledge base and answers questions about them through a
tool-using AI agent with cited sources.

Run "hivemind serve" to start the HTTP API, or "hivemind sync" to run
an ingestion sweep by hand.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "emit JSON logs")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLog})
}
