// Package app assembles the application: configuration, database,
// Genkit, stores, tools, and the agent, with explicit construction
// order and teardown.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivemindhq/hivemind/internal/agent"
	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/config"
	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
	"github.com/hivemindhq/hivemind/internal/meeting"
	"github.com/hivemindhq/hivemind/internal/slack"
	"github.com/hivemindhq/hivemind/internal/syncer"
)

// App is the application container. Fields are wired once in Setup and
// read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit     *genkit.Genkit
	Pool       *pgxpool.Pool
	Knowledge  *knowledge.Store
	Chats      *chat.Store
	InboxItems *inbox.Store
	Inbox      *inbox.Service
	Cursors    *syncer.PgxCursorStore
	Agent      *agent.Agent

	otelShutdown func(context.Context) error
}

// Close releases all resources in reverse construction order.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	return nil
}

// SlackSyncer builds the Slack ingestion job from configuration.
func (a *App) SlackSyncer() (*syncer.SlackSyncer, error) {
	if a.Config.Slack.Token == "" {
		return nil, errors.New("slack sync requires SLACK_BOT_TOKEN")
	}
	client, err := slack.New(a.Config.Slack.Token, a.Logger)
	if err != nil {
		return nil, err
	}
	if a.Config.Slack.BaseURL != "" {
		client = client.WithBaseURL(a.Config.Slack.BaseURL)
	}

	return syncer.NewSlackSyncer(client, a.Cursors, a.InboxItems, a.Knowledge, syncer.SlackSyncerConfig{
		OrgID:      a.Config.Sync.OrgID,
		Channels:   a.Config.Slack.Channels,
		AutoCommit: a.Config.Sync.AutoCommit,
	}, a.Logger), nil
}

// MeetingSyncer builds the meeting ingestion job from configuration.
func (a *App) MeetingSyncer() (*syncer.MeetingSyncer, error) {
	if a.Config.Meeting.APIKey == "" {
		return nil, errors.New("meeting sync requires TLDV_API_KEY")
	}
	client, err := meeting.New(a.Config.Meeting.APIKey)
	if err != nil {
		return nil, err
	}
	if a.Config.Meeting.BaseURL != "" {
		client = client.WithBaseURL(a.Config.Meeting.BaseURL)
	}

	return syncer.NewMeetingSyncer(client, a.Cursors, a.InboxItems, a.Knowledge, syncer.MeetingSyncerConfig{
		OrgID:         a.Config.Sync.OrgID,
		AutoCommit:    a.Config.Sync.AutoCommit,
		ChunkMaxChars: a.Config.ChunkMaxChars,
	}, a.Logger), nil
}
