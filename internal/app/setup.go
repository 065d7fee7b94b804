package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivemindhq/hivemind/db"
	"github.com/hivemindhq/hivemind/internal/agent"
	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/config"
	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
	"github.com/hivemindhq/hivemind/internal/observability"
	"github.com/hivemindhq/hivemind/internal/syncer"
	"github.com/hivemindhq/hivemind/internal/tools"
)

// Setup initializes the application. Construction order matters:
// tracing before Genkit so model spans are captured, migrations before
// the stores that assume the schema. Call Close to release resources;
// Setup cleans up after itself on failure.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.Datadog.Enabled {
		shutdown, err := observability.SetupDatadog(ctx, observability.Config{
			AgentHost:   cfg.Datadog.AgentHost,
			Environment: cfg.Datadog.Environment,
			ServiceName: cfg.Datadog.ServiceName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Knowledge = knowledge.New(knowledge.NewPgxQuerier(pool), embedder, logger)
	a.Chats = chat.NewStore(chat.NewPgxQuerier(pool), logger)
	a.InboxItems = inbox.NewStore(inbox.NewPgxQuerier(pool), logger)
	a.Inbox = inbox.NewService(a.InboxItems, a.Knowledge, cfg.ChunkMaxChars, logger)
	a.Cursors = syncer.NewPgxCursorStore(pool)

	registered, err := provideTools(g, a.Knowledge, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Agent, err = agent.New(agent.Config{
		Genkit:        g,
		Chats:         a.Chats,
		Logger:        logger,
		Tools:         registered,
		ModelName:     cfg.FullModelName(),
		MaxToolRounds: cfg.MaxToolRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}

	return a, nil
}

// providePool runs migrations and opens the connection pool.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The
// plugin reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideTools builds and registers the agent's tools.
func provideTools(g *genkit.Genkit, store *knowledge.Store, cfg *config.Config, logger log.Logger) ([]ai.Tool, error) {
	kt, err := tools.NewKnowledge(store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge tool: %w", err)
	}

	searx, err := tools.NewSearXNGClient(cfg.SearXNG.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("creating web search client: %w", err)
	}
	wt, err := tools.NewWebSearch(searx, logger)
	if err != nil {
		return nil, fmt.Errorf("creating web search tool: %w", err)
	}

	registered, err := tools.Register(g, kt, wt)
	if err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return registered, nil
}
