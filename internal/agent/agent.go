package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/log"
	"github.com/hivemindhq/hivemind/internal/tools"
)

const (
	// DefaultMaxToolRounds bounds how many times the model may request
	// tools within one turn before the turn fails. The backend is billed
	// per call, so an unbounded loop is an availability and cost hazard.
	DefaultMaxToolRounds = 8

	// fallbackResponseMessage is returned when the model produces an
	// empty response.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// Sink receives the live events of one turn: tool lifecycle, generation
// progress, text deltas, and the final source list. The API layer binds
// it to the SSE stream; the agent itself carries no transport concerns.
type Sink interface {
	tools.EventEmitter

	// OnGenerating signals that tool use is finished and the final
	// answer is being generated.
	OnGenerating()

	// OnTextDelta forwards one chunk of the streamed answer.
	OnTextDelta(text string)

	// OnSources delivers the citations collected during the turn,
	// before the turn completes. Not called on a turn that collected
	// none.
	OnSources(sources []chat.Source)
}

// nopSink discards all events.
type nopSink struct{}

func (nopSink) OnToolStart(string, string) {}
func (nopSink) OnToolEnd(string)           {}
func (nopSink) OnGenerating()              {}
func (nopSink) OnTextDelta(string)         {}
func (nopSink) OnSources([]chat.Source)    {}

// TurnRequest identifies one user turn against a chat.
type TurnRequest struct {
	ChatID uuid.UUID
	UserID string
	OrgID  string
	Prompt string
}

// Config contains all required parameters for the Agent.
type Config struct {
	Genkit *genkit.Genkit
	Chats  *chat.Store
	Logger log.Logger
	Tools  []ai.Tool // Pre-registered via tools.Register

	// ModelName is the provider-qualified model name
	// (e.g. "googleai/gemini-2.5-flash").
	ModelName string

	// MaxToolRounds caps tool requests per turn (default 8).
	MaxToolRounds int

	// Resilience configuration (zero values use defaults).
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter // nil = default limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Chats == nil {
		return errors.New("chat store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Agent runs the conversational turn loop: persist the user message,
// let the model request tools, execute them, and stream the final
// answer. Stateless across turns; all configuration is captured
// immutably at construction for safe concurrent use.
type Agent struct {
	modelName     string
	maxToolRounds int

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	g        *genkit.Genkit
	chats    *chat.Store
	logger   log.Logger
	toolRefs []ai.ToolRef // Cached at construction (ai.Tool implements ai.ToolRef)
}

// New creates a new Agent with required configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxToolRounds := cfg.MaxToolRounds
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	return &Agent{
		modelName:      cfg.ModelName,
		maxToolRounds:  maxToolRounds,
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rateLimiter,
		g:              cfg.Genkit,
		chats:          cfg.Chats,
		logger:         cfg.Logger,
		toolRefs:       toolRefs,
	}, nil
}

// Run executes one turn. It acquires the chat (idle -> loading),
// persists the user message, runs the bounded tool loop, streams the
// final answer through sink, and persists the assistant message with
// its sources. The chat status is reset on every exit path.
//
// Persistence and status reset survive client disconnects: they run on
// a context detached from ctx's cancellation.
func (a *Agent) Run(ctx context.Context, req TurnRequest, sink Sink) (chat.Message, error) {
	if sink == nil {
		sink = nopSink{}
	}

	c, err := a.chats.Authorize(ctx, req.ChatID, req.UserID, true)
	if err != nil {
		return chat.Message{}, err
	}

	history, err := a.chats.Messages(ctx, req.ChatID)
	if err != nil {
		return chat.Message{}, err
	}

	if err := a.chats.BeginTurn(ctx, req.ChatID); err != nil {
		return chat.Message{}, err
	}

	// The client may disconnect mid-stream; the outcome still has to be
	// written and the status reset, or the chat stays stuck in loading.
	persistCtx := context.WithoutCancel(ctx)
	defer a.chats.EndTurn(persistCtx, req.ChatID)

	if _, err := a.chats.AppendMessage(persistCtx, req.ChatID, chat.RoleUser, req.Prompt, nil); err != nil {
		return chat.Message{}, err
	}

	collector := tools.NewSourceCollector()
	toolCtx := tools.ContextWithOrgID(ctx, c.OrgID)
	toolCtx = tools.ContextWithEmitter(toolCtx, sink)
	toolCtx = tools.ContextWithCollector(toolCtx, collector)

	messages := historyToMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Prompt)))
	system := systemPrompt(time.Now())

	messages, err = a.runToolLoop(toolCtx, system, messages)
	if err != nil {
		return a.failTurn(persistCtx, req.ChatID, err)
	}

	sink.OnGenerating()

	text, err := a.streamAnswer(toolCtx, system, messages, sink)
	if err != nil {
		return a.failTurn(persistCtx, req.ChatID, err)
	}

	sources := collector.Sources()
	if len(sources) > 0 {
		sink.OnSources(sources)
	}

	saved, err := a.chats.AppendMessage(persistCtx, req.ChatID, chat.RoleModel, text, sources)
	if err != nil {
		return chat.Message{}, err
	}
	return saved, nil
}

// runToolLoop alternates model calls and tool execution until the model
// stops requesting tools, returning the accumulated message history.
// Exceeding the round limit is a recoverable failure, not a hang.
func (a *Agent) runToolLoop(ctx context.Context, system string, messages []*ai.Message) ([]*ai.Message, error) {
	for round := 0; round < a.maxToolRounds; round++ {
		resp, err := a.generateWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
			return genkit.Generate(ctx, a.g,
				ai.WithModelName(a.modelName),
				ai.WithSystem(system),
				ai.WithMessages(messages...),
				ai.WithTools(a.toolRefs...),
				ai.WithReturnToolRequests(true),
			)
		})
		if err != nil {
			return nil, err
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			return messages, nil
		}

		a.logger.Debug("executing tool round",
			"round", round+1,
			"requests", len(requests),
		)

		messages = append(messages, resp.Message)
		messages = append(messages, a.runTools(ctx, requests))
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrToolRoundsExhausted, a.maxToolRounds)
}

// runTools executes tool requests in request order and bundles the
// results into a single tool message. Execution failures become textual
// results so the model can respond gracefully instead of the turn
// aborting.
func (a *Agent) runTools(ctx context.Context, requests []*ai.ToolRequest) *ai.Message {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		var output any
		tool := genkit.LookupTool(a.g, req.Name)
		if tool == nil {
			a.logger.Warn("model requested unknown tool", "tool", req.Name)
			output = fmt.Sprintf("Tool %q does not exist.", req.Name)
		} else {
			out, err := tool.RunRaw(ctx, req.Input)
			if err != nil {
				a.logger.Error("tool execution failed", "tool", req.Name, "error", err)
				output = fmt.Sprintf("The %s tool failed to run. Answer from what you already know, and say what you could not verify.", req.Name)
			} else {
				output = out
			}
		}
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}
	return ai.NewMessage(ai.RoleTool, nil, parts...)
}

// streamAnswer generates the final answer without tools, forwarding
// text deltas to sink as they arrive.
func (a *Agent) streamAnswer(ctx context.Context, system string, messages []*ai.Message, sink Sink) (string, error) {
	resp, err := a.generateWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, a.g,
			ai.WithModelName(a.modelName),
			ai.WithSystem(system),
			ai.WithMessages(messages...),
			ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				if text := chunk.Text(); text != "" {
					sink.OnTextDelta(text)
				}
				return nil
			}),
		)
	})
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		text = fallbackResponseMessage
		sink.OnTextDelta(text)
	}
	return text, nil
}

// failTurn persists a user-readable explanation as the assistant
// message so a client refetching history after the error event sees
// why the turn ended.
func (a *Agent) failTurn(ctx context.Context, chatID uuid.UUID, cause error) (chat.Message, error) {
	saved, err := a.chats.AppendMessage(ctx, chatID, chat.RoleModel, FriendlyMessage(cause), nil)
	if err != nil {
		a.logger.Error("persisting failure message", "chat_id", chatID, "error", err)
	}
	return saved, fmt.Errorf("%w: %w", ErrExecutionFailed, cause)
}

// GenerateTitle produces a short chat title from the first user
// message. Failures are the caller's to ignore; titling is cosmetic.
func (a *Agent) GenerateTitle(ctx context.Context, userMessage string) (string, error) {
	resp, err := a.generateWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, a.g,
			ai.WithModelName(a.modelName),
			ai.WithPrompt(titlePrompt(userMessage)),
		)
	})
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Text()), `"'`))
	if title == "" {
		return "", errors.New("empty title")
	}
	return title, nil
}

// historyToMessages converts persisted history to model messages.
func historyToMessages(history []chat.Message) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case chat.RoleUser:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case chat.RoleModel:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	return messages
}
