package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// EventEmitter receives tool lifecycle events. The interface carries no
// transport concerns; the API layer binds it to the live event stream.
type EventEmitter interface {
	// OnToolStart signals that a tool began executing the given query.
	OnToolStart(name, query string)

	// OnToolEnd signals that the tool's result has been produced,
	// successfully or not.
	OnToolEnd(name string)
}

// ContextWithEmitter stores an EventEmitter for the current turn.
func ContextWithEmitter(ctx context.Context, emitter EventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFromContext retrieves the turn's EventEmitter. Returns nil
// when unset so non-streaming callers degrade to silent execution.
func EmitterFromContext(ctx context.Context) EventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(EventEmitter)
	return emitter
}

// withEvents wraps a typed tool handler to emit lifecycle events around
// execution. query extracts the display query from the input.
func withEvents[In, Out any](name string, query func(In) string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)
		if emitter != nil {
			emitter.OnToolStart(name, query(input))
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			emitter.OnToolEnd(name)
		}
		return result, err
	}
}
