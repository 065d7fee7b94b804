// Package observability wires OpenTelemetry trace export into Genkit.
//
// Traces go to a local Datadog Agent over OTLP HTTP. The Agent handles
// authentication, buffering, and forwarding, so the application never
// needs DD_API_KEY. Enable the Agent's OTLP receiver (localhost:4318)
// in datadog.yaml and traces appear under the configured service name
// in APM.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hivemindhq/hivemind/internal/log"
)

// DefaultAgentHost is the default Datadog Agent OTLP HTTP endpoint.
const DefaultAgentHost = "localhost:4318"

// Config for the trace exporter.
type Config struct {
	// AgentHost is the Datadog Agent OTLP endpoint.
	AgentHost string
	// Environment tags spans with deployment.environment.
	Environment string
	// ServiceName is the service name shown in Datadog APM.
	ServiceName string
}

// SetupDatadog registers an OTLP exporter with Genkit's TracerProvider.
// Must run before genkit.Init so model and tool spans are captured.
// Returns a shutdown function that flushes pending spans; exporter
// construction failures disable tracing instead of failing startup.
func SetupDatadog(ctx context.Context, cfg Config, logger log.Logger) (func(context.Context) error, error) {
	agentHost := cfg.AgentHost
	if agentHost == "" {
		agentHost = DefaultAgentHost
	}

	// Genkit's TracerProvider reads service identity from the OTEL env
	// vars. Setenv is safe here: setup runs once, before any goroutines.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // localhost agent, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))

	logger.Debug("datadog tracing enabled",
		"agent", agentHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
