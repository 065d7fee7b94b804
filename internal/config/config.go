// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.hivemind/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model selection, embedder model, agent loop bounds
//   - Storage: PostgreSQL connection (see storage.go)
//   - Sources: Slack and meeting-platform API access (see sources.go)
//   - Web search: SearXNG instance used by the search_web tool
//   - Sync: ingestion intervals and auto-commit vs. review staging
//
// Security: sensitive data (passwords, tokens) are never logged; the
// config directory uses 0750 permissions. Validation happens at load
// time (fail-fast) with sentinel errors for errors.Is() checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidMaxToolRounds indicates the agent loop bound is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidChunkSize indicates the transcript chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidSyncInterval indicates a sync interval is out of range.
	ErrInvalidSyncInterval = errors.New("invalid sync interval")
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions, which
	// matches the pgvector column in db/migrations.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultMaxToolRounds bounds the agent tool loop. The loop treats
	// exhaustion as a recoverable failure, not a crash.
	DefaultMaxToolRounds = 8

	// DefaultChunkMaxChars is the maximum transcript chunk size in characters.
	DefaultChunkMaxChars = 3000
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI model configuration
	ModelName     string `mapstructure:"model_name" json:"model_name"`         // e.g. "googleai/gemini-2.5-flash"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"` // e.g. "gemini-embedding-001"
	MaxToolRounds int    `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Source platforms (see sources.go)
	Slack   SlackConfig   `mapstructure:"slack" json:"slack"`
	Meeting MeetingConfig `mapstructure:"meeting" json:"meeting"`

	// Web search (search_web tool)
	SearXNG SearXNGConfig `mapstructure:"searxng" json:"searxng"`

	// Ingestion
	Sync SyncConfig `mapstructure:"sync" json:"sync"`

	// Ingestion chunking
	ChunkMaxChars int `mapstructure:"chunk_max_chars" json:"chunk_max_chars"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Observability (see observability wiring in internal/app)
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`
}

// SearXNGConfig holds the SearXNG instance configuration for web search.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g. http://localhost:8888)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// DatadogConfig holds OTLP trace export configuration.
type DatadogConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".hivemind")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the discrete Postgres fields when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", "googleai/gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("max_tool_rounds", DefaultMaxToolRounds)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "hivemind")
	viper.SetDefault("postgres_password", "hivemind_dev_password")
	viper.SetDefault("postgres_db_name", "hivemind")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("slack.base_url", "https://slack.com/api")
	viper.SetDefault("meeting.base_url", "https://pasta.tldv.io/v1alpha1")
	viper.SetDefault("searxng.base_url", "http://localhost:8888")

	viper.SetDefault("sync.slack_interval_minutes", 30)
	viper.SetDefault("sync.meeting_interval_minutes", 60)
	viper.SetDefault("sync.auto_commit", false)

	viper.SetDefault("chunk_max_chars", DefaultChunkMaxChars)

	viper.SetDefault("listen_addr", "127.0.0.1:3600")

	viper.SetDefault("datadog.agent_host", "localhost:4318")
	viper.SetDefault("datadog.environment", "dev")
	viper.SetDefault("datadog.service_name", "hivemind")
}

// bindEnvVariables binds sensitive environment variables explicitly.
// GEMINI_API_KEY is read directly by Genkit (not via Viper); its presence
// is checked in Validate().
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("slack.token", "SLACK_BOT_TOKEN")
	mustBind("meeting.api_key", "TLDV_API_KEY")
	mustBind("datadog.api_key", "DD_API_KEY")
	mustBind("model_name", "HIVEMIND_MODEL_NAME")
	mustBind("listen_addr", "HIVEMIND_LISTEN_ADDR")
	mustBind("searxng.base_url", "HIVEMIND_SEARXNG_URL")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.Slack.Token = maskSecret(a.Slack.Token)
	a.Meeting.APIKey = maskSecret(a.Meeting.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// If ModelName lacks a provider prefix, "googleai/" is assumed.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
