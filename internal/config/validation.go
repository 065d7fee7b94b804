package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate checks the configuration for correctness. Validation is
// fail-fast: the first broken field is reported with its sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 64 {
		return fmt.Errorf("%w: %d (must be 1-64)", ErrInvalidMaxToolRounds, c.MaxToolRounds)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q (must be one of %v)", ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	if c.ChunkMaxChars < 200 || c.ChunkMaxChars > 100_000 {
		return fmt.Errorf("%w: %d (must be 200-100000)", ErrInvalidChunkSize, c.ChunkMaxChars)
	}

	if c.Sync.SlackIntervalMinutes < 1 {
		return fmt.Errorf("%w: slack interval %d (must be >= 1 minute)", ErrInvalidSyncInterval, c.Sync.SlackIntervalMinutes)
	}
	if c.Sync.MeetingIntervalMinutes < 1 {
		return fmt.Errorf("%w: meeting interval %d (must be >= 1 minute)", ErrInvalidSyncInterval, c.Sync.MeetingIntervalMinutes)
	}

	return nil
}

// RequireGeminiKey checks that the Gemini API key is present in the
// environment. Genkit reads the key itself; this only front-loads the
// failure to process start instead of the first model call.
func RequireGeminiKey() error {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
