package config

// SlackConfig holds Slack Web API access configuration.
type SlackConfig struct {
	// Token is the bot token (xoxb-...). SENSITIVE: masked in MarshalJSON.
	Token string `mapstructure:"token" json:"token"`

	// BaseURL is the Slack Web API root. Overridable for tests.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// Channels lists the channel IDs to sync. Empty means sync every
	// public channel the bot is a member of.
	Channels []string `mapstructure:"channels" json:"channels"`
}

// MeetingConfig holds meeting-platform (tl;dv) API access configuration.
type MeetingConfig struct {
	// APIKey authenticates against the meeting platform. SENSITIVE:
	// masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`

	// BaseURL is the meeting platform API root. Overridable for tests.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
}

// SyncConfig controls the periodic ingestion jobs.
type SyncConfig struct {
	// SlackIntervalMinutes is the period between Slack sync runs.
	SlackIntervalMinutes int `mapstructure:"slack_interval_minutes" json:"slack_interval_minutes"`

	// MeetingIntervalMinutes is the period between meeting sync runs.
	MeetingIntervalMinutes int `mapstructure:"meeting_interval_minutes" json:"meeting_interval_minutes"`

	// AutoCommit skips the inbox review stage and writes ingested
	// content straight to the knowledge store.
	AutoCommit bool `mapstructure:"auto_commit" json:"auto_commit"`

	// OrgID is the organization partition all synced content is
	// written under.
	OrgID string `mapstructure:"org_id" json:"org_id"`
}
