package knowledge

import "time"

// Source type constants for knowledge records.
const (
	// SourceSlack marks records built from Slack messages and threads.
	SourceSlack = "slack"

	// SourceMeeting marks records built from meeting metadata and
	// transcript chunks.
	SourceMeeting = "meeting"
)

// Metadata keys shared between ingestion and retrieval. Values are flat
// strings so they survive the JSONB round trip unchanged.
const (
	MetaChannelID   = "channel_id"
	MetaChannelName = "channel_name"
	MetaAuthorID    = "author_id"
	MetaAuthorName  = "author_name"
	MetaThreadTS    = "thread_ts"
	MetaReplyCount  = "reply_count"
	MetaIsThread    = "is_thread"
	MetaPermalink   = "permalink"

	MetaMeetingID    = "meeting_id"
	MetaMeetingKind  = "meeting_kind" // "meta" or "chunk"
	MetaMeetingTitle = "meeting_title"
	MetaSpeaker      = "speaker"
	MetaStartOffset  = "start_offset"
	MetaEndOffset    = "end_offset"
	MetaMeetingURL   = "meeting_url"
	MetaMeetingDate  = "meeting_date"
)

// Record is the atomic unit persisted into the retrieval index: one
// Slack message or thread bundle, one meeting metadata entry, or one
// transcript chunk. ID is a pure function of the source identity
// (see internal/ingest) so repeated ingestion upserts instead of
// duplicating. OrgID is the tenant partition key; every store
// operation requires it.
type Record struct {
	ID         string
	OrgID      string
	SourceType string
	Content    string
	Metadata   map[string]string
	// Ts is the source-event timestamp as Unix seconds, used for
	// range filtering. Zero when the source has no natural time.
	Ts float64
}

// Hit is one ranked search result.
type Hit struct {
	Record Record
	// Score is the final relevance after reranking; higher is better.
	Score float32
}

// SearchOption configures a search using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	channel string
	tsMin   float64
	tsMax   float64
	timeout time.Duration
}

// WithTopK sets the number of results to return after reranking.
// Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithChannel restricts results to records whose channel name matches.
func WithChannel(name string) SearchOption {
	return func(c *searchConfig) {
		c.channel = name
	}
}

// WithTimeRange restricts results to source timestamps in [start, end).
// A zero start or end leaves that bound open.
func WithTimeRange(start, end time.Time) SearchOption {
	return func(c *searchConfig) {
		if !start.IsZero() {
			c.tsMin = float64(start.Unix())
		}
		if !end.IsZero() {
			c.tsMax = float64(end.Unix())
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
