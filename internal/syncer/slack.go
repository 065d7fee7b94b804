package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/ingest"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
	"github.com/hivemindhq/hivemind/internal/slack"
)

// SlackAPI is the slice of the Slack client the syncer needs.
type SlackAPI interface {
	ListChannels(ctx context.Context) ([]slack.Channel, error)
	History(ctx context.Context, channelID, oldest string) ([]slack.Message, error)
	Replies(ctx context.Context, channelID, threadTS string) ([]slack.Message, error)
	UserDisplayName(ctx context.Context, userID string) string
}

// Stager stages items for review.
type Stager interface {
	Stage(ctx context.Context, item inbox.Item) (bool, error)
}

// Indexer commits records to the knowledge index.
type Indexer interface {
	Upsert(ctx context.Context, records []knowledge.Record) error
	DeleteByPrefix(ctx context.Context, orgID, prefix string) (int64, error)
}

// SlackSyncerConfig configures a SlackSyncer.
type SlackSyncerConfig struct {
	OrgID string

	// Channels restricts the sweep to the named channels. Empty means
	// every channel the bot can see.
	Channels []string

	// AutoCommit indexes records directly instead of staging them for
	// review.
	AutoCommit bool
}

// SlackSyncer sweeps Slack channels for new messages since the stored
// cursor, bundles threads under their root, resolves mentions, and
// hands the normalized conversations to the inbox or the index.
type SlackSyncer struct {
	api     SlackAPI
	cursors CursorStore
	stager  Stager
	index   Indexer
	cfg     SlackSyncerConfig
	logger  log.Logger
}

// NewSlackSyncer creates a Slack syncer.
func NewSlackSyncer(api SlackAPI, cursors CursorStore, stager Stager, index Indexer, cfg SlackSyncerConfig, logger log.Logger) *SlackSyncer {
	return &SlackSyncer{
		api:     api,
		cursors: cursors,
		stager:  stager,
		index:   index,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes one sweep over all configured channels. A channel that
// fails is recorded and skipped; its cursor does not advance, so the
// next run retries the same window.
func (s *SlackSyncer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	channels, err := s.api.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	channels = s.filterChannels(channels)

	s.logger.Info("slack sync started",
		"org_id", s.cfg.OrgID,
		"channels", len(channels),
		"auto_commit", s.cfg.AutoCommit,
	)

	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.syncChannel(ctx, ch, result); err != nil {
			s.logger.Warn("channel sync failed, skipping",
				"channel", ch.Name,
				"error", err,
			)
			result.fail(fmt.Errorf("channel %s: %w", ch.Name, err))
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info("slack sync finished",
		"synced", result.Synced,
		"staged", result.Staged,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *SlackSyncer) filterChannels(channels []slack.Channel) []slack.Channel {
	if len(s.cfg.Channels) == 0 {
		return channels
	}
	wanted := make(map[string]bool, len(s.cfg.Channels))
	for _, name := range s.cfg.Channels {
		wanted[strings.TrimPrefix(name, "#")] = true
	}
	var out []slack.Channel
	for _, ch := range channels {
		if wanted[ch.Name] || wanted[ch.ID] {
			out = append(out, ch)
		}
	}
	return out
}

func (s *SlackSyncer) syncChannel(ctx context.Context, ch slack.Channel, result *Result) error {
	sourceKey := "slack:" + ch.ID
	cursor, err := s.cursors.GetCursor(ctx, sourceKey)
	if err != nil {
		return err
	}

	messages, err := s.api.History(ctx, ch.ID, cursor)
	if err != nil {
		return err
	}

	var (
		conversations []ingest.ConversationInput
		handledTs     []string
		failedTs      string
	)
	for _, msg := range messages {
		switch {
		case msg.Subtype != "" || msg.User == "" || strings.TrimSpace(msg.Text) == "":
			result.Skipped++
		case msg.IsThreadReply():
			// Replies are bundled under their root, never stored alone.
			result.Skipped++
		case msg.IsThreadRoot():
			conv, err := s.threadConversation(ctx, ch, msg)
			if err != nil {
				result.fail(fmt.Errorf("thread %s/%s: %w", ch.Name, msg.Ts, err))
				if failedTs == "" || ingest.SlackTsToUnix(msg.Ts) < ingest.SlackTsToUnix(failedTs) {
					failedTs = msg.Ts
				}
				continue
			}
			conversations = append(conversations, conv)
		default:
			conversations = append(conversations, s.messageConversation(ctx, ch, msg))
		}
		handledTs = append(handledTs, msg.Ts)
	}

	if len(conversations) == 0 {
		return nil
	}

	if s.cfg.AutoCommit {
		records := make([]knowledge.Record, 0, len(conversations))
		for _, conv := range conversations {
			records = append(records, ingest.ConversationRecord(s.cfg.OrgID, conv))
		}
		if err := s.index.Upsert(ctx, records); err != nil {
			return err
		}
		result.Synced += len(records)
	} else {
		staged, err := s.stageTopic(ctx, ch, conversations)
		if err != nil {
			return err
		}
		if staged {
			result.Staged++
		} else {
			result.Skipped++
		}
	}

	// History returns messages strictly newer than the cursor, so the
	// cursor stops below the earliest failed thread root: its replies
	// never resurface in channel history, only the root itself does.
	maxTs := cursor
	for _, ts := range handledTs {
		if failedTs != "" && ingest.SlackTsToUnix(ts) >= ingest.SlackTsToUnix(failedTs) {
			continue
		}
		if ingest.SlackTsToUnix(ts) > ingest.SlackTsToUnix(maxTs) {
			maxTs = ts
		}
	}
	if maxTs == cursor {
		return nil
	}
	return s.cursors.SetCursor(ctx, sourceKey, s.cfg.OrgID, maxTs)
}

// threadConversation bundles a thread root and its replies into one
// conversation keyed by the root ts.
func (s *SlackSyncer) threadConversation(ctx context.Context, ch slack.Channel, root slack.Message) (ingest.ConversationInput, error) {
	replies, err := s.api.Replies(ctx, ch.ID, root.Ts)
	if err != nil {
		return ingest.ConversationInput{}, err
	}

	var raw, resolved strings.Builder
	for i, msg := range replies {
		if msg.Subtype != "" || strings.TrimSpace(msg.Text) == "" {
			continue
		}
		if i > 0 {
			raw.WriteString("\n")
			resolved.WriteString("\n")
		}
		author := s.api.UserDisplayName(ctx, msg.User)
		fmt.Fprintf(&raw, "%s: %s", author, msg.Text)
		fmt.Fprintf(&resolved, "%s: %s", author, s.resolveText(ctx, msg.Text))
	}

	return ingest.ConversationInput{
		ChannelID:    ch.ID,
		ChannelName:  ch.Name,
		AuthorID:     root.User,
		AuthorName:   s.api.UserDisplayName(ctx, root.User),
		RawText:      raw.String(),
		ResolvedText: resolved.String(),
		Ts:           root.Ts,
		ThreadTS:     root.Ts,
		ReplyCount:   root.ReplyCount,
		IsThread:     true,
		Permalink:    permalink(ch.ID, root.Ts),
	}, nil
}

func (s *SlackSyncer) messageConversation(ctx context.Context, ch slack.Channel, msg slack.Message) ingest.ConversationInput {
	return ingest.ConversationInput{
		ChannelID:    ch.ID,
		ChannelName:  ch.Name,
		AuthorID:     msg.User,
		AuthorName:   s.api.UserDisplayName(ctx, msg.User),
		RawText:      msg.Text,
		ResolvedText: s.resolveText(ctx, msg.Text),
		Ts:           msg.Ts,
		ThreadTS:     msg.ThreadTS,
		Permalink:    permalink(ch.ID, msg.Ts),
	}
}

// resolveText expands inline markup, looking up display names for bare
// user mentions. The client caches lookups, so repeated mentions of the
// same user cost one API call.
func (s *SlackSyncer) resolveText(ctx context.Context, text string) string {
	ids := slack.MentionedUserIDs(text)
	if len(ids) == 0 {
		return slack.ResolveMentions(text, nil)
	}
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = s.api.UserDisplayName(ctx, id)
	}
	return slack.ResolveMentions(text, names)
}

// stageTopic stages one reviewable item for the channel sweep. The
// content hash covers every bundled conversation, so an unchanged sweep
// window stages nothing.
func (s *SlackSyncer) stageTopic(ctx context.Context, ch slack.Channel, conversations []ingest.ConversationInput) (bool, error) {
	payload, err := marshalPayload(inbox.TopicPayload{Conversations: conversations})
	if err != nil {
		return false, err
	}

	var hashInput strings.Builder
	for _, conv := range conversations {
		hashInput.WriteString(ingest.ConversationRecordID(conv.ChannelID, conv.Ts))
		hashInput.WriteString("\n")
		hashInput.WriteString(conv.ResolvedText)
		hashInput.WriteString("\n")
	}

	return s.stager.Stage(ctx, inbox.Item{
		OrgID:       s.cfg.OrgID,
		Type:        inbox.TypeTopic,
		Title:       fmt.Sprintf("#%s: %d new conversations", ch.Name, len(conversations)),
		ContentHash: inbox.HashContent(hashInput.String()),
		Payload:     payload,
	})
}

// permalink builds the canonical archive URL for a message.
func permalink(channelID, ts string) string {
	return fmt.Sprintf("https://slack.com/archives/%s/p%s", channelID, strings.ReplaceAll(ts, ".", ""))
}
