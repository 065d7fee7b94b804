package ingest

import (
	"strconv"

	"github.com/hivemindhq/hivemind/internal/knowledge"
)

// ConversationInput is one normalized Slack message or thread bundle
// ready to become a knowledge record. For a thread bundle, Ts is the
// thread root's ts, ResolvedText is the concatenated thread transcript,
// and IsThread is true.
type ConversationInput struct {
	ChannelID    string
	ChannelName  string
	AuthorID     string
	AuthorName   string
	RawText      string
	ResolvedText string
	Ts           string
	ThreadTS     string
	ReplyCount   int
	IsThread     bool
	Permalink    string
}

// ConversationRecord builds the knowledge record for a Slack message or
// thread bundle. Thread bundles are keyed by the thread root's ts so
// re-ingesting the same thread overwrites one record regardless of how
// many replies have arrived.
func ConversationRecord(orgID string, in ConversationInput) knowledge.Record {
	ts := in.Ts
	if in.IsThread && in.ThreadTS != "" {
		ts = in.ThreadTS
	}

	return knowledge.Record{
		ID:         ConversationRecordID(in.ChannelID, ts),
		OrgID:      orgID,
		SourceType: knowledge.SourceSlack,
		Content:    in.ResolvedText,
		Ts:         SlackTsToUnix(ts),
		Metadata: map[string]string{
			knowledge.MetaChannelID:   in.ChannelID,
			knowledge.MetaChannelName: in.ChannelName,
			knowledge.MetaAuthorID:    in.AuthorID,
			knowledge.MetaAuthorName:  in.AuthorName,
			knowledge.MetaThreadTS:    in.ThreadTS,
			knowledge.MetaReplyCount:  strconv.Itoa(in.ReplyCount),
			knowledge.MetaIsThread:    strconv.FormatBool(in.IsThread),
			knowledge.MetaPermalink:   in.Permalink,
		},
	}
}
