// Package ingest turns raw Slack and meeting-platform payloads into
// deduplicated, content-addressed knowledge records. Record identity is
// a pure function of the source's natural key, so re-ingesting the same
// material always targets the same record and upsert is the only
// deduplication mechanism the system has.
package ingest

import (
	"fmt"
	"strconv"
)

// ConversationRecordID derives the identity of a Slack message or
// thread bundle. Thread bundles pass the thread root's ts so the bundle
// keeps one identity no matter how many replies have arrived since the
// last ingestion.
func ConversationRecordID(channelID, ts string) string {
	return fmt.Sprintf("slack:%s:%s", channelID, ts)
}

// MeetingMetaRecordID derives the identity of a meeting's single
// metadata record.
func MeetingMetaRecordID(meetingID string) string {
	return fmt.Sprintf("meeting:%s:meta", meetingID)
}

// MeetingChunkRecordID derives the identity of one transcript chunk.
// The chunk's start offset and index both participate so re-chunking
// identical input maps onto identical identities.
func MeetingChunkRecordID(meetingID string, startOffset float64, chunkIndex int) string {
	return fmt.Sprintf("meeting:%s:%s:%d",
		meetingID,
		strconv.FormatFloat(startOffset, 'f', -1, 64),
		chunkIndex,
	)
}

// MeetingRecordPrefix is the id prefix shared by all of a meeting's
// records, used for bulk deletion before re-ingestion.
func MeetingRecordPrefix(meetingID string) string {
	return fmt.Sprintf("meeting:%s:", meetingID)
}

// SlackTsToUnix converts a Slack ts string ("1712345678.000200") to
// Unix seconds for range filtering. Malformed input yields 0.
func SlackTsToUnix(ts string) float64 {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return 0
	}
	return f
}
