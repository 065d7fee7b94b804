package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/meeting"
)

// MeetingMetaRecord builds the single metadata record for a meeting:
// title, date, participants and duration rendered as searchable prose.
func MeetingMetaRecord(orgID string, m meeting.Meeting) knowledge.Record {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s", m.Name)
	if !m.HappenedAt.IsZero() {
		fmt.Fprintf(&b, "\nDate: %s", m.HappenedAt.Format("2006-01-02 15:04 MST"))
	}
	if m.Organizer.Name != "" {
		fmt.Fprintf(&b, "\nOrganizer: %s", m.Organizer.Name)
	}
	if len(m.Invitees) > 0 {
		names := make([]string, 0, len(m.Invitees))
		for _, p := range m.Invitees {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "\nParticipants: %s", strings.Join(names, ", "))
		}
	}
	if m.Duration > 0 {
		fmt.Fprintf(&b, "\nDuration: %s", time.Duration(m.Duration*float64(time.Second)).Round(time.Second))
	}

	return knowledge.Record{
		ID:         MeetingMetaRecordID(m.ID),
		OrgID:      orgID,
		SourceType: knowledge.SourceMeeting,
		Content:    b.String(),
		Ts:         meetingTs(m),
		Metadata: map[string]string{
			knowledge.MetaMeetingID:    m.ID,
			knowledge.MetaMeetingKind:  "meta",
			knowledge.MetaMeetingTitle: m.Name,
			knowledge.MetaMeetingURL:   m.URL,
			knowledge.MetaMeetingDate:  m.HappenedAt.Format(time.RFC3339),
		},
	}
}

// MeetingChunkRecords chunks a transcript and builds one record per
// chunk, keyed by (meeting, chunk start offset, chunk index).
func MeetingChunkRecords(orgID string, m meeting.Meeting, turns []meeting.TranscriptTurn, maxChars int) []knowledge.Record {
	chunks := ChunkTranscript(transcriptTurns(turns), maxChars)

	records := make([]knowledge.Record, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, knowledge.Record{
			ID:         MeetingChunkRecordID(m.ID, c.Start, c.Index),
			OrgID:      orgID,
			SourceType: knowledge.SourceMeeting,
			Content:    c.Text,
			Ts:         meetingTs(m),
			Metadata: map[string]string{
				knowledge.MetaMeetingID:    m.ID,
				knowledge.MetaMeetingKind:  "chunk",
				knowledge.MetaMeetingTitle: m.Name,
				knowledge.MetaSpeaker:      c.Speaker,
				knowledge.MetaStartOffset:  strconv.FormatFloat(c.Start, 'f', -1, 64),
				knowledge.MetaEndOffset:    strconv.FormatFloat(c.End, 'f', -1, 64),
				knowledge.MetaMeetingURL:   m.URL,
				knowledge.MetaMeetingDate:  m.HappenedAt.Format(time.RFC3339),
			},
		})
	}
	return records
}

func meetingTs(m meeting.Meeting) float64 {
	if m.HappenedAt.IsZero() {
		return 0
	}
	return float64(m.HappenedAt.Unix())
}

func transcriptTurns(in []meeting.TranscriptTurn) []Turn {
	out := make([]Turn, len(in))
	for i, t := range in {
		out[i] = Turn{
			Speaker: t.Speaker,
			Start:   t.StartTime,
			End:     t.EndTime,
			Text:    t.Text,
		}
	}
	return out
}
