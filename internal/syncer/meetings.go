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
	"github.com/hivemindhq/hivemind/internal/meeting"
)

// MeetingAPI is the slice of the meeting client the syncer needs.
type MeetingAPI interface {
	ListMeetings(ctx context.Context, since time.Time) ([]meeting.Meeting, error)
	GetTranscript(ctx context.Context, meetingID string) ([]meeting.TranscriptTurn, error)
}

// MeetingSyncerConfig configures a MeetingSyncer.
type MeetingSyncerConfig struct {
	OrgID         string
	AutoCommit    bool
	ChunkMaxChars int
}

// MeetingSyncer pulls meetings recorded since the stored cursor,
// fetches their transcripts, and stages or indexes them.
type MeetingSyncer struct {
	api     MeetingAPI
	cursors CursorStore
	stager  Stager
	index   Indexer
	cfg     MeetingSyncerConfig
	logger  log.Logger
}

// NewMeetingSyncer creates a meeting syncer.
func NewMeetingSyncer(api MeetingAPI, cursors CursorStore, stager Stager, index Indexer, cfg MeetingSyncerConfig, logger log.Logger) *MeetingSyncer {
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = ingest.DefaultChunkMaxChars
	}
	return &MeetingSyncer{
		api:     api,
		cursors: cursors,
		stager:  stager,
		index:   index,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes one sweep. A meeting that fails is recorded and
// skipped; the cursor holds until a sweep finishes clean, so the next
// run lists the failed meeting again. Re-synced successes are
// idempotent: auto-commit rewrites the same record set and staging
// dedupes on the content hash.
func (m *MeetingSyncer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	sourceKey := "meetings:" + m.cfg.OrgID

	cursor, err := m.cursors.GetCursor(ctx, sourceKey)
	if err != nil {
		return nil, err
	}
	since := parseCursorTime(cursor)

	meetings, err := m.api.ListMeetings(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}

	m.logger.Info("meeting sync started",
		"org_id", m.cfg.OrgID,
		"meetings", len(meetings),
		"since", since,
		"auto_commit", m.cfg.AutoCommit,
	)

	maxSeen := since
	for _, mtg := range meetings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !mtg.HappenedAt.After(since) {
			result.Skipped++
			continue
		}
		if err := m.syncMeeting(ctx, mtg, result); err != nil {
			m.logger.Warn("meeting sync failed, skipping",
				"meeting_id", mtg.ID,
				"error", err,
			)
			result.fail(fmt.Errorf("meeting %s: %w", mtg.ID, err))
			continue
		}
		if mtg.HappenedAt.After(maxSeen) {
			maxSeen = mtg.HappenedAt
		}
	}

	// Advancing past a failed meeting would drop it forever, since the
	// next listing starts after the cursor.
	if result.Failed == 0 && maxSeen.After(since) {
		if err := m.cursors.SetCursor(ctx, sourceKey, m.cfg.OrgID, maxSeen.Format(time.RFC3339)); err != nil {
			return result, err
		}
	}

	result.Duration = time.Since(start)
	m.logger.Info("meeting sync finished",
		"synced", result.Synced,
		"staged", result.Staged,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

func (m *MeetingSyncer) syncMeeting(ctx context.Context, mtg meeting.Meeting, result *Result) error {
	transcript, err := m.api.GetTranscript(ctx, mtg.ID)
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}

	if m.cfg.AutoCommit {
		// Chunk boundaries can shift between syncs of the same meeting,
		// so clear the old record set before writing the new one.
		prefix := ingest.MeetingRecordPrefix(mtg.ID)
		if _, err := m.index.DeleteByPrefix(ctx, m.cfg.OrgID, prefix); err != nil {
			return fmt.Errorf("clearing meeting records: %w", err)
		}
		records := []knowledge.Record{ingest.MeetingMetaRecord(m.cfg.OrgID, mtg)}
		records = append(records, ingest.MeetingChunkRecords(m.cfg.OrgID, mtg, transcript, m.cfg.ChunkMaxChars)...)
		if err := m.index.Upsert(ctx, records); err != nil {
			return err
		}
		result.Synced += len(records)
		return nil
	}

	payload, err := marshalPayload(inbox.MeetingPayload{Meeting: mtg, Transcript: transcript})
	if err != nil {
		return err
	}

	var hashInput strings.Builder
	hashInput.WriteString(mtg.ID)
	for _, turn := range transcript {
		hashInput.WriteString("\n")
		hashInput.WriteString(turn.Text)
	}

	staged, err := m.stager.Stage(ctx, inbox.Item{
		OrgID:       m.cfg.OrgID,
		Type:        inbox.TypeMeeting,
		Title:       mtg.Name,
		ContentHash: inbox.HashContent(hashInput.String()),
		Payload:     payload,
	})
	if err != nil {
		return err
	}
	if staged {
		result.Staged++
	} else {
		result.Skipped++
	}
	return nil
}

// parseCursorTime decodes a stored RFC3339 cursor. An absent or
// malformed cursor restarts the sweep from the beginning.
func parseCursorTime(cursor string) time.Time {
	if cursor == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, cursor)
	if err != nil {
		return time.Time{}
	}
	return t
}
