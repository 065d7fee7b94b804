package inbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/ingest"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
)

// Indexer is the slice of the knowledge store the service needs.
type Indexer interface {
	Upsert(ctx context.Context, records []knowledge.Record) error
	DeleteByPrefix(ctx context.Context, orgID, prefix string) (int64, error)
}

// Service applies review decisions. Approval materializes knowledge
// records from the staged payload and indexes them; the status flips
// only after indexing succeeds, so a failed approval stays pending and
// can be retried.
type Service struct {
	items         *Store
	index         Indexer
	chunkMaxChars int
	logger        log.Logger
}

// NewService creates an inbox service.
func NewService(items *Store, index Indexer, chunkMaxChars int, logger log.Logger) *Service {
	if chunkMaxChars <= 0 {
		chunkMaxChars = ingest.DefaultChunkMaxChars
	}
	return &Service{
		items:         items,
		index:         index,
		chunkMaxChars: chunkMaxChars,
		logger:        logger,
	}
}

// Get returns a single item by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	return s.items.Get(ctx, id)
}

// ListPending returns an org's items awaiting review.
func (s *Service) ListPending(ctx context.Context, orgID string) ([]Item, error) {
	return s.items.ListPending(ctx, orgID)
}

// Approve materializes the item's records, indexes them, and marks the
// item approved. Already-processed items are rejected.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewedBy string) error {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status != StatusPending {
		return ErrAlreadyProcessed
	}

	records, err := s.materialize(ctx, item)
	if err != nil {
		return fmt.Errorf("materializing inbox item %s: %w", id, err)
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("indexing inbox item %s: %w", id, err)
	}

	if err := s.items.markReviewed(ctx, id, StatusApproved, reviewedBy); err != nil {
		// The records are indexed but the item still shows pending.
		// Record ids are deterministic, so a retried approval re-upserts
		// the same rows instead of duplicating them.
		s.logger.Error("inbox item indexed but not marked approved",
			"item_id", id,
			"records", len(records),
			"error", err,
		)
		return err
	}

	s.logger.Info("inbox item approved",
		"item_id", id,
		"type", item.Type,
		"records", len(records),
		"reviewed_by", reviewedBy,
	)
	return nil
}

// Dismiss marks the item dismissed without touching the index.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID, reviewedBy string) error {
	if err := s.items.markReviewed(ctx, id, StatusDismissed, reviewedBy); err != nil {
		return err
	}
	s.logger.Info("inbox item dismissed", "item_id", id, "reviewed_by", reviewedBy)
	return nil
}

// materialize turns a staged payload into knowledge records.
func (s *Service) materialize(ctx context.Context, item Item) ([]knowledge.Record, error) {
	switch item.Type {
	case TypeTopic:
		var payload TopicPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding topic payload: %w", err)
		}
		records := make([]knowledge.Record, 0, len(payload.Conversations))
		for _, conv := range payload.Conversations {
			records = append(records, ingest.ConversationRecord(item.OrgID, conv))
		}
		return records, nil

	case TypeMeeting:
		var payload MeetingPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decoding meeting payload: %w", err)
		}
		// Re-approving a meeting can change its chunk boundaries, so
		// clear the previous chunk set before writing the new one.
		prefix := ingest.MeetingRecordPrefix(payload.Meeting.ID)
		if _, err := s.index.DeleteByPrefix(ctx, item.OrgID, prefix); err != nil {
			return nil, fmt.Errorf("clearing meeting records: %w", err)
		}
		records := []knowledge.Record{ingest.MeetingMetaRecord(item.OrgID, payload.Meeting)}
		records = append(records, ingest.MeetingChunkRecords(item.OrgID, payload.Meeting, payload.Transcript, s.chunkMaxChars)...)
		return records, nil

	default:
		return nil, fmt.Errorf("unknown inbox item type %q", item.Type)
	}
}
