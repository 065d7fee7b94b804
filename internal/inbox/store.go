package inbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/log"
)

// Querier defines the database operations the store needs.
type Querier interface {
	// InsertItem stages an item, reporting false when an item with the
	// same (org, content hash) already exists.
	InsertItem(ctx context.Context, item Item) (bool, error)
	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
	ListPending(ctx context.Context, orgID string) ([]Item, error)

	// MarkReviewed flips a pending item to the given status, reporting
	// whether the transition happened.
	MarkReviewed(ctx context.Context, id uuid.UUID, status, reviewedBy string) (bool, error)
}

// Store manages staged inbox items.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates an inbox store.
func NewStore(querier Querier, logger log.Logger) *Store {
	return &Store{queries: querier, logger: logger}
}

// Stage inserts a pending item, deduplicating on content hash. Returns
// false when identical content is already staged for the org.
func (s *Store) Stage(ctx context.Context, item Item) (bool, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.Status = StatusPending

	inserted, err := s.queries.InsertItem(ctx, item)
	if err != nil {
		return false, fmt.Errorf("staging inbox item: %w", err)
	}
	if !inserted {
		s.logger.Debug("inbox item already staged",
			"org_id", item.OrgID,
			"content_hash", item.ContentHash,
		)
	}
	return inserted, nil
}

// Get returns one item.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	return s.queries.GetItem(ctx, id)
}

// ListPending returns an org's pending items, newest first.
func (s *Store) ListPending(ctx context.Context, orgID string) ([]Item, error) {
	items, err := s.queries.ListPending(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	return items, nil
}

// markReviewed applies a terminal transition. An item that already left
// pending is rejected, never silently re-applied.
func (s *Store) markReviewed(ctx context.Context, id uuid.UUID, status, reviewedBy string) error {
	ok, err := s.queries.MarkReviewed(ctx, id, status, reviewedBy)
	if err != nil {
		return fmt.Errorf("marking inbox item %s: %w", status, err)
	}
	if !ok {
		// Distinguish missing from already-processed for the caller.
		if _, err := s.queries.GetItem(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyProcessed
	}
	return nil
}
