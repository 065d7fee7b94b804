//go:build integration

package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/ingest"
	"github.com/hivemindhq/hivemind/internal/log"
	"github.com/hivemindhq/hivemind/internal/testutil"
)

func setupIntegrationStore(t *testing.T) *Store {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return NewStore(NewPgxQuerier(db.Pool), log.NewNop())
}

func topicItem(t *testing.T, orgID, title string) Item {
	t.Helper()
	payload, err := json.Marshal(TopicPayload{
		Conversations: []ingest.ConversationInput{{
			ChannelID:    "C1",
			ResolvedText: title,
			Ts:           "1717000000.000100",
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return Item{
		OrgID:       orgID,
		Type:        TypeTopic,
		Title:       title,
		ContentHash: HashContent(title),
		Payload:     payload,
	}
}

func TestIntegrationStageDeduplicates(t *testing.T) {
	store := setupIntegrationStore(t)
	ctx := context.Background()

	inserted, err := store.Stage(ctx, topicItem(t, "acme", "product updates"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if !inserted {
		t.Fatal("first stage reported duplicate")
	}

	// Same content for the same org is a no-op.
	inserted, err = store.Stage(ctx, topicItem(t, "acme", "product updates"))
	if err != nil {
		t.Fatalf("re-Stage: %v", err)
	}
	if inserted {
		t.Error("identical content staged twice")
	}

	// Another org may stage the same content.
	inserted, err = store.Stage(ctx, topicItem(t, "other-org", "product updates"))
	if err != nil {
		t.Fatalf("Stage(other org): %v", err)
	}
	if !inserted {
		t.Error("content hash dedup leaked across orgs")
	}

	pending, err := store.ListPending(ctx, "acme")
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Type != TypeTopic || pending[0].Status != StatusPending {
		t.Errorf("item = %+v, want pending topic", pending[0])
	}
}

func TestIntegrationReviewTransitionsAreTerminal(t *testing.T) {
	store := setupIntegrationStore(t)
	ctx := context.Background()

	item := topicItem(t, "acme", "product updates")
	if _, err := store.Stage(ctx, item); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	staged, err := store.ListPending(ctx, "acme")
	if err != nil || len(staged) != 1 {
		t.Fatalf("ListPending = %v, %v", staged, err)
	}
	id := staged[0].ID

	if err := store.markReviewed(ctx, id, StatusApproved, "reviewer-1"); err != nil {
		t.Fatalf("markReviewed: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusApproved || got.ReviewedBy != "reviewer-1" {
		t.Errorf("item = %+v, want approved by reviewer-1", got)
	}
	if got.ReviewedAt == nil {
		t.Error("reviewed_at not set")
	}

	if err := store.markReviewed(ctx, id, StatusDismissed, "reviewer-2"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second review = %v, want ErrAlreadyProcessed", err)
	}
	if err := store.markReviewed(ctx, uuid.New(), StatusApproved, "reviewer-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown item review = %v, want ErrNotFound", err)
	}
}
