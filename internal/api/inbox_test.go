package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/ingest"
	"github.com/hivemindhq/hivemind/internal/knowledge"
	"github.com/hivemindhq/hivemind/internal/log"
)

// memInboxQuerier is an in-memory inbox.Querier.
type memInboxQuerier struct {
	mu    sync.Mutex
	items map[uuid.UUID]inbox.Item
}

func newMemInboxQuerier() *memInboxQuerier {
	return &memInboxQuerier{items: make(map[uuid.UUID]inbox.Item)}
}

func (q *memInboxQuerier) InsertItem(_ context.Context, item inbox.Item) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.items {
		if existing.OrgID == item.OrgID && existing.ContentHash == item.ContentHash {
			return false, nil
		}
	}
	q.items[item.ID] = item
	return true, nil
}

func (q *memInboxQuerier) GetItem(_ context.Context, id uuid.UUID) (inbox.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return inbox.Item{}, inbox.ErrNotFound
	}
	return item, nil
}

func (q *memInboxQuerier) ListPending(_ context.Context, orgID string) ([]inbox.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []inbox.Item
	for _, item := range q.items {
		if item.OrgID == orgID && item.Status == inbox.StatusPending {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (q *memInboxQuerier) MarkReviewed(_ context.Context, id uuid.UUID, status, reviewedBy string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok || item.Status != inbox.StatusPending {
		return false, nil
	}
	item.Status = status
	item.ReviewedBy = reviewedBy
	q.items[id] = item
	return true, nil
}

// recordingIndexer captures what approvals index.
type recordingIndexer struct {
	mu       sync.Mutex
	upserted []knowledge.Record
}

func (i *recordingIndexer) Upsert(_ context.Context, records []knowledge.Record) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.upserted = append(i.upserted, records...)
	return nil
}

func (i *recordingIndexer) DeleteByPrefix(_ context.Context, _, _ string) (int64, error) {
	return 0, nil
}

type inboxFixture struct {
	querier *memInboxQuerier
	indexer *recordingIndexer
	service *inbox.Service
	handler http.Handler
}

func newInboxFixture(t *testing.T) *inboxFixture {
	t.Helper()
	querier := newMemInboxQuerier()
	indexer := &recordingIndexer{}
	service := inbox.NewService(inbox.NewStore(querier, log.NewNop()), indexer, 0, log.NewNop())

	apiMux := http.NewServeMux()
	NewInboxHandler(service, log.NewNop()).RegisterRoutes(apiMux)
	mux := http.NewServeMux()
	mux.Handle("/api/", identityMiddleware(log.NewNop())(apiMux))

	return &inboxFixture{
		querier: querier,
		indexer: indexer,
		service: service,
		handler: chain(mux, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop())),
	}
}

func (f *inboxFixture) do(t *testing.T, method, path, orgID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, &bytes.Buffer{})
	req.Header.Set(HeaderUserID, "reviewer-1")
	req.Header.Set(HeaderOrgID, orgID)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *inboxFixture) stageTopic(t *testing.T, orgID, title string) inbox.Item {
	t.Helper()
	payload, err := json.Marshal(inbox.TopicPayload{
		Conversations: []ingest.ConversationInput{{
			ChannelID:    "C1",
			ChannelName:  "product",
			AuthorName:   "Alice",
			ResolvedText: "shipping notes for " + title,
			Ts:           "1717000000.000100",
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	item := inbox.Item{
		ID:          uuid.New(),
		OrgID:       orgID,
		Type:        inbox.TypeTopic,
		Title:       title,
		ContentHash: inbox.HashContent(title),
		Payload:     payload,
	}
	store := inbox.NewStore(f.querier, log.NewNop())
	if _, err := store.Stage(context.Background(), item); err != nil {
		t.Fatalf("staging item: %v", err)
	}
	return item
}

func TestInboxList(t *testing.T) {
	f := newInboxFixture(t)
	f.stageTopic(t, "acme", "product updates")
	f.stageTopic(t, "other-org", "irrelevant")

	rec := f.do(t, http.MethodGet, "/api/inbox", "acme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Items []inbox.Item `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	if resp.Items[0].Title != "product updates" {
		t.Errorf("title = %q, want %q", resp.Items[0].Title, "product updates")
	}
}

func TestInboxListEmpty(t *testing.T) {
	f := newInboxFixture(t)

	rec := f.do(t, http.MethodGet, "/api/inbox", "acme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); !bytes.Contains([]byte(got), []byte(`"items":[]`)) {
		t.Errorf("body = %s, want empty items array", got)
	}
}

func TestInboxApprove(t *testing.T) {
	f := newInboxFixture(t)
	item := f.stageTopic(t, "acme", "product updates")

	rec := f.do(t, http.MethodPost, "/api/inbox/"+item.ID.String()+"/approve", "acme")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got, err := f.querier.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != inbox.StatusApproved {
		t.Errorf("status = %q, want %q", got.Status, inbox.StatusApproved)
	}
	if got.ReviewedBy != "reviewer-1" {
		t.Errorf("reviewed_by = %q, want reviewer-1", got.ReviewedBy)
	}
	if len(f.indexer.upserted) != 1 {
		t.Errorf("indexed records = %d, want 1", len(f.indexer.upserted))
	}
}

func TestInboxApproveTwice(t *testing.T) {
	f := newInboxFixture(t)
	item := f.stageTopic(t, "acme", "product updates")
	path := "/api/inbox/" + item.ID.String() + "/approve"

	if rec := f.do(t, http.MethodPost, path, "acme"); rec.Code != http.StatusNoContent {
		t.Fatalf("first approve status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, path, "acme"); rec.Code != http.StatusConflict {
		t.Fatalf("second approve status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestInboxDismiss(t *testing.T) {
	f := newInboxFixture(t)
	item := f.stageTopic(t, "acme", "product updates")

	rec := f.do(t, http.MethodPost, "/api/inbox/"+item.ID.String()+"/dismiss", "acme")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.indexer.upserted) != 0 {
		t.Errorf("dismiss indexed %d records, want 0", len(f.indexer.upserted))
	}
	got, _ := f.querier.GetItem(context.Background(), item.ID)
	if got.Status != inbox.StatusDismissed {
		t.Errorf("status = %q, want %q", got.Status, inbox.StatusDismissed)
	}
}

func TestInboxCrossOrgLooksAbsent(t *testing.T) {
	f := newInboxFixture(t)
	item := f.stageTopic(t, "other-org", "secret planning")

	rec := f.do(t, http.MethodPost, "/api/inbox/"+item.ID.String()+"/approve", "acme")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	got, _ := f.querier.GetItem(context.Background(), item.ID)
	if got.Status != inbox.StatusPending {
		t.Errorf("status = %q, cross-org approve must not land", got.Status)
	}
}

func TestInboxInvalidID(t *testing.T) {
	f := newInboxFixture(t)

	rec := f.do(t, http.MethodPost, "/api/inbox/not-a-uuid/approve", "acme")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = f.do(t, http.MethodPost, "/api/inbox/"+uuid.NewString()+"/dismiss", "acme")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
