// Package knowledge is the retrieval gateway: it stores ingestion
// records with their embeddings in PostgreSQL + pgvector and serves
// org-scoped semantic search with metadata filtering and a lexical
// reranking pass.
package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/hivemindhq/hivemind/internal/log"
)

var (
	// ErrMissingOrg indicates a store operation without an organization
	// scope. Cross-org leakage is a correctness violation, so the scope
	// is enforced here rather than trusted to callers.
	ErrMissingOrg = errors.New("organization scope is required")
)

// Querier defines the database operations the store needs. The
// interface is defined by the consumer so tests can substitute a mock;
// the production implementation is NewPgxQuerier.
type Querier interface {
	// UpsertRecord inserts or overwrites one record by (id, org_id).
	UpsertRecord(ctx context.Context, arg UpsertRecordParams) error

	// SearchRecords performs org-scoped filtered vector search.
	SearchRecords(ctx context.Context, arg SearchRecordsParams) ([]SearchRecordsRow, error)

	// DeleteByPrefix removes all records of an org whose id starts
	// with prefix, returning the number deleted.
	DeleteByPrefix(ctx context.Context, orgID, prefix string) (int64, error)

	// CountRecords counts an org's records.
	CountRecords(ctx context.Context, orgID string) (int64, error)
}

// Store manages knowledge records with vector search. It generates
// embeddings on write and on query through the configured embedder.
//
// Store is safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Upsert embeds and writes records. The embedder is called once with
// the whole batch; records land individually so one bad record does not
// abort the batch (failures are collected and returned joined).
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r.OrgID == "" {
			return fmt.Errorf("%w: record %q", ErrMissingOrg, r.ID)
		}
	}

	docs := make([]*ai.Document, len(records))
	for i, r := range records {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(r.Content)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(records) {
		return fmt.Errorf("embedder returned %d embeddings for %d records", len(resp.Embeddings), len(records))
	}

	var errs []error
	for i, r := range records {
		emb := resp.Embeddings[i].Embedding
		if len(emb) == 0 {
			errs = append(errs, fmt.Errorf("empty embedding for record %q", r.ID))
			continue
		}
		if err := s.queries.UpsertRecord(ctx, UpsertRecordParams{
			Record:    r,
			Embedding: emb,
		}); err != nil {
			errs = append(errs, fmt.Errorf("upserting record %q: %w", r.ID, err))
			continue
		}
	}

	s.logger.Debug("upserted records",
		"count", len(records)-len(errs),
		"failed", len(errs))

	return errors.Join(errs...)
}

// Search embeds the query and returns the topK most relevant records
// for the organization. Internally it fetches twice the requested
// candidates from the vector index, reranks them lexically against the
// query, and keeps the top slice. An empty result is a valid outcome,
// distinct from a backend error.
func (s *Store) Search(ctx context.Context, orgID, query string, opts ...SearchOption) ([]Hit, error) {
	if orgID == "" {
		return nil, ErrMissingOrg
	}
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	resp, err := s.embedder.Embed(queryCtx, &ai.EmbedRequest{
		Input: []*ai.Document{{Content: []*ai.Part{ai.NewTextPart(query)}}},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned no embedding for query")
	}

	rows, err := s.queries.SearchRecords(queryCtx, SearchRecordsParams{
		OrgID:     orgID,
		Embedding: resp.Embeddings[0].Embedding,
		Channel:   cfg.channel,
		TsMin:     cfg.tsMin,
		TsMax:     cfg.tsMax,
		Limit:     int32(cfg.topK * 2),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit{Record: row.Record, Score: row.Score})
	}

	hits = rerank(query, hits)
	if len(hits) > cfg.topK {
		hits = hits[:cfg.topK]
	}

	s.logger.Debug("knowledge search",
		"org_id", orgID,
		"top_k", cfg.topK,
		"candidates", len(rows),
		"returned", len(hits))

	return hits, nil
}

// DeleteByPrefix removes every record of the org whose id starts with
// prefix, e.g. "meeting:m1:" to drop a meeting's chunks before
// re-ingestion.
func (s *Store) DeleteByPrefix(ctx context.Context, orgID, prefix string) (int64, error) {
	if orgID == "" {
		return 0, ErrMissingOrg
	}
	n, err := s.queries.DeleteByPrefix(ctx, orgID, prefix)
	if err != nil {
		return 0, fmt.Errorf("deleting records with prefix %q: %w", prefix, err)
	}
	return n, nil
}

// Count returns the number of records stored for the org.
func (s *Store) Count(ctx context.Context, orgID string) (int64, error) {
	if orgID == "" {
		return 0, ErrMissingOrg
	}
	n, err := s.queries.CountRecords(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
