// Package syncer pulls new material from upstream sources (Slack
// channels, meeting recordings) on a schedule, normalizes it, and
// either stages it for review or commits it straight to the knowledge
// index. Per-item failures never abort a run; they are collected and
// reported at the end.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CursorStore persists per-source sync positions so runs resume where
// the previous one stopped.
type CursorStore interface {
	// GetCursor returns the stored cursor, or "" when the source has
	// never been synced.
	GetCursor(ctx context.Context, sourceKey string) (string, error)
	SetCursor(ctx context.Context, sourceKey, orgID, cursor string) error
}

// PgxCursorStore implements CursorStore against the sync_state table.
type PgxCursorStore struct {
	pool *pgxpool.Pool
}

// NewPgxCursorStore creates the production CursorStore.
func NewPgxCursorStore(pool *pgxpool.Pool) *PgxCursorStore {
	return &PgxCursorStore{pool: pool}
}

func (s *PgxCursorStore) GetCursor(ctx context.Context, sourceKey string) (string, error) {
	var cursor string
	err := s.pool.QueryRow(ctx,
		`SELECT cursor FROM sync_state WHERE source_key = $1`, sourceKey).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query cursor: %w", err)
	}
	return cursor, nil
}

func (s *PgxCursorStore) SetCursor(ctx context.Context, sourceKey, orgID, cursor string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (source_key, org_id, cursor, synced_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (source_key) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			synced_at = now()`,
		sourceKey, orgID, cursor)
	if err != nil {
		return fmt.Errorf("exec set cursor: %w", err)
	}
	return nil
}

// Result summarizes one sync run. Errs holds per-item failures the run
// skipped over; a non-empty list still counts as a completed run.
type Result struct {
	Synced   int
	Staged   int
	Skipped  int
	Failed   int
	Duration time.Duration
	Errs     []error
}

// Err joins the collected per-item failures, or nil when none occurred.
func (r *Result) Err() error {
	return errors.Join(r.Errs...)
}

func (r *Result) fail(err error) {
	r.Failed++
	r.Errs = append(r.Errs, err)
}

func marshalPayload(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return b, nil
}
