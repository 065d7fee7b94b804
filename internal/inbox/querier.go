package inbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxQuerier implements Querier against PostgreSQL.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates the production Querier.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

func (q *PgxQuerier) InsertItem(ctx context.Context, item Item) (bool, error) {
	tag, err := q.pool.Exec(ctx, `
		INSERT INTO inbox_items (id, org_id, item_type, status, title, content_hash, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id, content_hash) DO NOTHING`,
		item.ID, item.OrgID, item.Type, item.Status, item.Title, item.ContentHash, item.Payload)
	if err != nil {
		return false, fmt.Errorf("exec insert inbox item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *PgxQuerier) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	var item Item
	err := q.pool.QueryRow(ctx, `
		SELECT id, org_id, item_type, status, title, content_hash, payload, created_at, reviewed_at, reviewed_by
		FROM inbox_items WHERE id = $1`, id).
		Scan(&item.ID, &item.OrgID, &item.Type, &item.Status, &item.Title,
			&item.ContentHash, &item.Payload, &item.CreatedAt, &item.ReviewedAt, &item.ReviewedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("query inbox item: %w", err)
	}
	return item, nil
}

func (q *PgxQuerier) ListPending(ctx context.Context, orgID string) ([]Item, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, org_id, item_type, status, title, content_hash, payload, created_at, reviewed_at, reviewed_by
		FROM inbox_items
		WHERE org_id = $1 AND status = $2
		ORDER BY created_at DESC`, orgID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrgID, &item.Type, &item.Status, &item.Title,
			&item.ContentHash, &item.Payload, &item.CreatedAt, &item.ReviewedAt, &item.ReviewedBy); err != nil {
			return nil, fmt.Errorf("scanning inbox item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *PgxQuerier) MarkReviewed(ctx context.Context, id uuid.UUID, status, reviewedBy string) (bool, error) {
	tag, err := q.pool.Exec(ctx, `
		UPDATE inbox_items
		SET status = $2, reviewed_at = now(), reviewed_by = $3
		WHERE id = $1 AND status = $4`,
		id, status, reviewedBy, StatusPending)
	if err != nil {
		return false, fmt.Errorf("exec review CAS: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
