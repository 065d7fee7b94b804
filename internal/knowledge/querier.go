package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// UpsertRecordParams carries one record plus its embedding.
type UpsertRecordParams struct {
	Record    Record
	Embedding []float32
}

// SearchRecordsParams is the filtered vector search input. Channel and
// the ts bounds are optional; zero values disable them.
type SearchRecordsParams struct {
	OrgID     string
	Embedding []float32
	Channel   string
	TsMin     float64
	TsMax     float64
	Limit     int32
}

// SearchRecordsRow is one raw candidate from the vector index, scored
// by cosine similarity before reranking.
type SearchRecordsRow struct {
	Record Record
	Score  float32
}

// PgxQuerier implements Querier against PostgreSQL + pgvector.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates the production Querier.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

const upsertRecordSQL = `
INSERT INTO records (id, org_id, source_type, content, embedding, metadata, ts, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id, org_id) DO UPDATE SET
	source_type = EXCLUDED.source_type,
	content     = EXCLUDED.content,
	embedding   = EXCLUDED.embedding,
	metadata    = EXCLUDED.metadata,
	ts          = EXCLUDED.ts,
	updated_at  = now()`

func (q *PgxQuerier) UpsertRecord(ctx context.Context, arg UpsertRecordParams) error {
	metadata, err := json.Marshal(arg.Record.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = q.pool.Exec(ctx, upsertRecordSQL,
		arg.Record.ID,
		arg.Record.OrgID,
		arg.Record.SourceType,
		arg.Record.Content,
		pgvector.NewVector(arg.Embedding),
		metadata,
		arg.Record.Ts,
	)
	if err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	return nil
}

const searchRecordsSQL = `
SELECT id, source_type, content, metadata, ts,
       1 - (embedding <=> $2) AS score
FROM records
WHERE org_id = $1
  AND ($3 = '' OR metadata->>'channel_name' = $3)
  AND ($4 <= 0 OR ts >= $4)
  AND ($5 <= 0 OR ts < $5)
ORDER BY embedding <=> $2
LIMIT $6`

func (q *PgxQuerier) SearchRecords(ctx context.Context, arg SearchRecordsParams) ([]SearchRecordsRow, error) {
	rows, err := q.pool.Query(ctx, searchRecordsSQL,
		arg.OrgID,
		pgvector.NewVector(arg.Embedding),
		arg.Channel,
		arg.TsMin,
		arg.TsMax,
		arg.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query search: %w", err)
	}
	defer rows.Close()

	var results []SearchRecordsRow
	for rows.Next() {
		var (
			row      SearchRecordsRow
			metadata []byte
			score    float64
		)
		if err := rows.Scan(
			&row.Record.ID,
			&row.Record.SourceType,
			&row.Record.Content,
			&metadata,
			&row.Record.Ts,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row.Record.OrgID = arg.OrgID
		row.Score = float32(score)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &row.Record.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %q: %w", row.Record.ID, err)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return results, nil
}

func (q *PgxQuerier) DeleteByPrefix(ctx context.Context, orgID, prefix string) (int64, error) {
	// Escape LIKE metacharacters so a literal "_" in a meeting id
	// cannot widen the match.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	tag, err := q.pool.Exec(ctx,
		`DELETE FROM records WHERE org_id = $1 AND id LIKE $2 || '%'`,
		orgID, escaped)
	if err != nil {
		return 0, fmt.Errorf("exec delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PgxQuerier) CountRecords(ctx context.Context, orgID string) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM records WHERE org_id = $1`, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("query count: %w", err)
	}
	return n, nil
}
