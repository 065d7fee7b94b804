package chat

import (
	"context"
	"encoding/json"
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

func (q *PgxQuerier) InsertChat(ctx context.Context, c Chat) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO chats (id, owner_id, org_id, title, status) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.OwnerID, c.OrgID, c.Title, c.Status)
	if err != nil {
		return fmt.Errorf("exec insert chat: %w", err)
	}
	return nil
}

func (q *PgxQuerier) GetChat(ctx context.Context, id uuid.UUID) (Chat, error) {
	var c Chat
	err := q.pool.QueryRow(ctx,
		`SELECT id, owner_id, org_id, title, status, created_at, updated_at FROM chats WHERE id = $1`,
		id).Scan(&c.ID, &c.OwnerID, &c.OrgID, &c.Title, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("query chat: %w", err)
	}
	return c, nil
}

func (q *PgxQuerier) ListChatsForUser(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT DISTINCT c.id, c.owner_id, c.org_id, c.title, c.status, c.created_at, c.updated_at
		FROM chats c
		LEFT JOIN chat_shares s ON s.chat_id = c.id
		WHERE c.owner_id = $1 OR s.user_id = $1
		ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.OrgID, &c.Title, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (q *PgxQuerier) UpdateChatTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := q.pool.Exec(ctx,
		`UPDATE chats SET title = $2, updated_at = now() WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("exec update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *PgxQuerier) DeleteChat(ctx context.Context, id uuid.UUID) error {
	tag, err := q.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("exec delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *PgxQuerier) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE chats SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("exec status CAS: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *PgxQuerier) InsertMessage(ctx context.Context, m Message) (Message, error) {
	sources, err := json.Marshal(m.Sources)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling sources: %w", err)
	}
	if m.Sources == nil {
		sources = []byte("[]")
	}

	// The subselect and insert run in one statement, so the unique
	// (chat_id, sequence_number) constraint resolves races between
	// concurrent appends by failing the loser; callers retry at the
	// turn level.
	err = q.pool.QueryRow(ctx, `
		INSERT INTO messages (id, chat_id, role, content, sources, sequence_number)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM messages WHERE chat_id = $2))
		RETURNING sequence_number, created_at`,
		m.ID, m.ChatID, m.Role, m.Content, sources).
		Scan(&m.Sequence, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("exec insert message: %w", err)
	}
	return m, nil
}

func (q *PgxQuerier) ListMessages(ctx context.Context, chatID uuid.UUID) ([]Message, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, chat_id, role, content, sources, sequence_number, created_at
		FROM messages WHERE chat_id = $1 ORDER BY sequence_number`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m       Message
			sources []byte
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &sources, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, fmt.Errorf("unmarshaling sources for %s: %w", m.ID, err)
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (q *PgxQuerier) UpsertShare(ctx context.Context, s Share) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO chat_shares (chat_id, user_id, permission, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			permission = EXCLUDED.permission,
			granted_by = EXCLUDED.granted_by`,
		s.ChatID, s.UserID, s.Permission, s.GrantedBy)
	if err != nil {
		return fmt.Errorf("exec upsert share: %w", err)
	}
	return nil
}

func (q *PgxQuerier) DeleteShare(ctx context.Context, chatID uuid.UUID, userID string) error {
	_, err := q.pool.Exec(ctx,
		`DELETE FROM chat_shares WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("exec delete share: %w", err)
	}
	return nil
}

func (q *PgxQuerier) ListShares(ctx context.Context, chatID uuid.UUID) ([]Share, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT chat_id, user_id, permission, granted_by, created_at
		FROM chat_shares WHERE chat_id = $1 ORDER BY created_at`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var shares []Share
	for rows.Next() {
		var s Share
		if err := rows.Scan(&s.ChatID, &s.UserID, &s.Permission, &s.GrantedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (q *PgxQuerier) GetShare(ctx context.Context, chatID uuid.UUID, userID string) (Share, error) {
	var s Share
	err := q.pool.QueryRow(ctx, `
		SELECT chat_id, user_id, permission, granted_by, created_at
		FROM chat_shares WHERE chat_id = $1 AND user_id = $2`, chatID, userID).
		Scan(&s.ChatID, &s.UserID, &s.Permission, &s.GrantedBy, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Share{}, ErrNotFound
	}
	if err != nil {
		return Share{}, fmt.Errorf("query share: %w", err)
	}
	return s, nil
}
