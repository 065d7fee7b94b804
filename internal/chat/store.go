package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/log"
)

// Querier defines the database operations the store needs; the
// production implementation is NewPgxQuerier, tests substitute a mock.
type Querier interface {
	InsertChat(ctx context.Context, c Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]Chat, error)
	UpdateChatTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteChat(ctx context.Context, id uuid.UUID) error

	// CompareAndSetStatus flips status from 'from' to 'to' atomically,
	// reporting whether the transition happened.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)

	// InsertMessage appends a message, assigning the next sequence
	// number within the chat.
	InsertMessage(ctx context.Context, m Message) (Message, error)
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]Message, error)

	UpsertShare(ctx context.Context, s Share) error
	DeleteShare(ctx context.Context, chatID uuid.UUID, userID string) error
	ListShares(ctx context.Context, chatID uuid.UUID) ([]Share, error)
	GetShare(ctx context.Context, chatID uuid.UUID, userID string) (Share, error)
}

// Store is the relational source of truth for conversations. The live
// event stream is a best-effort accelerator on top of it; whether a
// turn completed is decided here.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates a chat store.
func NewStore(querier Querier, logger log.Logger) *Store {
	return &Store{queries: querier, logger: logger}
}

// Create creates a chat owned by ownerID within orgID.
func (s *Store) Create(ctx context.Context, ownerID, orgID, title string) (Chat, error) {
	c := Chat{
		ID:      uuid.New(),
		OwnerID: ownerID,
		OrgID:   orgID,
		Title:   title,
		Status:  StatusIdle,
	}
	if err := s.queries.InsertChat(ctx, c); err != nil {
		return Chat{}, fmt.Errorf("creating chat: %w", err)
	}
	s.logger.Debug("chat created", "chat_id", c.ID, "owner_id", ownerID)
	return c, nil
}

// Authorize loads a chat and verifies the caller may access it.
// Owners always pass; other users need a share, and write access needs
// a write share. Authorization failures carry no side effects.
func (s *Store) Authorize(ctx context.Context, chatID uuid.UUID, userID string, write bool) (Chat, error) {
	c, err := s.queries.GetChat(ctx, chatID)
	if err != nil {
		return Chat{}, err
	}
	if c.OwnerID == userID {
		return c, nil
	}

	share, err := s.queries.GetShare(ctx, chatID, userID)
	if err != nil {
		return Chat{}, ErrAccessDenied
	}
	if write && share.Permission != PermissionWrite {
		return Chat{}, ErrAccessDenied
	}
	return c, nil
}

// List returns the chats a user owns or has been granted access to.
func (s *Store) List(ctx context.Context, userID string) ([]Chat, error) {
	chats, err := s.queries.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// Rename updates a chat's title. Requires write access.
func (s *Store) Rename(ctx context.Context, chatID uuid.UUID, userID, title string) error {
	if _, err := s.Authorize(ctx, chatID, userID, true); err != nil {
		return err
	}
	if err := s.queries.UpdateChatTitle(ctx, chatID, title); err != nil {
		return fmt.Errorf("renaming chat: %w", err)
	}
	return nil
}

// Delete removes a chat and its messages. Only the owner may delete.
func (s *Store) Delete(ctx context.Context, chatID uuid.UUID, userID string) error {
	c, err := s.queries.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if c.OwnerID != userID {
		return ErrAccessDenied
	}
	if err := s.queries.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	return nil
}

// BeginTurn flips the chat from idle to loading. Returns ErrChatBusy
// when another turn holds the chat.
func (s *Store) BeginTurn(ctx context.Context, chatID uuid.UUID) error {
	ok, err := s.queries.CompareAndSetStatus(ctx, chatID, StatusIdle, StatusLoading)
	if err != nil {
		return fmt.Errorf("acquiring chat: %w", err)
	}
	if !ok {
		return ErrChatBusy
	}
	return nil
}

// EndTurn flips the chat back to idle. Called on every turn exit path;
// losing this reset would strand the chat in loading.
func (s *Store) EndTurn(ctx context.Context, chatID uuid.UUID) {
	ok, err := s.queries.CompareAndSetStatus(ctx, chatID, StatusLoading, StatusIdle)
	if err != nil {
		s.logger.Error("resetting chat status", "chat_id", chatID, "error", err)
		return
	}
	if !ok {
		s.logger.Warn("chat status was not loading at turn end", "chat_id", chatID)
	}
}

// AppendMessage persists one message, assigning its sequence number.
func (s *Store) AppendMessage(ctx context.Context, chatID uuid.UUID, role, content string, sources []Source) (Message, error) {
	m := Message{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    role,
		Content: content,
		Sources: sources,
	}
	saved, err := s.queries.InsertMessage(ctx, m)
	if err != nil {
		return Message{}, fmt.Errorf("appending message: %w", err)
	}
	return saved, nil
}

// Messages returns a chat's full history in sequence order.
func (s *Store) Messages(ctx context.Context, chatID uuid.UUID) ([]Message, error) {
	msgs, err := s.queries.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// Share grants userID access to the chat. Only the owner may share.
func (s *Store) Share(ctx context.Context, chatID uuid.UUID, ownerID, userID, permission string) error {
	c, err := s.queries.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if c.OwnerID != ownerID {
		return ErrAccessDenied
	}
	if permission != PermissionRead && permission != PermissionWrite {
		return fmt.Errorf("invalid permission %q", permission)
	}
	if err := s.queries.UpsertShare(ctx, Share{
		ChatID:     chatID,
		UserID:     userID,
		Permission: permission,
		GrantedBy:  ownerID,
	}); err != nil {
		return fmt.Errorf("sharing chat: %w", err)
	}
	return nil
}

// Unshare revokes a user's access. Only the owner may revoke.
func (s *Store) Unshare(ctx context.Context, chatID uuid.UUID, ownerID, userID string) error {
	c, err := s.queries.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if c.OwnerID != ownerID {
		return ErrAccessDenied
	}
	if err := s.queries.DeleteShare(ctx, chatID, userID); err != nil {
		return fmt.Errorf("unsharing chat: %w", err)
	}
	return nil
}

// Shares lists a chat's grants. Requires read access.
func (s *Store) Shares(ctx context.Context, chatID uuid.UUID, userID string) ([]Share, error) {
	if _, err := s.Authorize(ctx, chatID, userID, false); err != nil {
		return nil, err
	}
	shares, err := s.queries.ListShares(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	return shares, nil
}
