// Package chat holds the conversation domain model and its PostgreSQL
// store: chats, ordered messages with source citations, and read/write
// shares between users.
package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Chat lifecycle status. Status is a cooperative concurrency guard: a
// chat is flipped to loading before an agent turn starts and back to
// idle on every exit path, so one chat never runs two turns at once.
const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Share permission levels.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

var (
	// ErrNotFound indicates the chat or message does not exist.
	ErrNotFound = errors.New("chat not found")

	// ErrAccessDenied indicates the caller neither owns the chat nor
	// holds a sufficient share.
	ErrAccessDenied = errors.New("access denied")

	// ErrChatBusy indicates the chat is already running a turn.
	ErrChatBusy = errors.New("chat is already processing a message")
)

// Chat is one conversation.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	OrgID     string    `json:"org_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one immutable chat turn. Sequence orders messages within a
// chat; the store assigns it on append.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// Share grants another user access to a chat.
type Share struct {
	ChatID     uuid.UUID `json:"chat_id"`
	UserID     string    `json:"user_id"`
	Permission string    `json:"permission"`
	GrantedBy  string    `json:"granted_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Source kinds.
const (
	SourceKindSlack   = "slack"
	SourceKindMeeting = "meeting"
	SourceKindWeb     = "web"
)

// Source is one citation attached to a model message. Kind selects
// which field group is populated.
type Source struct {
	Kind string `json:"kind"`

	// Slack fields
	ChannelName string `json:"channel_name,omitempty"`
	Author      string `json:"author,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	IsThread    bool   `json:"is_thread,omitempty"`

	// Meeting fields
	MeetingTitle string  `json:"meeting_title,omitempty"`
	Speaker      string  `json:"speaker,omitempty"`
	StartOffset  float64 `json:"start_offset,omitempty"`
	EndOffset    float64 `json:"end_offset,omitempty"`

	// Web fields
	Title string `json:"title,omitempty"`

	// Shared fields
	Excerpt string `json:"excerpt,omitempty"`
	URL     string `json:"url,omitempty"`
}
