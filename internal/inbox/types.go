// Package inbox stages discovered source material for human review
// before it is committed to the knowledge index. Approval materializes
// records; dismissal drops the item. Both transitions are terminal.
package inbox

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/ingest"
	"github.com/hivemindhq/hivemind/internal/meeting"
)

// Item types.
const (
	TypeTopic   = "topic"
	TypeMeeting = "meeting"
)

// Item statuses. An item leaves pending exactly once.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusDismissed = "dismissed"
)

var (
	// ErrNotFound indicates the inbox item does not exist.
	ErrNotFound = errors.New("inbox item not found")

	// ErrAlreadyProcessed indicates the item has already been approved
	// or dismissed. Review decisions are terminal and never re-applied.
	ErrAlreadyProcessed = errors.New("inbox item already processed")
)

// Item is one staged ingestion candidate. Payload holds everything
// needed to materialize knowledge records on approval, so discovery and
// commitment stay decoupled.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	OrgID       string          `json:"org_id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Title       string          `json:"title"`
	ContentHash string          `json:"content_hash"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy  string          `json:"reviewed_by,omitempty"`
}

// TopicPayload is the payload of a TypeTopic item: one or more
// normalized conversations from the same channel sweep.
type TopicPayload struct {
	Conversations []ingest.ConversationInput `json:"conversations"`
}

// MeetingPayload is the payload of a TypeMeeting item.
type MeetingPayload struct {
	Meeting    meeting.Meeting          `json:"meeting"`
	Transcript []meeting.TranscriptTurn `json:"transcript"`
}

// HashContent returns the content-address of staged material. Staging
// the same content twice within an org is a no-op keyed on this hash.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
