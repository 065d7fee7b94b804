package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/agent"
	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/log"
)

// Chat validation constants.
const (
	MaxTitleLength   = 200
	MaxPromptLength  = 10000
	DefaultChatTitle = "New chat"
)

// TurnRunner runs one conversational turn and generates chat titles.
// Satisfied by *agent.Agent.
type TurnRunner interface {
	Run(ctx context.Context, req agent.TurnRequest, sink agent.Sink) (chat.Message, error)
	GenerateTitle(ctx context.Context, userMessage string) (string, error)
}

// ChatHandler handles chat CRUD, sharing, and the streaming turn
// endpoint.
type ChatHandler struct {
	chats  *chat.Store
	runner TurnRunner
	logger log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chats *chat.Store, runner TurnRunner, logger log.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, runner: runner, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chats", h.create)
	mux.HandleFunc("GET /api/chats", h.list)
	mux.HandleFunc("GET /api/chats/{id}", h.get)
	mux.HandleFunc("DELETE /api/chats/{id}", h.delete)
	mux.HandleFunc("POST /api/chats/{id}/messages", h.sendMessage)
	mux.HandleFunc("GET /api/chats/{id}/shares", h.listShares)
	mux.HandleFunc("POST /api/chats/{id}/shares", h.share)
	mux.HandleFunc("DELETE /api/chats/{id}/shares/{userID}", h.unshare)
}

// CreateChatRequest is the request body for creating a chat.
type CreateChatRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) create(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = DefaultChatTitle
	}
	if len(req.Title) > MaxTitleLength {
		writeError(w, h.logger, http.StatusBadRequest, "title too long")
		return
	}

	c, err := h.chats.Create(r.Context(), p.UserID, p.OrgID, req.Title)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, c)
}

func (h *ChatHandler) list(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	chats, err := h.chats.List(r.Context(), p.UserID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if chats == nil {
		chats = []chat.Chat{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"chats": chats})
}

func (h *ChatHandler) get(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.chats.Authorize(r.Context(), id, p.UserID, false)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	messages, err := h.chats.Messages(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"chat":     c,
		"messages": messages,
	})
}

func (h *ChatHandler) delete(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.chats.Delete(r.Context(), id, p.UserID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessageRequest is the request body for a streaming turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// sendMessage runs one turn and streams its events. Errors before the
// stream opens are plain HTTP statuses; once streaming has begun, all
// failures arrive as a terminal error event.
func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, h.logger, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > MaxPromptLength {
		writeError(w, h.logger, http.StatusBadRequest, "content too long")
		return
	}

	// Authorization failures must stay plain HTTP errors, so check
	// before committing to the stream. The turn re-checks internally.
	if _, err := h.chats.Authorize(r.Context(), id, p.UserID, true); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	events, err := NewEventWriter(w, h.logger)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	saved, err := h.runner.Run(r.Context(), agent.TurnRequest{
		ChatID: id,
		UserID: p.UserID,
		OrgID:  p.OrgID,
		Prompt: req.Content,
	}, &turnSink{events: events})
	if err != nil {
		events.Send(EventError, map[string]string{"message": turnErrorMessage(err)})
		return
	}

	h.maybeGenerateTitle(r.Context(), id, p, req.Content, saved)
	events.Send(EventDone, map[string]any{"message": saved})
}

// turnErrorMessage picks the user-facing text for a failed turn.
func turnErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrChatBusy):
		return "This chat is already processing a message. Please wait for it to finish."
	case errors.Is(err, chat.ErrAccessDenied), errors.Is(err, chat.ErrNotFound):
		return "This chat is not available."
	default:
		return agent.FriendlyMessage(err)
	}
}

// maybeGenerateTitle names the chat after its first completed turn.
// Best effort: a failed title leaves the default in place.
func (h *ChatHandler) maybeGenerateTitle(ctx context.Context, chatID uuid.UUID, p Principal, prompt string, saved chat.Message) {
	if saved.Sequence != 2 {
		return
	}

	bg := context.WithoutCancel(ctx)
	title, err := h.runner.GenerateTitle(bg, prompt)
	if err != nil {
		h.logger.Debug("title generation failed", "chat_id", chatID, "error", err)
		return
	}
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}
	if err := h.chats.Rename(bg, chatID, p.UserID, title); err != nil {
		h.logger.Debug("saving generated title failed", "chat_id", chatID, "error", err)
	}
}

// ShareRequest is the request body for granting chat access.
type ShareRequest struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
}

func (h *ChatHandler) share(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Permission == "" {
		req.Permission = chat.PermissionRead
	}
	if req.Permission != chat.PermissionRead && req.Permission != chat.PermissionWrite {
		writeError(w, h.logger, http.StatusBadRequest, "permission must be read or write")
		return
	}

	if err := h.chats.Share(r.Context(), id, p.UserID, req.UserID, req.Permission); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) unshare(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.chats.Unshare(r.Context(), id, p.UserID, r.PathValue("userID")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) listShares(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id, ok := chatID(w, r, h.logger)
	if !ok {
		return
	}

	shares, err := h.chats.Shares(r.Context(), id, p.UserID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if shares == nil {
		shares = []chat.Share{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"shares": shares})
}

// chatID parses the {id} path segment, writing a 400 on failure.
func chatID(w http.ResponseWriter, r *http.Request, logger log.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid chat id")
		return uuid.Nil, false
	}
	return id, true
}
