package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/log"
)

// InboxHandler exposes the review queue.
type InboxHandler struct {
	inbox  *inbox.Service
	logger log.Logger
}

// NewInboxHandler creates an inbox handler.
func NewInboxHandler(svc *inbox.Service, logger log.Logger) *InboxHandler {
	return &InboxHandler{inbox: svc, logger: logger}
}

// RegisterRoutes registers inbox routes on the given mux.
func (h *InboxHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inbox", h.list)
	mux.HandleFunc("POST /api/inbox/{id}/approve", h.approve)
	mux.HandleFunc("POST /api/inbox/{id}/dismiss", h.dismiss)
}

func (h *InboxHandler) list(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	items, err := h.inbox.ListPending(r.Context(), p.OrgID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []inbox.Item{}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"items": items})
}

func (h *InboxHandler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeItem(w, r)
	if !ok {
		return
	}
	p := principalFrom(r.Context())

	if err := h.inbox.Approve(r.Context(), id, p.UserID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InboxHandler) dismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeItem(w, r)
	if !ok {
		return
	}
	p := principalFrom(r.Context())

	if err := h.inbox.Dismiss(r.Context(), id, p.UserID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeItem parses the item id and checks org ownership. Items that
// belong to another org look absent.
func (h *InboxHandler) authorizeItem(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p := principalFrom(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid item id")
		return uuid.Nil, false
	}

	item, err := h.inbox.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return uuid.Nil, false
	}
	if item.OrgID != p.OrgID {
		writeDomainError(w, h.logger, inbox.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
