package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader there is no way to notify the
// client; the error is logged and the response left as-is.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, logger log.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// writeDomainError maps domain sentinels to HTTP statuses. Unknown
// errors become opaque 500s; their detail stays in the log.
func writeDomainError(w http.ResponseWriter, logger log.Logger, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, inbox.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrAccessDenied):
		writeError(w, logger, http.StatusForbidden, "access denied")
	case errors.Is(err, chat.ErrChatBusy):
		writeError(w, logger, http.StatusConflict, "chat is already processing a message")
	case errors.Is(err, inbox.ErrAlreadyProcessed):
		writeError(w, logger, http.StatusConflict, "item already processed")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}
