// Package handlers provides the HTTP handler for the chat endpoint.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/opto-ai/opto/internal/modules/advisor"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds a chat request body
const maxBodyBytes = 1 << 20

// Chatter runs one chat turn
type Chatter interface {
	Chat(ctx context.Context, req advisor.ChatRequest) (*advisor.ChatResponse, error)
}

// Handler handles chat HTTP requests
type Handler struct {
	chatter Chatter
	log     zerolog.Logger
}

// NewHandler creates a new chat handler
func NewHandler(chatter Chatter, log zerolog.Logger) *Handler {
	return &Handler{
		chatter: chatter,
		log:     log.With().Str("handler", "chat").Logger(),
	}
}

// HandleChat handles POST /chat
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req advisor.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatter.Chat(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Int("status", status).Msg("Chat failed")
		} else {
			h.log.Debug().Err(err).Msg("Chat request rejected")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case advisor.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, advisor.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, advisor.ErrAssistantFailed),
		errors.Is(err, advisor.ErrUnknownTool),
		errors.Is(err, advisor.ErrBadToolArguments):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
