package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/alphamind/gateway/internal/api/ctxkeys"
	"github.com/alphamind/gateway/internal/domain/chat"
	"github.com/alphamind/gateway/internal/infra/llm"
)

// ChatService is the orchestrator capability the chat handlers need.
type ChatService interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, llm.Decision, error)
	Health(ctx context.Context) chat.HealthStatus
}

// ChatHandler serves the non-streaming completion endpoint.
type ChatHandler struct {
	service ChatService
}

func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// decodeChatRequest parses the request body and threads the authenticated
// identity (when present) into the request for usage accounting.
func decodeChatRequest(r *http.Request) (llm.ChatRequest, error) {
	var req llm.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return llm.ChatRequest{}, err
	}
	if userID := ctxkeys.Value(r.Context(), ctxkeys.UserID); userID != "" {
		req.UserID = userID
	}
	return req, nil
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Complete(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
