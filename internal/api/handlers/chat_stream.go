package handlers

import (
	"net/http"

	"github.com/alphamind/gateway/internal/infra/stream"
)

// ChatStreamHandler serves the SSE completion endpoint.
type ChatStreamHandler struct {
	service ChatService
}

func NewChatStreamHandler(service ChatService) *ChatStreamHandler {
	return &ChatStreamHandler{service: service}
}

// ChatStream handles POST /chat/stream. Errors before the first byte get
// a JSON error status; once streaming starts the connection itself is the
// contract — a failed stream just ends without the [DONE] sentinel.
func (h *ChatStreamHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, _, err := h.service.Stream(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := stream.WriteSSE(w, ch); err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
	}
}
