package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/alphamind/gateway/internal/api/ctxkeys"
	"github.com/alphamind/gateway/internal/infra/llm"
	"github.com/alphamind/gateway/internal/infra/stream"
)

// WSChatHandler serves the duplex chat endpoint. Each connection registers
// in the stream hub under the caller's client id; inbound frames are JSON
// ChatRequests, outbound frames are JSON StreamChunks. Chunks reach only
// the connection they were produced for.
type WSChatHandler struct {
	service  ChatService
	hub      *stream.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSChatHandler(service ChatService, hub *stream.Hub, log zerolog.Logger) *WSChatHandler {
	return &WSChatHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

// wsConn serializes writes: gorilla/websocket allows one concurrent
// writer, and both the chunk pump and the request loop produce frames.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Chat handles GET /ws/chat/{client_id}.
//
// The connection serves requests sequentially: read a ChatRequest frame,
// stream its chunks, read the next. A request that fails before streaming
// gets a {"detail": msg} frame; mid-stream failure just ends that stream's
// chunks. Connection closure — either side — tears everything down and
// cancels any in-flight generation.
func (h *WSChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}
	defer conn.Close() //nolint:errcheck

	client := h.hub.Register(clientID)
	defer h.hub.Deregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := &wsConn{conn: conn}
	go h.pumpChunks(ctx, cancel, wc, client)

	userID := ctxkeys.Value(r.Context(), ctxkeys.UserID)
	for {
		var req llm.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			h.log.Debug().Str("client", clientID).Err(err).Msg("read loop ended")
			return
		}
		if userID != "" {
			req.UserID = userID
		}

		streamCtx, streamCancel := context.WithCancel(ctx)
		ch, _, err := h.service.Stream(streamCtx, req)
		if err != nil {
			streamCancel()
			if writeErr := wc.writeJSON(map[string]string{"detail": err.Error()}); writeErr != nil {
				return
			}
			continue
		}

		if err := h.hub.Deliver(streamCtx, clientID, ch, streamCancel); err != nil {
			// Registration was replaced by a reconnect; this socket is stale.
			return
		}
	}
}

// pumpChunks drains the client's hub buffer onto the socket. A write
// failure means the peer hung up; cancelling ctx stops generation.
func (h *WSChatHandler) pumpChunks(ctx context.Context, cancel context.CancelFunc, wc *wsConn, client *stream.Client) {
	for {
		select {
		case chunk := <-client.Chunks():
			if err := wc.writeJSON(chunk); err != nil {
				cancel()
				return
			}
		case <-client.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}
