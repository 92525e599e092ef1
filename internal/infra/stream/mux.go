// Package stream fans completion chunks out to delivery surfaces.
//
// Two surfaces exist: a chunked HTTP body with SSE framing (WriteSSE) and
// per-client duplex connections registered in a Hub under a client id.
// Chunks for one client go only to that client's connection — never
// broadcast. Each registered client gets a bounded buffer drained by its
// own transport writer, so one slow consumer cannot stall delivery to
// anyone else.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alphamind/gateway/internal/infra/llm"
)

// clientBufferSize bounds the per-client chunk buffer. A consumer that
// falls further behind than this blocks its own delivery goroutine only.
const clientBufferSize = 256

// Client is one registered duplex connection.
type Client struct {
	id     string
	chunks chan llm.StreamChunk
	done   chan struct{}
	once   sync.Once
}

// Chunks is the channel the transport writer drains. It is never closed;
// the writer must select on Done to learn about teardown. Keeping the
// channel open is what lets Deliver race-freely stop sending the moment
// the client goes away.
func (c *Client) Chunks() <-chan llm.StreamChunk { return c.chunks }

// Done is closed when the client is deregistered or replaced.
func (c *Client) Done() <-chan struct{} { return c.done }

// ID returns the client identifier the connection was registered under.
func (c *Client) ID() string { return c.id }

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks active duplex connections keyed by client id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

// NewHub creates an empty connection hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log.With().Str("component", "stream-hub").Logger(),
	}
}

// Register adds a connection under id. A second registration with the
// same id replaces the first: the stale connection is closed, since the
// client evidently reconnected.
func (h *Hub) Register(id string) *Client {
	c := &Client{
		id:     id,
		chunks: make(chan llm.StreamChunk, clientBufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.clients[id]; ok {
		old.close()
	}
	h.clients[id] = c
	h.mu.Unlock()

	h.log.Info().Str("client", id).Msg("client connected")
	return c
}

// Deregister removes the connection and unblocks any in-flight Deliver.
// Deregistering an unknown or already-replaced client is a no-op — a
// disconnect must never surface as an error.
func (h *Hub) Deregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()

	c.close()
	h.log.Info().Str("client", c.id).Msg("client disconnected")
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver pumps chunks from ch to the client registered under id until
// the stream ends, the client disconnects, or ctx is cancelled. Terminal
// marker chunks are dropped: on the duplex surface connection closure is
// the terminal signal.
//
// On disconnect Deliver stops pulling from ch promptly — cancel is the
// caller's ctx hook for aborting upstream generation — and returns nil:
// a gone client is normal cancellation, not an error.
func (h *Hub) Deliver(ctx context.Context, id string, ch <-chan llm.StreamChunk, cancel context.CancelFunc) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		cancel()
		return fmt.Errorf("client %s not registered", id)
	}

	defer cancel()
	for chunk := range ch {
		if chunk.Done {
			continue
		}
		select {
		case c.chunks <- chunk:
		case <-c.done:
			h.log.Info().Str("client", id).Msg("client went away mid-stream, discarding output")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// WriteSSE frames chunks onto an HTTP response body: one "data: <json>"
// event per chunk, then the literal "data: [DONE]" — but only when the
// stream completed normally (terminal marker observed). A stream that
// failed halfway ends without the sentinel, which is what keeps partial
// output distinguishable from success. A write failure means the client
// hung up; delivery stops quietly.
func WriteSSE(w http.ResponseWriter, ch <-chan llm.StreamChunk) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	for chunk := range ch {
		if chunk.Done {
			fmt.Fprint(w, "data: [DONE]\n\n") //nolint:errcheck
			flusher.Flush()
			return nil
		}
		b, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return nil // client disconnected — normal cancellation
		}
		flusher.Flush()
	}
	return nil
}
