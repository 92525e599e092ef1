package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphamind/gateway/internal/infra/llm"
	"github.com/alphamind/gateway/internal/infra/logging"
)

func chunk(id string) llm.StreamChunk {
	return llm.StreamChunk{ID: id, Model: "m", Choices: []llm.DeltaChoice{{Delta: llm.Message{Content: id}}}}
}

func TestHub_Deliver_ToRegisteredClientOnly(t *testing.T) {
	t.Parallel()

	h := NewHub(logging.Nop())
	alice := h.Register("alice")
	bob := h.Register("bob")
	defer h.Deregister(alice)
	defer h.Deregister(bob)

	ch := make(chan llm.StreamChunk, 3)
	ch <- chunk("c1")
	ch <- chunk("c2")
	ch <- llm.StreamChunk{Done: true}
	close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.Deliver(ctx, "alice", ch, cancel))

	require.Len(t, alice.Chunks(), 2, "terminal marker must not cross the duplex surface")
	assert.Empty(t, bob.Chunks(), "chunks are private to the addressed client")

	got := <-alice.Chunks()
	assert.Equal(t, "c1", got.ID)
	got = <-alice.Chunks()
	assert.Equal(t, "c2", got.ID)
}

func TestHub_Deliver_DisconnectMidStream(t *testing.T) {
	t.Parallel()

	h := NewHub(logging.Nop())
	c := h.Register("leaver")

	ctx, cancel := context.WithCancel(context.Background())
	src := make(chan llm.StreamChunk)
	result := make(chan error, 1)
	go func() { result <- h.Deliver(ctx, "leaver", src, cancel) }()

	// client receives 2 of an eventual 5 chunks, then disconnects
	src <- chunk("c1")
	src <- chunk("c2")
	<-c.Chunks()
	<-c.Chunks()
	h.Deregister(c)

	// fill the buffer so the next send would block on a live client
	go func() {
		for i := 0; i < 3; i++ {
			select {
			case src <- chunk("late"):
			case <-ctx.Done():
				close(src)
				return
			}
		}
		close(src)
	}()

	select {
	case err := <-result:
		assert.NoError(t, err, "disconnect is normal cancellation, never an error")
	case <-time.After(2 * time.Second):
		t.Fatal("Deliver did not stop after client disconnect")
	}
	assert.Error(t, ctx.Err(), "upstream generation must be cancelled once the client is gone")
	assert.Zero(t, h.Len())
}

func TestHub_Deliver_UnknownClient(t *testing.T) {
	t.Parallel()

	h := NewHub(logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan llm.StreamChunk)
	close(ch)

	err := h.Deliver(ctx, "ghost", ch, cancel)
	assert.Error(t, err)
	assert.Error(t, ctx.Err(), "upstream must be cancelled when nobody is listening")
}

func TestHub_Register_ReplacesStaleConnection(t *testing.T) {
	t.Parallel()

	h := NewHub(logging.Nop())
	first := h.Register("dup")
	second := h.Register("dup")
	defer h.Deregister(second)

	select {
	case <-first.Done():
	default:
		t.Fatal("stale connection must be torn down on reconnect")
	}
	assert.Equal(t, 1, h.Len())

	// deregistering the stale handle must not remove the live one
	h.Deregister(first)
	assert.Equal(t, 1, h.Len())
}

func TestWriteSSE_FramesChunksAndSentinel(t *testing.T) {
	t.Parallel()

	ch := make(chan llm.StreamChunk, 3)
	ch <- chunk("c1")
	ch <- chunk("c2")
	ch <- llm.StreamChunk{Done: true}
	close(ch)

	rec := httptest.NewRecorder()
	require.NoError(t, WriteSSE(rec, ch))

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 3)
	assert.Contains(t, frames[0], `"id":"c1"`)
	assert.Contains(t, frames[1], `"id":"c2"`)
	assert.Equal(t, "data: [DONE]", frames[2], "sentinel is always the last frame")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestWriteSSE_FailedStreamOmitsSentinel(t *testing.T) {
	t.Parallel()

	ch := make(chan llm.StreamChunk, 1)
	ch <- chunk("c1")
	close(ch) // closed without terminal marker = upstream failure

	rec := httptest.NewRecorder()
	require.NoError(t, WriteSSE(rec, ch))
	assert.NotContains(t, rec.Body.String(), "[DONE]")
}
