// Server-sent event decoding shared by the HTTP adapters.
// Both OpenRouter and vLLM emit an OpenAI-style event feed: one event per
// line prefixed with "data: ", terminated by the literal "data: [DONE]".
package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	ssePrefix = "data: "
	sseDone   = "[DONE]"

	// sseBufferMax caps a single event line at 1MB. Upstream deltas are
	// tiny; anything larger is a protocol violation, not a real event.
	sseBufferMax = 1 << 20
)

// decodeStream reads an SSE body line by line and forwards decoded chunks
// on out until the [DONE] sentinel, EOF, or ctx cancellation.
//
// Malformed event lines are logged and skipped so one bad line does not
// abort an otherwise-good stream. Every chunk gets its Model field forced
// to model: the caller must always see the id that actually answered.
// Closes both out and body before returning.
func decodeStream(ctx context.Context, body io.ReadCloser, out chan<- StreamChunk, model string, log zerolog.Logger) {
	defer close(out)
	defer body.Close() //nolint:errcheck

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), sseBufferMax)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ssePrefix) {
			continue // comments, blank keep-alive lines
		}
		payload := strings.TrimPrefix(line, ssePrefix)
		if payload == sseDone {
			select {
			case out <- StreamChunk{Model: model, Done: true}:
			case <-ctx.Done():
			}
			return
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			log.Warn().Err(err).Str("model", model).Msg("skipping malformed stream event")
			continue
		}
		if chunk.Created == 0 {
			chunk.Created = time.Now().Unix()
		}
		chunk.Model = model

		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("model", model).Msg("stream ended early")
	}
}
