// Provider is the capability set every upstream adapter implements.
// Adapters (OpenRouter, vLLM, future local runtimes) translate between
// their upstream wire format and the canonical shapes in types.go so the
// rest of the gateway is never coupled to a specific vendor.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned by an adapter initialized without its
	// required credentials. The adapter stays registered in degraded state:
	// ListModels returns an empty catalog and calls fail with this error
	// instead of crashing the process.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrModelNotFound is returned by the registry for an unknown model id.
	ErrModelNotFound = errors.New("model not found")

	// ErrNoModelsAvailable is returned by the router when neither the
	// requested model nor any fallback candidate is available.
	ErrNoModelsAvailable = errors.New("no models available")

	// ErrUpstream marks a non-2xx answer from a provider backend. The
	// wrapped message carries the upstream status and a bounded body
	// excerpt, never the adapter's credential.
	ErrUpstream = errors.New("upstream error")
)

// Provider is implemented by every upstream adapter.
//
// Stream returns a channel that yields chunks in generation order and is
// closed when the upstream stream terminates. Cancelling ctx stops the
// producer goroutine; the channel is closed in that case too. A stream
// that failed mid-way is closed without a terminal finish_reason — the
// caller distinguishes completion from failure by the last chunk.
type Provider interface {
	// Name returns the provider tag (e.g. "openrouter").
	Name() string

	// ListModels returns the provider's current catalog. A degraded
	// adapter returns an empty slice and no error.
	ListModels(ctx context.Context) ([]ModelDescriptor, error)

	// Complete performs a non-streaming chat completion.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Stream performs a streaming chat completion.
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
}
