// Package llm defines the provider-agnostic chat abstraction.
// All types here are shared between the provider interface, the adapters,
// the registry/router and the API layer: adapters translate upstream wire
// shapes into these and nothing provider-specific leaks past this package.
package llm

// Role values accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider tags carried by ModelDescriptor.
const (
	ProviderOpenRouter = "openrouter"
	ProviderVLLM       = "vllm"
	ProviderLocal      = "local"
)

// Finish reasons reported in ChatChoice.
const (
	FinishStop   = "stop"
	FinishLength = "length"
	FinishError  = "error"
)

// Message is a single turn in a conversation. Immutable once constructed.
type Message struct {
	Role      string `json:"role"` // system | user | assistant
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest is the canonical inbound completion request.
// Messages are ordered oldest first.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
}

// ChatChoice is one alternative completion inside a response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"` // stop | length | error | ""
}

// Usage holds token accounting for one completion.
// TotalTokens = PromptTokens + CompletionTokens for well-formed responses.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the canonical non-streaming completion result.
// Model names the model that actually answered — after any fallback
// substitution, not the originally requested id.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// DeltaChoice is one incremental choice inside a StreamChunk.
// Delta carries only the new fragment, not the accumulated message.
type DeltaChoice struct {
	Index        int     `json:"index"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// StreamChunk is one increment of a streaming completion. Chunks are
// delivered strictly in generation order, never reordered or duplicated.
//
// Done marks the in-process terminal marker: adapters emit one Done chunk
// after the upstream end-of-stream sentinel and then close the channel.
// A channel that closes without a Done chunk failed mid-stream — that is
// how consumers keep partial success distinguishable from completion.
// Done never crosses the wire.
type StreamChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []DeltaChoice `json:"choices"`

	Done bool `json:"-"`
}

// Pricing is cost per one million tokens, USD. Both fields are >= 0.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// ModelDescriptor describes one entry of the model catalog.
// Descriptors are created by registry refresh and are read-only afterwards;
// each refresh replaces the whole catalog, never mutates entries in place.
type ModelDescriptor struct {
	ID            string   `json:"id"` // provider-qualified, e.g. "anthropic/claude-3-haiku"
	Name          string   `json:"name"`
	Provider      string   `json:"provider"` // openrouter | vllm | local
	Description   string   `json:"description"`
	ContextWindow int      `json:"context_window"`
	MaxTokens     int      `json:"max_tokens"`
	Pricing       Pricing  `json:"pricing"`
	Capabilities  []string `json:"capabilities"`
	IsAvailable   bool     `json:"is_available"`
	IsLocal       bool     `json:"is_local"`
}

// Decision records how one request was routed. Ephemeral — used only for
// logging and telemetry, never persisted.
type Decision struct {
	Provider string // adapter name
	ModelID  string // effective model id after any substitution
	Fallback bool   // true when the requested model was substituted
}
