// OpenRouter HTTP adapter — the cloud aggregator provider.
// Endpoints used:
//   - GET  /models            — catalog refresh
//   - POST /chat/completions  — completions, non-streaming and SSE streaming
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerAuth        = "Authorization"

	defaultContextWindow = 4096
)

// curatedModels is the allow-list applied to the aggregator catalog.
// OpenRouter exposes hundreds of ids; the gateway only advertises the
// ones the product actually supports.
var curatedModels = map[string]struct{}{
	"openai/gpt-4":                    {},
	"openai/gpt-4-turbo":              {},
	"openai/gpt-3.5-turbo":            {},
	"anthropic/claude-3-opus":         {},
	"anthropic/claude-3-sonnet":       {},
	"anthropic/claude-3-haiku":        {},
	"google/gemini-pro":               {},
	"meta-llama/llama-3-70b-instruct": {},
	"mistralai/mistral-large":         {},
}

// OpenRouterProvider implements Provider against the OpenRouter API.
// One adapter owns one long-lived http.Client; an adapter constructed
// without an API key is degraded: empty catalog, ErrNotConfigured calls.
type OpenRouterProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOpenRouterProvider creates the adapter. An empty apiKey is not an
// error — the adapter initializes into degraded state so a missing
// credential never crashes the process.
func NewOpenRouterProvider(baseURL, apiKey string, log zerolog.Logger) *OpenRouterProvider {
	if apiKey == "" {
		log.Warn().Msg("openrouter api key not set — provider degraded")
	}
	return &OpenRouterProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log.With().Str("provider", ProviderOpenRouter).Logger(),
	}
}

func (p *OpenRouterProvider) Name() string { return ProviderOpenRouter }

// ─── upstream wire types ─────────────────────────────────────────────────────

type orModelList struct {
	Data []orModelEntry `json:"data"`
}

type orModelEntry struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ContextLength int       `json:"context_length"`
	Pricing       orPricing `json:"pricing"`
}

// orPricing carries per-token prices as decimal strings on the wire.
type orPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

type orChatPayload struct {
	Model       string      `json:"model"`
	Messages    []orMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	Stream      bool        `json:"stream"`
}

type orMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orChatResponse struct {
	ID      string     `json:"id"`
	Created int64      `json:"created"`
	Model   string     `json:"model"`
	Choices []orChoice `json:"choices"`
	Usage   *orUsage   `json:"usage"`
}

type orChoice struct {
	Index        int       `json:"index"`
	Message      orMessage `json:"message"`
	FinishReason string    `json:"finish_reason"`
}

type orUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ─── Provider implementation ─────────────────────────────────────────────────

// ListModels fetches the aggregator catalog and maps the curated subset
// into descriptors. A degraded adapter returns an empty catalog, nil error.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openrouter list models: build request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter list models: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter list models: status %d", resp.StatusCode)
	}

	var list orModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("openrouter list models: decode: %w", err)
	}

	models := make([]ModelDescriptor, 0, len(curatedModels))
	for _, entry := range list.Data {
		if _, ok := curatedModels[entry.ID]; !ok {
			continue
		}
		models = append(models, p.toDescriptor(entry))
	}
	return models, nil
}

// toDescriptor maps one upstream catalog entry. Missing upstream fields
// default to safe values rather than failing the whole catalog.
func (p *OpenRouterProvider) toDescriptor(entry orModelEntry) ModelDescriptor {
	window := entry.ContextLength
	if window <= 0 {
		window = defaultContextWindow
	}
	return ModelDescriptor{
		ID:            entry.ID,
		Name:          entry.Name,
		Provider:      ProviderOpenRouter,
		Description:   entry.Description,
		ContextWindow: window,
		MaxTokens:     window,
		Pricing: Pricing{
			Input:  perMillion(entry.Pricing.Prompt),
			Output: perMillion(entry.Pricing.Completion),
		},
		Capabilities: []string{"text-generation"},
		IsAvailable:  true,
		IsLocal:      false,
	}
}

// perMillion converts an upstream per-token price string to per-1M-token.
// Unparseable prices become zero, never an error.
func perMillion(perToken string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(perToken), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v * 1_000_000
}

// Complete performs a non-streaming completion via POST /chat/completions.
func (p *OpenRouterProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openrouter: %w", ErrNotConfigured)
	}

	body, err := p.doChat(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var upstream orChatResponse
	if err := json.NewDecoder(body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("openrouter: decode chat response: %w", err)
	}
	return normalizeResponse(upstream, req.Model), nil
}

// Stream performs a streaming completion; chunks arrive on the returned
// channel in generation order until [DONE] or cancellation.
func (p *OpenRouterProvider) Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openrouter: %w", ErrNotConfigured)
	}

	body, err := p.doChat(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go decodeStream(ctx, body, out, req.Model, p.log)
	return out, nil
}

// doChat sends the completion request and returns the raw response body.
// Caller owns closing the returned ReadCloser.
func (p *OpenRouterProvider) doChat(ctx context.Context, req ChatRequest, stream bool) (io.ReadCloser, error) {
	payload := orChatPayload{
		Model:       req.Model,
		Messages:    toWireMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("openrouter: build request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: chat request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		return nil, upstreamError("openrouter", resp)
	}
	return resp.Body, nil
}

func (p *OpenRouterProvider) setHeaders(req *http.Request) {
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set(headerAccept, mimeJSON)
	req.Header.Set(headerAuth, "Bearer "+p.apiKey)
}

// ─── shared helpers (used by both HTTP adapters) ─────────────────────────────

func toWireMessages(msgs []Message) []orMessage {
	out := make([]orMessage, len(msgs))
	for i, m := range msgs {
		out[i] = orMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// normalizeResponse maps an upstream envelope into the canonical shape.
// Unknown or missing fields default to safe values (zero counts, empty
// finish reason) instead of failing the response. The model field is
// forced to effectiveModel so the caller knows what served the request.
func normalizeResponse(upstream orChatResponse, effectiveModel string) *ChatResponse {
	created := upstream.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	choices := make([]ChatChoice, 0, len(upstream.Choices))
	for _, c := range upstream.Choices {
		role := c.Message.Role
		if role == "" {
			role = RoleAssistant
		}
		choices = append(choices, ChatChoice{
			Index:        c.Index,
			Message:      Message{Role: role, Content: c.Message.Content},
			FinishReason: c.FinishReason,
		})
	}

	var usage Usage
	if upstream.Usage != nil {
		usage = Usage{
			PromptTokens:     max(upstream.Usage.PromptTokens, 0),
			CompletionTokens: max(upstream.Usage.CompletionTokens, 0),
			TotalTokens:      max(upstream.Usage.TotalTokens, 0),
		}
	}

	return &ChatResponse{
		ID:      upstream.ID,
		Object:  "chat.completion",
		Created: created,
		Model:   effectiveModel,
		Choices: choices,
		Usage:   usage,
	}
}

// upstreamError reads a bounded slice of the error body and wraps it.
// The adapter's credential is never part of the message.
func upstreamError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s: %w: status %d", provider, ErrUpstream, resp.StatusCode)
	}
	return fmt.Errorf("%s: %w: status %d: %s", provider, ErrUpstream, resp.StatusCode, msg)
}
