// vLLM HTTP adapter — the self-hosted inference server.
// vLLM exposes an OpenAI-compatible surface, so this adapter shares the
// wire types and normalization helpers with the OpenRouter adapter and
// only differs in catalog handling: the local model set is static
// configuration, not discovered from upstream, and costs nothing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// localCatalog lists the models the inference server is provisioned with.
// Availability is assumed when the server endpoint is configured; actual
// reachability surfaces as an upstream error at call time.
var localCatalog = []ModelDescriptor{
	{
		ID:            "llama-3-8b-instruct",
		Name:          "Llama 3 8B Instruct",
		Provider:      ProviderVLLM,
		Description:   "Meta's Llama 3 8B parameter instruction-tuned model",
		ContextWindow: 8192,
		MaxTokens:     8192,
		Capabilities:  []string{"text-generation"},
		IsAvailable:   true,
		IsLocal:       true,
	},
	{
		ID:            "mistral-7b-instruct",
		Name:          "Mistral 7B Instruct",
		Provider:      ProviderVLLM,
		Description:   "Mistral AI's 7B parameter instruction-tuned model",
		ContextWindow: 4096,
		MaxTokens:     4096,
		Capabilities:  []string{"text-generation"},
		IsAvailable:   true,
		IsLocal:       true,
	},
	{
		ID:            "phi-3-mini",
		Name:          "Phi-3 Mini",
		Provider:      ProviderVLLM,
		Description:   "Microsoft's Phi-3 Mini 3.8B parameter model",
		ContextWindow: 4096,
		MaxTokens:     4096,
		Capabilities:  []string{"text-generation"},
		IsAvailable:   true,
		IsLocal:       true,
	},
}

// VLLMProvider implements Provider against a self-hosted vLLM server.
type VLLMProvider struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewVLLMProvider creates the adapter. An empty baseURL degrades the
// adapter the same way a missing API key degrades the cloud one.
func NewVLLMProvider(baseURL string, log zerolog.Logger) *VLLMProvider {
	if baseURL == "" {
		log.Warn().Msg("vllm base url not set — provider degraded")
	}
	return &VLLMProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 300 * time.Second, // local generation can be slow on CPU
		},
		log: log.With().Str("provider", ProviderVLLM).Logger(),
	}
}

func (p *VLLMProvider) Name() string { return ProviderVLLM }

// ListModels returns the static local catalog, or nothing when degraded.
func (p *VLLMProvider) ListModels(_ context.Context) ([]ModelDescriptor, error) {
	if p.baseURL == "" {
		return nil, nil
	}
	out := make([]ModelDescriptor, len(localCatalog))
	copy(out, localCatalog)
	return out, nil
}

// Complete performs a non-streaming completion via POST /v1/chat/completions.
func (p *VLLMProvider) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("vllm: %w", ErrNotConfigured)
	}

	body, err := p.doChat(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var upstream orChatResponse
	if err := json.NewDecoder(body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("vllm: decode chat response: %w", err)
	}
	return normalizeResponse(upstream, req.Model), nil
}

// Stream performs a streaming completion over the same SSE framing the
// aggregator uses.
func (p *VLLMProvider) Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("vllm: %w", ErrNotConfigured)
	}

	body, err := p.doChat(ctx, req, true)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go decodeStream(ctx, body, out, req.Model, p.log)
	return out, nil
}

func (p *VLLMProvider) doChat(ctx context.Context, req ChatRequest, stream bool) (io.ReadCloser, error) {
	payload := orChatPayload{
		Model:       req.Model,
		Messages:    toWireMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vllm: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("vllm: build request: %w", err)
	}
	httpReq.Header.Set(headerContentType, mimeJSON)
	httpReq.Header.Set(headerAccept, mimeJSON)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vllm: chat request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close() //nolint:errcheck
		return nil, upstreamError("vllm", resp)
	}
	return resp.Body, nil
}
