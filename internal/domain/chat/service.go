// Package chat orchestrates completion requests: validation, routing,
// adapter invocation and telemetry. The service is the single entry point
// the transport layer talks to; adapters are never invoked directly.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alphamind/gateway/internal/infra/llm"
)

// ErrInvalidRequest wraps every validation failure. Transports map it to
// a client error; nothing upstream is invoked for an invalid request.
var ErrInvalidRequest = errors.New("invalid request")

const (
	defaultMaxTokens   = 1000
	responseTimeWindow = 100
)

// UsageRecorder receives per-completion token accounting. Recording
// failures are logged, never surfaced to the caller.
type UsageRecorder interface {
	Record(ctx context.Context, userID, model string, pricing llm.Pricing, usage llm.Usage) error
}

// HealthStatus is the service self-report. Produced by Health, which
// never fails: a broken dependency shows up in the fields, not as an
// error return.
type HealthStatus struct {
	Status          string  `json:"status"`
	AvailableModels int     `json:"available_models"`
	TotalRequests   int64   `json:"total_requests"`
	AvgResponseTime float64 `json:"avg_response_time"` // seconds
	Error           string  `json:"error,omitempty"`
}

// Service is the completion orchestrator.
type Service struct {
	registry         *llm.Registry
	router           *llm.Router
	usage            UsageRecorder // optional
	maxContentLength int

	requests atomic.Int64
	times    responseWindow

	log zerolog.Logger
}

// NewService wires the orchestrator. usage may be nil, in which case no
// accounting is recorded. maxContentLength <= 0 disables the length cap.
func NewService(registry *llm.Registry, router *llm.Router, usage UsageRecorder, maxContentLength int, log zerolog.Logger) *Service {
	return &Service{
		registry:         registry,
		router:           router,
		usage:            usage,
		maxContentLength: maxContentLength,
		log:              log.With().Str("component", "chat").Logger(),
	}
}

// Complete runs one non-streaming completion. The response's Model field
// names the model that actually answered, after any fallback substitution.
func (s *Service) Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	provider, decision, err := s.router.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	s.requests.Add(1)
	start := time.Now()

	req.Model = decision.ModelID
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", decision.Provider, err)
	}

	s.times.add(time.Since(start))

	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.Model = decision.ModelID
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}

	s.recordUsage(ctx, req.UserID, decision.ModelID, resp.Usage)

	s.log.Info().
		Str("model", decision.ModelID).
		Str("provider", decision.Provider).
		Bool("fallback", decision.Fallback).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("completion served")

	return resp, nil
}

// Stream runs one streaming completion. The returned channel yields
// chunks in generation order and is closed when the upstream stream
// terminates; a Done chunk precedes the close only on clean completion.
// The Decision reports which model will answer.
func (s *Service) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, llm.Decision, error) {
	if err := s.validate(req); err != nil {
		return nil, llm.Decision{}, err
	}

	provider, decision, err := s.router.Resolve(req.Model)
	if err != nil {
		return nil, llm.Decision{}, err
	}

	s.requests.Add(1)
	start := time.Now()

	req.Model = decision.ModelID
	req.Stream = true
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	upstream, err := provider.Stream(ctx, req)
	if err != nil {
		return nil, decision, fmt.Errorf("provider %s: %w", decision.Provider, err)
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		completed := false
		for chunk := range upstream {
			if chunk.Done {
				completed = true
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		s.times.add(time.Since(start))
		s.log.Info().
			Str("model", decision.ModelID).
			Str("provider", decision.Provider).
			Bool("fallback", decision.Fallback).
			Bool("completed", completed).
			Dur("elapsed", time.Since(start)).
			Msg("stream finished")
	}()

	return out, decision, nil
}

// Health reports service state. It never returns an error.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:          "healthy",
		AvailableModels: s.registry.Len(),
		TotalRequests:   s.requests.Load(),
		AvgResponseTime: s.times.avg().Seconds(),
	}
	if status.AvailableModels == 0 {
		status.Status = "degraded"
		status.Error = "no models in catalog"
	}
	return status
}

func (s *Service) recordUsage(ctx context.Context, userID, modelID string, usage llm.Usage) {
	if s.usage == nil || userID == "" {
		return
	}
	pricing := llm.Pricing{}
	if desc, err := s.registry.Lookup(modelID); err == nil {
		pricing = desc.Pricing
	}
	if err := s.usage.Record(ctx, userID, modelID, pricing, usage); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("usage recording failed")
	}
}

func (s *Service) validate(req llm.ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidRequest)
	}
	total := 0
	for i, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidRequest, i, m.Role)
		}
		total += len(m.Content)
	}
	if s.maxContentLength > 0 && total > s.maxContentLength {
		return fmt.Errorf("%w: content length %d exceeds limit %d", ErrInvalidRequest, total, s.maxContentLength)
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f out of range [0, 2]", ErrInvalidRequest, req.Temperature)
	}
	return nil
}

// responseWindow is a bounded ring of the most recent completion
// durations. Memory stays constant no matter how long the process runs.
type responseWindow struct {
	mu      sync.Mutex
	samples [responseTimeWindow]time.Duration
	next    int
	count   int
}

func (w *responseWindow) add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = d
	w.next = (w.next + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

func (w *responseWindow) avg() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < w.count; i++ {
		sum += w.samples[i]
	}
	return sum / time.Duration(w.count)
}
