package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alphamind/gateway/internal/infra/llm"
)

func TestChatStream_FramesChunksWithSentinel(t *testing.T) {
	svc := &fakeChatService{chunks: []llm.StreamChunk{
		{ID: "c1", Model: "m", Choices: []llm.DeltaChoice{{Delta: llm.Message{Content: "he"}}}},
		{ID: "c2", Model: "m", Choices: []llm.DeltaChoice{{Delta: llm.Message{Content: "llo"}}}},
		{Model: "m", Done: true},
	}}

	rec := postChat(t, NewChatStreamHandler(svc).ChatStream, validChatBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	events := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	if len(events) != 3 {
		t.Fatalf("expected 3 SSE events, got %d: %q", len(events), body)
	}
	for _, ev := range events {
		if !strings.HasPrefix(ev, "data: ") {
			t.Errorf("event missing data prefix: %q", ev)
		}
	}
	if events[len(events)-1] != "data: [DONE]" {
		t.Errorf("last event must be the [DONE] sentinel, got %q", events[len(events)-1])
	}
}

func TestChatStream_FailedStreamOmitsSentinel(t *testing.T) {
	// Channel closes without a terminal marker: the upstream died mid-way.
	svc := &fakeChatService{chunks: []llm.StreamChunk{
		{ID: "c1", Model: "m", Choices: []llm.DeltaChoice{{Delta: llm.Message{Content: "partial"}}}},
	}}

	rec := postChat(t, NewChatStreamHandler(svc).ChatStream, validChatBody)

	if strings.Contains(rec.Body.String(), "[DONE]") {
		t.Errorf("failed stream must not carry the sentinel: %q", rec.Body.String())
	}
}

func TestChatStream_ResolutionErrorIsJSON(t *testing.T) {
	svc := &fakeChatService{streamErr: fmt.Errorf("model m: %w", llm.ErrNoModelsAvailable)}

	rec := postChat(t, NewChatStreamHandler(svc).ChatStream, validChatBody)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any byte streamed, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("pre-stream errors use the JSON envelope, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestListModels_EmptyCatalogIsEmptyArray(t *testing.T) {
	reg := &staticCatalog{}

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()
	NewModelsHandler(reg).ListModels(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("empty catalog must serialize as a bare empty array, got %s", body)
	}
}

// The catalog response is a bare JSON array of descriptors — clients
// decode it directly into []ModelDescriptor, with no envelope around it.
func TestListModels_ReturnsBareDescriptorArray(t *testing.T) {
	reg := &staticCatalog{models: []llm.ModelDescriptor{
		{ID: "openai/gpt-4", Provider: "openrouter", IsAvailable: true},
		{ID: "llama-3-8b-instruct", Provider: "vllm", IsLocal: true, IsAvailable: true},
	}}

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()
	NewModelsHandler(reg).ListModels(rec, req)

	var models []llm.ModelDescriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatalf("response must decode as []ModelDescriptor: %v (body %s)", err, rec.Body.String())
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(models))
	}
	if models[0].ID != "openai/gpt-4" || models[1].ID != "llama-3-8b-instruct" {
		t.Errorf("unexpected catalog: %+v", models)
	}
}

type staticCatalog struct {
	models []llm.ModelDescriptor
}

func (s *staticCatalog) List() []llm.ModelDescriptor { return s.models }
