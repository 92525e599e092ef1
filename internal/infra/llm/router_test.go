package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphamind/gateway/internal/infra/logging"
)

func newTestRouter(t *testing.T, providers ...Provider) *Router {
	t.Helper()
	reg := NewRegistry(providers, logging.Nop())
	reg.Refresh(context.Background())
	return NewRouter(reg, logging.Nop())
}

func TestRouter_Resolve_ExactMatch(t *testing.T) {
	t.Parallel()

	cloud := &stubProvider{name: "cloud", models: []ModelDescriptor{desc("openai/gpt-4", "cloud", true, false)}}
	r := newTestRouter(t, cloud)

	p, decision, err := r.Resolve("openai/gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "cloud", p.Name())
	assert.Equal(t, "openai/gpt-4", decision.ModelID)
	assert.False(t, decision.Fallback)
}

func TestRouter_Resolve_UnknownPrefersLocal(t *testing.T) {
	t.Parallel()

	// catalog: {A: available, local}, {B: available, remote}; request C
	cloud := &stubProvider{name: "cloud", models: []ModelDescriptor{desc("B", "cloud", true, false)}}
	local := &stubProvider{name: "local", models: []ModelDescriptor{desc("A", "local", true, true)}}
	r := newTestRouter(t, cloud, local)

	p, decision, err := r.Resolve("C")
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, "A", decision.ModelID)
	assert.True(t, decision.Fallback)
}

func TestRouter_Resolve_UnavailableFallsBackToRemote(t *testing.T) {
	t.Parallel()

	cloud := &stubProvider{name: "cloud", models: []ModelDescriptor{
		desc("down", "cloud", false, false),
		desc("up-1", "cloud", true, false),
		desc("up-2", "cloud", true, false),
	}}
	r := newTestRouter(t, cloud)

	_, decision, err := r.Resolve("down")
	require.NoError(t, err)
	// no local candidate: first available remote in catalog order
	assert.Equal(t, "up-1", decision.ModelID)
	assert.True(t, decision.Fallback)
}

func TestRouter_Resolve_Deterministic(t *testing.T) {
	t.Parallel()

	cloud := &stubProvider{name: "cloud", models: []ModelDescriptor{
		desc("b-remote", "cloud", true, false),
	}}
	local := &stubProvider{name: "local", models: []ModelDescriptor{
		desc("l1", "local", true, true),
		desc("l2", "local", true, true),
	}}
	r := newTestRouter(t, cloud, local)

	for i := 0; i < 10; i++ {
		_, decision, err := r.Resolve("missing")
		require.NoError(t, err)
		assert.Equal(t, "l1", decision.ModelID, "fallback must be deterministic for a fixed snapshot")
	}
}

func TestRouter_Resolve_NoCandidates(t *testing.T) {
	t.Parallel()

	cloud := &stubProvider{name: "cloud", models: []ModelDescriptor{desc("down", "cloud", false, false)}}
	r := newTestRouter(t, cloud)

	_, _, err := r.Resolve("down")
	require.ErrorIs(t, err, ErrNoModelsAvailable)
	assert.Zero(t, cloud.calls, "no adapter must be invoked when resolution fails")
}

func TestRouter_Resolve_EmptyRegistry(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	_, _, err := r.Resolve("anything")
	assert.ErrorIs(t, err, ErrNoModelsAvailable)
}
