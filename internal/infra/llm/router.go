// Router — selects the adapter serving a requested model, with fallback.
// Selection is deterministic for a fixed registry snapshot: no randomness,
// catalog order breaks ties. Fallback happens only at resolution time,
// before any tokens are generated; mid-stream provider failure is never
// retried against a different provider.
package llm

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Router resolves a model id to the adapter that serves it.
type Router struct {
	registry *Registry
	log      zerolog.Logger
}

// NewRouter constructs a router backed by the given registry.
func NewRouter(registry *Registry, log zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Resolve picks the adapter for modelID.
//
//  1. Known and available id: its own adapter, unchanged id.
//  2. Unknown or unavailable: fallback over the remaining available
//     entries, local models first (privacy and cost preference), catalog
//     order breaking ties.
//  3. No candidate at all: ErrNoModelsAvailable — fatal for the request.
func (r *Router) Resolve(modelID string) (Provider, Decision, error) {
	if desc, err := r.registry.Lookup(modelID); err == nil && desc.IsAvailable {
		provider, ok := r.registry.ProviderFor(desc.Provider)
		if !ok {
			return nil, Decision{}, fmt.Errorf("model %s: provider %q not registered: %w", modelID, desc.Provider, ErrNoModelsAvailable)
		}
		return provider, Decision{Provider: provider.Name(), ModelID: modelID}, nil
	}

	fallback, ok := r.pickFallback(modelID)
	if !ok {
		return nil, Decision{}, fmt.Errorf("model %s: %w", modelID, ErrNoModelsAvailable)
	}

	provider, ok := r.registry.ProviderFor(fallback.Provider)
	if !ok {
		return nil, Decision{}, fmt.Errorf("model %s: provider %q not registered: %w", fallback.ID, fallback.Provider, ErrNoModelsAvailable)
	}

	r.log.Info().
		Str("requested", modelID).
		Str("substituted", fallback.ID).
		Msg("model unavailable, falling back")

	return provider, Decision{Provider: provider.Name(), ModelID: fallback.ID, Fallback: true}, nil
}

// pickFallback scans the snapshot once, remembering the first available
// local entry and the first available entry overall (requested id
// excluded). Local wins when present.
func (r *Router) pickFallback(excludeID string) (ModelDescriptor, bool) {
	var first ModelDescriptor
	haveFirst := false

	for _, m := range r.registry.List() {
		if m.ID == excludeID || !m.IsAvailable {
			continue
		}
		if m.IsLocal {
			return m, true
		}
		if !haveFirst {
			first = m
			haveFirst = true
		}
	}
	return first, haveFirst
}
