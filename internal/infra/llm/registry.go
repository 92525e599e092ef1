// Model registry — the catalog of known models across all adapters.
// Refresh replaces the whole snapshot atomically (copy-on-write) so
// concurrent readers always see a fully-formed catalog, never a torn one.
package llm

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// snapshot is one immutable generation of the catalog. order preserves
// adapter registration order then upstream catalog order, which keeps
// router fallback selection deterministic.
type snapshot struct {
	byID  map[string]ModelDescriptor
	order []ModelDescriptor
}

func emptySnapshot() *snapshot {
	return &snapshot{byID: map[string]ModelDescriptor{}}
}

// Registry aggregates the catalogs of all registered adapters.
type Registry struct {
	providers []Provider
	byName    map[string]Provider
	current   atomic.Pointer[snapshot]
	log       zerolog.Logger
}

// NewRegistry creates a registry over a fixed adapter set. The catalog is
// empty until the first Refresh.
func NewRegistry(providers []Provider, log zerolog.Logger) *Registry {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	r := &Registry{
		providers: providers,
		byName:    byName,
		log:       log.With().Str("component", "registry").Logger(),
	}
	r.current.Store(emptySnapshot())
	return r
}

// Refresh re-queries every adapter and atomically installs a new snapshot.
// A failing adapter contributes nothing but never blocks or clears the
// results of the others; partial refreshes are logged and kept.
// Duplicate ids keep the first adapter's entry.
func (r *Registry) Refresh(ctx context.Context) {
	next := emptySnapshot()

	for _, p := range r.providers {
		models, err := p.ListModels(ctx)
		if err != nil {
			r.log.Warn().Err(err).Str("provider", p.Name()).Msg("catalog refresh failed, keeping partial results")
			continue
		}
		for _, m := range models {
			if _, exists := next.byID[m.ID]; exists {
				r.log.Warn().Str("model", m.ID).Str("provider", p.Name()).Msg("duplicate model id ignored")
				continue
			}
			next.byID[m.ID] = m
			next.order = append(next.order, m)
		}
	}

	r.current.Store(next)
	r.log.Info().Int("models", len(next.order)).Msg("model catalog refreshed")
}

// List returns a copy of the current catalog in deterministic order.
// Two calls without an intervening Refresh return identical snapshots.
func (r *Registry) List() []ModelDescriptor {
	snap := r.current.Load()
	out := make([]ModelDescriptor, len(snap.order))
	copy(out, snap.order)
	return out
}

// Lookup returns the descriptor for id, or ErrModelNotFound.
func (r *Registry) Lookup(id string) (ModelDescriptor, error) {
	snap := r.current.Load()
	m, ok := snap.byID[id]
	if !ok {
		return ModelDescriptor{}, ErrModelNotFound
	}
	return m, nil
}

// ProviderFor returns the adapter registered under the given provider tag.
func (r *Registry) ProviderFor(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Len reports the number of models in the current snapshot.
func (r *Registry) Len() int {
	return len(r.current.Load().order)
}
