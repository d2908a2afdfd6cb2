package tenant

import (
	"context"
	"fmt"
	"sync"

	"school_asset_server/internal/repository"
	"school_asset_server/pkg/colors"
)

// Factory builds the store for a validated config.
type Factory func(ctx context.Context, cfg Config) (repository.Store, error)

// Registry caches one store per tenant key. Entries are created on first use
// and never evicted or replaced.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]repository.Store
	factory Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		stores:  make(map[string]repository.Store),
		factory: factory,
	}
}

// Get returns the cached store for cfg, building it on first use.
func (r *Registry) Get(ctx context.Context, cfg Config) (repository.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key := cfg.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s, nil
	}
	s, err := r.factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create store for %s: %w", key, err)
	}
	r.stores[key] = s
	colors.PrintInfo("Registered %s backend for %s", s.Backend(), key)
	return s, nil
}

// Len reports how many stores are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
