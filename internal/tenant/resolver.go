package tenant

import (
	"context"
	"errors"

	"school_asset_server/internal/models"
	"school_asset_server/internal/repository"
	"school_asset_server/pkg/colors"
)

var ErrUnknownTenant = errors.New("unknown tenant")

// Directory looks up registered tenants by id.
type Directory interface {
	Lookup(ctx context.Context, id string) (*models.Tenant, error)
}

// Resolver picks the store for one request.
type Resolver struct {
	registry  *Registry
	directory Directory
	fallback  *Config
}

// NewResolver builds a resolver. directory and fallback may be nil.
func NewResolver(registry *Registry, directory Directory, fallback *Config) *Resolver {
	return &Resolver{registry: registry, directory: directory, fallback: fallback}
}

// Resolve returns the store for the request and the tenant key it belongs
// to, in this order: the tenant named by overrideID, the request's own
// config, the deployment fallback config, and finally the unconfigured store
// with an empty key. The store is never nil. Failures to build a store are
// logged and fall through to the next candidate.
func (r *Resolver) Resolve(ctx context.Context, overrideID string, cfg *Config) (repository.Store, string) {
	if overrideID != "" && r.directory != nil {
		t, err := r.directory.Lookup(ctx, overrideID)
		switch {
		case err != nil:
			colors.PrintWarning("Tenant %s lookup failed: %v", overrideID, err)
		case t != nil:
			if s, key, ok := r.build(ctx, FromTenant(t)); ok {
				return s, key
			}
		default:
			colors.PrintDebug("Tenant %s is not registered", overrideID)
		}
	}
	if cfg != nil {
		if s, key, ok := r.build(ctx, *cfg); ok {
			return s, key
		}
	}
	if r.fallback != nil {
		if s, key, ok := r.build(ctx, *r.fallback); ok {
			return s, key
		}
	}
	return repository.Unconfigured{}, ""
}

func (r *Resolver) build(ctx context.Context, cfg Config) (repository.Store, string, bool) {
	s, err := r.registry.Get(ctx, cfg)
	if err != nil {
		colors.PrintWarning("Backend unavailable: %v", err)
		return nil, "", false
	}
	return s, cfg.Key(), true
}

type storeKey struct{}

// WithStore attaches the request's store to ctx.
func WithStore(ctx context.Context, s repository.Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// StoreFrom returns the store attached to ctx, or the unconfigured store.
func StoreFrom(ctx context.Context) repository.Store {
	if s, ok := ctx.Value(storeKey{}).(repository.Store); ok && s != nil {
		return s
	}
	return repository.Unconfigured{}
}

type scopeKey struct{}

// WithScope tags ctx with the tenant identity used to route change events.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the tenant identity attached to ctx, or "".
func ScopeFrom(ctx context.Context) string {
	s, _ := ctx.Value(scopeKey{}).(string)
	return s
}
