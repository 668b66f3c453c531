package storefront

import (
	"fmt"
	"sort"

	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
)

// Registry holds the configured platform adapters
type Registry struct {
	adapters map[store.Platform]storefront.PlatformAdapter
}

// NewRegistry creates a registry over the given adapters
func NewRegistry(adapters ...storefront.PlatformAdapter) *Registry {
	r := &Registry{adapters: make(map[store.Platform]storefront.PlatformAdapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[adapter.Platform()] = adapter
	}
	return r
}

// GetAdapter returns the adapter for a platform
func (r *Registry) GetAdapter(platform store.Platform) (storefront.PlatformAdapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storefront.ErrPlatformNotRegistered, platform)
	}
	return adapter, nil
}

// ListAdapters returns all registered adapters ordered by platform code
func (r *Registry) ListAdapters() []storefront.PlatformAdapter {
	out := make([]storefront.PlatformAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		out = append(out, adapter)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Platform() < out[j].Platform()
	})
	return out
}

var _ storefront.PlatformRegistry = (*Registry)(nil)
