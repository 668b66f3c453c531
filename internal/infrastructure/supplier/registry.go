package supplier

import (
	"fmt"
	"sort"

	"github.com/dropship/backend/internal/domain/fulfillment"
)

// Registry holds the configured supplier adapters
type Registry struct {
	adapters map[fulfillment.SupplierCode]fulfillment.SupplierAdapter
}

// NewRegistry creates a registry over the given adapters
func NewRegistry(adapters ...fulfillment.SupplierAdapter) *Registry {
	r := &Registry{adapters: make(map[fulfillment.SupplierCode]fulfillment.SupplierAdapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[adapter.SupplierCode()] = adapter
	}
	return r
}

// GetAdapter returns the adapter for a supplier code
func (r *Registry) GetAdapter(code fulfillment.SupplierCode) (fulfillment.SupplierAdapter, error) {
	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fulfillment.ErrSupplierNotRegistered, code)
	}
	return adapter, nil
}

// ListAdapters returns all registered adapters ordered by supplier code
func (r *Registry) ListAdapters() []fulfillment.SupplierAdapter {
	out := make([]fulfillment.SupplierAdapter, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		out = append(out, adapter)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SupplierCode() < out[j].SupplierCode()
	})
	return out
}

var _ fulfillment.SupplierRegistry = (*Registry)(nil)
