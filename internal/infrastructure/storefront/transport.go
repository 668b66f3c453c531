// Package storefront provides the platform adapter implementations that map
// provider-native order payloads into the canonical draft shape.
package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrTransportNotFound is returned when the platform API has no such resource
var ErrTransportNotFound = errors.New("storefront: resource not found")

// Transport performs authenticated reads against a platform API on behalf
// of a store. Implementations resolve the store's credentials themselves.
type Transport interface {
	Get(ctx context.Context, storeID uuid.UUID, path string) ([]byte, error)
}

// StaticTransport serves canned payloads keyed by request path. Real API
// transports plug in behind the same interface once platform credentials
// are provisioned for a store.
type StaticTransport struct {
	mu        sync.RWMutex
	responses map[string][]byte
}

// NewStaticTransport creates an empty static transport
func NewStaticTransport() *StaticTransport {
	return &StaticTransport{responses: make(map[string][]byte)}
}

// Set registers the payload returned for a path
func (t *StaticTransport) Set(path string, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[path] = payload
}

// Get returns the canned payload for a path
func (t *StaticTransport) Get(_ context.Context, _ uuid.UUID, path string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	payload, ok := t.responses[path]
	if !ok {
		return nil, ErrTransportNotFound
	}
	return payload, nil
}
