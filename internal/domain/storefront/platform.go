package storefront

import (
	"context"
	"errors"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
)

var (
	// ErrPlatformNotRegistered is returned when no adapter serves a platform
	ErrPlatformNotRegistered = errors.New("storefront: platform adapter not registered")
	// ErrOrderNotFoundOnPlatform is returned when the platform has no such order
	ErrOrderNotFoundOnPlatform = errors.New("storefront: order not found on platform")
	// ErrMalformedPayload is returned when a platform payload cannot be parsed
	ErrMalformedPayload = errors.New("storefront: malformed platform payload")
)

// PlatformAdapter is the port each storefront integration must satisfy.
// It maps provider-native order payloads into the canonical draft shape,
// including the provider-side revision marker used for staleness checks.
type PlatformAdapter interface {
	// Platform returns the storefront platform this adapter handles
	Platform() store.Platform

	// FetchOrder retrieves the provider-native payload for an order
	FetchOrder(ctx context.Context, storeID uuid.UUID, nativeID string) ([]byte, error)

	// Parse maps a provider-native payload into a canonical order draft.
	// Returns ErrMalformedPayload (wrapped) when the payload cannot be mapped.
	Parse(payload []byte) (*order.Draft, error)
}

// PlatformRegistry provides access to the configured platform adapters
type PlatformRegistry interface {
	// GetAdapter returns the adapter for a platform
	GetAdapter(platform store.Platform) (PlatformAdapter, error)

	// ListAdapters returns all registered adapters
	ListAdapters() []PlatformAdapter
}
