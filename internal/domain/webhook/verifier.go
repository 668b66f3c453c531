package webhook

import (
	"context"
	"errors"
)

var (
	// ErrBadSignature is returned when the provider signature does not match
	ErrBadSignature = errors.New("webhook: bad signature")
	// ErrVerifierNotRegistered is returned when no verifier serves a source
	ErrVerifierNotRegistered = errors.New("webhook: no verifier registered for source")
)

// SignatureVerifier checks an inbound delivery against the provider's
// published signing scheme. The default scheme is HMAC-SHA256 over the raw
// body with a per-store shared secret; providers with a different scheme
// get their own implementation.
type SignatureVerifier interface {
	// Source returns the provider name this verifier handles
	Source() string

	// Verify returns ErrBadSignature on mismatch and nil on success
	Verify(ctx context.Context, rawBody []byte, signatureHeader string) error
}

// VerifierRegistry resolves the verifier for a webhook source
type VerifierRegistry interface {
	// GetVerifier returns the verifier for a source, or ErrVerifierNotRegistered
	GetVerifier(source string) (SignatureVerifier, error)
}
