package payment

import (
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/webhook"
)

// Registry resolves the signature verifier for a webhook source
type Registry struct {
	verifiers map[string]webhook.SignatureVerifier
}

// NewRegistry creates a registry over the given verifiers
func NewRegistry(verifiers ...webhook.SignatureVerifier) *Registry {
	r := &Registry{verifiers: make(map[string]webhook.SignatureVerifier, len(verifiers))}
	for _, verifier := range verifiers {
		r.verifiers[verifier.Source()] = verifier
	}
	return r
}

// NewRegistryFromSecrets builds a registry from the configured per-source
// secrets. Stripe gets its timestamped scheme; every other source gets
// plain HMAC over the body.
func NewRegistryFromSecrets(secrets map[string]string, stripeTolerance time.Duration) *Registry {
	r := &Registry{verifiers: make(map[string]webhook.SignatureVerifier, len(secrets))}
	for source, secret := range secrets {
		if source == "stripe" {
			r.verifiers[source] = NewStripeVerifier(source, secret, stripeTolerance)
			continue
		}
		r.verifiers[source] = NewHMACVerifier(source, secret)
	}
	return r
}

// GetVerifier returns the verifier for a source
func (r *Registry) GetVerifier(source string) (webhook.SignatureVerifier, error) {
	verifier, ok := r.verifiers[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", webhook.ErrVerifierNotRegistered, source)
	}
	return verifier, nil
}

var _ webhook.VerifierRegistry = (*Registry)(nil)
