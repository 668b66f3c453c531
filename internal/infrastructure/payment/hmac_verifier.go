// Package payment provides webhook signature verification for the payment
// and storefront providers that deliver events to the gateway.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/dropship/backend/internal/domain/webhook"
)

// HMACVerifier checks an HMAC-SHA256 signature over the raw request body,
// the scheme Shopify, WooCommerce and most payment providers publish.
// Both base64 and hex encodings of the digest are accepted.
type HMACVerifier struct {
	source string
	secret []byte
}

// NewHMACVerifier creates a verifier for a source with its shared secret
func NewHMACVerifier(source, secret string) *HMACVerifier {
	return &HMACVerifier{source: source, secret: []byte(secret)}
}

// Source returns the provider name this verifier handles
func (v *HMACVerifier) Source() string {
	return v.source
}

// Verify returns ErrBadSignature on mismatch and nil on success
func (v *HMACVerifier) Verify(_ context.Context, rawBody []byte, signatureHeader string) error {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return webhook.ErrBadSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if decoded, err := base64.StdEncoding.DecodeString(signatureHeader); err == nil {
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	if decoded, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, "sha256=")); err == nil {
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return webhook.ErrBadSignature
}

var _ webhook.SignatureVerifier = (*HMACVerifier)(nil)
