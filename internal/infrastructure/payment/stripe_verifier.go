package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/dropship/backend/internal/domain/webhook"
)

// StripeVerifier checks Stripe's Stripe-Signature header scheme: the header
// carries a timestamp and one or more v1 signatures, each an HMAC-SHA256 of
// "<timestamp>.<body>". Deliveries whose timestamp falls outside the
// tolerance window are rejected to blunt replay.
type StripeVerifier struct {
	source    string
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewStripeVerifier creates a stripe-scheme verifier
func NewStripeVerifier(source, secret string, tolerance time.Duration) *StripeVerifier {
	return &StripeVerifier{
		source:    source,
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Source returns the provider name this verifier handles
func (v *StripeVerifier) Source() string {
	return v.source
}

// Verify returns ErrBadSignature on mismatch, replay or a malformed header
func (v *StripeVerifier) Verify(_ context.Context, rawBody []byte, signatureHeader string) error {
	timestamp, signatures := parseStripeHeader(signatureHeader)
	if timestamp == 0 || len(signatures) == 0 {
		return webhook.ErrBadSignature
	}

	issued := time.Unix(timestamp, 0)
	if drift := v.now().Sub(issued); drift > v.tolerance || drift < -v.tolerance {
		return webhook.ErrBadSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	for _, signature := range signatures {
		decoded, err := hex.DecodeString(signature)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return webhook.ErrBadSignature
}

func parseStripeHeader(header string) (int64, []string) {
	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp, _ = strconv.ParseInt(value, 10, 64)
		case "v1":
			signatures = append(signatures, value)
		}
	}
	return timestamp, signatures
}

var _ webhook.SignatureVerifier = (*StripeVerifier)(nil)
