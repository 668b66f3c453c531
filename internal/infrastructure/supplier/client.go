// Package supplier provides the supplier adapter implementations used by
// the fulfillment dispatcher to place and track upstream orders.
package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropship/backend/internal/domain/shared"
	"golang.org/x/time/rate"
)

// apiClient is the REST client shared by the supplier adapters. Every call
// waits on the per-supplier rate limiter and classifies the response into
// the shared external error taxonomy before it reaches the dispatcher.
type apiClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	op      string
}

func newAPIClient(op, baseURL, apiKey string, limit float64, burst int) *apiClient {
	if burst < 1 {
		burst = 1
	}
	return &apiClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		op:      op,
	}
}

// doJSON issues one request and decodes the response body into out.
// Timeouts, connection failures, 408, 429 and 5xx responses come back as
// transient errors; any other non-2xx status is permanent.
func (c *apiClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return shared.NewTransientExternalError(c.op, err)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return shared.NewTransientExternalError(c.op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return shared.NewTransientExternalError(c.op, err)
	}

	if err := classifyStatus(c.op, resp.StatusCode, payload); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return shared.NewPermanentExternalError(c.op, "unparseable response body", err)
	}
	return nil
}

func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return shared.NewTransientExternalError(op,
			fmt.Errorf("supplier API returned %d: %s", status, truncate(body, 200)))
	default:
		return shared.NewPermanentExternalError(op,
			fmt.Sprintf("supplier API returned %d", status),
			fmt.Errorf("%s", truncate(body, 200)))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
