package handler

import (
	"io"

	webhookapp "github.com/dropship/backend/internal/application/webhook"
	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// signatureHeaders maps a webhook source to the header its provider
// signs deliveries with. Sources not listed here fall back to
// X-Webhook-Signature.
var signatureHeaders = map[string]string{
	"stripe":      "Stripe-Signature",
	"shopify":     "X-Shopify-Hmac-Sha256",
	"woocommerce": "X-WC-Webhook-Signature",
	"ebay":        "X-Ebay-Signature",
	"paypal":      "Paypal-Transmission-Sig",
}

const defaultSignatureHeader = "X-Webhook-Signature"

// WebhookHandler handles webhook ingestion and the failed-event admin API
type WebhookHandler struct {
	BaseHandler
	ingest    *webhookapp.IngestService
	processor *webhookapp.Processor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingest *webhookapp.IngestService, processor *webhookapp.Processor) *WebhookHandler {
	return &WebhookHandler{
		ingest:    ingest,
		processor: processor,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:source", h.Receive)

	events := rg.Group("/webhook-events")
	{
		events.GET("/failed", h.ListFailed)
		events.POST("/:id/retry", h.Retry)
	}
}

// WebhookEventResponse is the API shape of a stored webhook event
type WebhookEventResponse struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	EventType     string     `json:"event_type"`
	DedupKey      string     `json:"dedup_key"`
	StoreID       *uuid.UUID `json:"store_id,omitempty"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attempt_count"`
	MaxAttempts   int        `json:"max_attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt *string    `json:"next_attempt_at,omitempty"`
	ReceivedAt    string     `json:"received_at"`
	ProcessedAt   *string    `json:"processed_at,omitempty"`
}

func toWebhookEventResponse(e *webhook.Event) WebhookEventResponse {
	resp := WebhookEventResponse{
		ID:           e.ID.String(),
		Source:       e.Source,
		EventType:    e.EventType,
		DedupKey:     e.DedupKey,
		StoreID:      e.StoreID,
		Status:       e.Status.String(),
		AttemptCount: e.AttemptCount,
		MaxAttempts:  e.MaxAttempts,
		LastError:    e.LastError,
		ReceivedAt:   formatTime(e.ReceivedAt),
	}
	resp.NextAttemptAt = formatTimePtr(e.NextAttemptAt)
	resp.ProcessedAt = formatTimePtr(e.ProcessedAt)
	return resp
}

// Receive accepts a provider webhook delivery. The response tells the
// provider only whether the delivery was accepted; interpretation happens
// asynchronously. Replays of an already seen delivery return 200 so the
// provider stops redelivering.
func (h *WebhookHandler) Receive(c *gin.Context) {
	source := c.Param("source")

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(rawBody) == 0 {
		h.BadRequest(c, "Request body is empty")
		return
	}

	header := signatureHeaders[source]
	if header == "" {
		header = defaultSignatureHeader
	}
	signature := c.GetHeader(header)

	var storeID *uuid.UUID
	if raw := c.Query("store_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid store_id")
			return
		}
		storeID = &id
	}

	result, err := h.ingest.Ingest(c.Request.Context(), source, signature, rawBody, storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListFailed lists webhook events that exhausted their attempts
func (h *WebhookHandler) ListFailed(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	events, total, err := h.processor.NeedsAttention(c.Request.Context(), req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]WebhookEventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toWebhookEventResponse(e))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// Retry requeues a failed webhook event for another processing round
func (h *WebhookHandler) Retry(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid event ID")
		return
	}

	event, err := h.processor.RetryFailed(c.Request.Context(), eventID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toWebhookEventResponse(event))
}
