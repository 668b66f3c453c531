package handler

import (
	fulfillapp "github.com/dropship/backend/internal/application/fulfillment"
	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHandler handles canonical order and fulfillment API endpoints
type OrderHandler struct {
	BaseHandler
	orderRepo   order.Repository
	fulfillment *fulfillapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderRepo order.Repository, fulfillmentService *fulfillapp.Service) *OrderHandler {
	return &OrderHandler{
		orderRepo:   orderRepo,
		fulfillment: fulfillmentService,
	}
}

// RegisterRoutes registers order and fulfillment routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stores/:id/orders", h.ListByStore)

	orders := rg.Group("/orders")
	{
		orders.GET("/:id", h.Get)
		orders.POST("/:id/dispatch", h.Dispatch)
		orders.POST("/:id/cancel", h.Cancel)
		orders.GET("/:id/supplier-orders", h.ListSupplierOrders)
		orders.POST("/dispatch", h.BulkDispatch)
	}

	supplierOrders := rg.Group("/supplier-orders")
	{
		supplierOrders.POST("/:id/retry", h.RetryFailed)
		supplierOrders.POST("/:id/poll", h.PollStatus)
	}
}

// ListOrdersRequest holds the query parameters for listing orders
type ListOrdersRequest struct {
	dto.ListRequest
	PaymentStatus     string `form:"payment_status" binding:"omitempty,oneof=PENDING PAID REFUNDED CANCELLED"`
	FulfillmentStatus string `form:"fulfillment_status" binding:"omitempty,oneof=UNFULFILLED DISPATCHING PARTIAL FULFILLED QUOTA_EXCEEDED"`
}

// CancelOrderRequest is the request body for cancelling fulfillment
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// BulkDispatchRequest is the request body for dispatching several orders
type BulkDispatchRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids" binding:"required,min=1,max=100"`
}

// LineItemResponse is the API shape of an order line item
type LineItemResponse struct {
	ProductRef string          `json:"product_ref"`
	SKU        string          `json:"sku"`
	Title      string          `json:"title"`
	SupplierID string          `json:"supplier_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// OrderResponse is the API shape of a canonical order
type OrderResponse struct {
	ID                string                `json:"id"`
	StoreID           string                `json:"store_id"`
	ExternalOrderID   string                `json:"external_order_id"`
	Customer          order.CustomerContact `json:"customer"`
	Items             []LineItemResponse    `json:"items"`
	Total             decimal.Decimal       `json:"total"`
	Currency          string                `json:"currency"`
	PaymentStatus     string                `json:"payment_status"`
	FulfillmentStatus string                `json:"fulfillment_status"`
	ProviderRevision  int64                 `json:"provider_revision"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]LineItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineItemResponse{
			ProductRef: item.ProductRef,
			SKU:        item.SKU,
			Title:      item.Title,
			SupplierID: item.SupplierID.String(),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.LineTotal(),
		})
	}
	return OrderResponse{
		ID:                o.ID.String(),
		StoreID:           o.StoreID.String(),
		ExternalOrderID:   o.ExternalOrderID,
		Customer:          o.Customer,
		Items:             items,
		Total:             o.Total.Amount(),
		Currency:          string(o.Total.Currency()),
		PaymentStatus:     o.PaymentStatus.String(),
		FulfillmentStatus: o.FulfillmentStatus.String(),
		ProviderRevision:  o.ProviderRevision,
		CreatedAt:         formatTime(o.CreatedAt),
		UpdatedAt:         formatTime(o.UpdatedAt),
	}
}

// SupplierOrderResponse is the API shape of a supplier-side order
type SupplierOrderResponse struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	StoreID          string          `json:"store_id"`
	SupplierID       string          `json:"supplier_id"`
	SupplierNativeID string          `json:"supplier_native_id,omitempty"`
	State            string          `json:"state"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	Cost             decimal.Decimal `json:"cost"`
	AttemptCount     int             `json:"attempt_count"`
	LastError        string          `json:"last_error,omitempty"`
	PlacedAt         *string         `json:"placed_at,omitempty"`
	ShippedAt        *string         `json:"shipped_at,omitempty"`
	DeliveredAt      *string         `json:"delivered_at,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

func toSupplierOrderResponse(so *fulfillment.SupplierOrder) SupplierOrderResponse {
	return SupplierOrderResponse{
		ID:               so.ID.String(),
		OrderID:          so.OrderID.String(),
		StoreID:          so.StoreID.String(),
		SupplierID:       so.SupplierID.String(),
		SupplierNativeID: so.SupplierNativeID,
		State:            so.State.String(),
		TrackingNumber:   so.TrackingNumber,
		Cost:             so.Cost,
		AttemptCount:     so.AttemptCount,
		LastError:        so.LastError,
		PlacedAt:         formatTimePtr(so.PlacedAt),
		ShippedAt:        formatTimePtr(so.ShippedAt),
		DeliveredAt:      formatTimePtr(so.DeliveredAt),
		CreatedAt:        formatTime(so.CreatedAt),
		UpdatedAt:        formatTime(so.UpdatedAt),
	}
}

// ListByStore lists a store's canonical orders with optional status filters
func (h *OrderHandler) ListByStore(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := order.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.PaymentStatus != "" {
		status := order.PaymentStatus(req.PaymentStatus)
		filter.PaymentStatus = &status
	}
	if req.FulfillmentStatus != "" {
		status := order.FulfillmentStatus(req.FulfillmentStatus)
		filter.FulfillmentStatus = &status
	}

	orders, total, err := h.orderRepo.FindByStore(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, toOrderResponse(&orders[i]))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// Get returns one canonical order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	o, err := h.orderRepo.FindByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(o))
}

// Dispatch places supplier orders for every supplier the order references
func (h *OrderHandler) Dispatch(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	result, err := h.fulfillment.Dispatch(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// BulkDispatch dispatches a batch of orders, isolating per-order failures
func (h *OrderHandler) BulkDispatch(c *gin.Context) {
	var req BulkDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result := h.fulfillment.BulkDispatch(c.Request.Context(), req.OrderIDs)
	h.Success(c, result)
}

// Cancel cancels the order's open supplier orders. Local state wins even
// when a supplier declines the remote cancellation.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.fulfillment.Cancel(c.Request.Context(), orderID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListSupplierOrders lists the supplier orders belonging to an order
func (h *OrderHandler) ListSupplierOrders(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	supplierOrders, err := h.fulfillment.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]SupplierOrderResponse, 0, len(supplierOrders))
	for i := range supplierOrders {
		responses = append(responses, toSupplierOrderResponse(&supplierOrders[i]))
	}
	h.Success(c, responses)
}

// RetryFailed re-dispatches a failed supplier order
func (h *OrderHandler) RetryFailed(c *gin.Context) {
	supplierOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid supplier order ID")
		return
	}

	result, err := h.fulfillment.RetryFailed(c.Request.Context(), supplierOrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// PollStatus asks the supplier for the current status of a supplier order
// and applies any progress to the local state
func (h *OrderHandler) PollStatus(c *gin.Context) {
	supplierOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid supplier order ID")
		return
	}

	so, err := h.fulfillment.AdvanceStatus(c.Request.Context(), supplierOrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSupplierOrderResponse(so))
}
