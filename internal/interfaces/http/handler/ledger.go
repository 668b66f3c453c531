package handler

import (
	ledgerapp "github.com/dropship/backend/internal/application/ledger"
	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles settlement ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.Service) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores/:id")
	{
		stores.GET("/balance", h.GetBalance)
		stores.GET("/transactions", h.ListTransactions)
		stores.POST("/withdrawals", h.RequestWithdrawal)
		stores.POST("/reconcile", h.Reconcile)
	}
}

// RequestWithdrawalRequest is the request body for requesting a payout
type RequestWithdrawalRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,len=3"`
	Provider string          `json:"provider" binding:"required,oneof=stripe paypal payoneer wise"`
}

// BalanceResponse is the API shape of a store's settlement balance
type BalanceResponse struct {
	StoreID        string          `json:"store_id"`
	Currency       string          `json:"currency"`
	Available      decimal.Decimal `json:"available"`
	Pending        decimal.Decimal `json:"pending"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	UpdatedAt      string          `json:"updated_at"`
}

func toBalanceResponse(b *ledger.Balance) BalanceResponse {
	return BalanceResponse{
		StoreID:        b.StoreID.String(),
		Currency:       b.Currency,
		Available:      b.Available,
		Pending:        b.Pending,
		TotalWithdrawn: b.TotalWithdrawn,
		UpdatedAt:      formatTime(b.UpdatedAt),
	}
}

// TransactionResponse is the API shape of a ledger transaction
type TransactionResponse struct {
	ID             string          `json:"id"`
	StoreID        string          `json:"store_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Provider       string          `json:"provider,omitempty"`
	ProviderRef    string          `json:"provider_ref,omitempty"`
	Status         string          `json:"status"`
	RelatedOrderID *uuid.UUID      `json:"related_order_id,omitempty"`
	CompensatesID  *uuid.UUID      `json:"compensates_id,omitempty"`
	Memo           string          `json:"memo,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

func toTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             tx.ID.String(),
		StoreID:        tx.StoreID.String(),
		Type:           tx.Type.String(),
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		Provider:       tx.Provider,
		ProviderRef:    tx.ProviderRef,
		Status:         tx.Status.String(),
		RelatedOrderID: tx.RelatedOrderID,
		CompensatesID:  tx.CompensatesID,
		Memo:           tx.Memo,
		CreatedAt:      formatTime(tx.CreatedAt),
	}
}

// GetBalance returns the store's settlement balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBalanceResponse(balance))
}

// ListTransactions lists the store's ledger entries, newest first
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	transactions, total, err := h.ledgerService.ListTransactions(
		c.Request.Context(), storeID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, toTransactionResponse(&transactions[i]))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// RequestWithdrawal moves funds from available to pending and records the
// payout request. The provider confirms or fails it later via webhook.
func (h *LedgerHandler) RequestWithdrawal(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req RequestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		h.BadRequest(c, "Withdrawal amount must be positive")
		return
	}

	tx, err := h.ledgerService.RequestWithdrawal(c.Request.Context(), storeID, req.Amount, req.Currency, req.Provider)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTransactionResponse(tx))
}

// Reconcile folds the store's full transaction history and compares it
// against the cached balance
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	report, err := h.ledgerService.Reconcile(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
