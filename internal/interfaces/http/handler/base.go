package handler

import (
	"errors"
	"net/http"

	fulfillsvc "github.com/dropship/backend/internal/application/fulfillment"
	"github.com/dropship/backend/internal/application/ordersync"
	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/ledger"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/dropship/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getAccountID extracts the account ID from JWT claims or returns an error
func getAccountID(c *gin.Context) (uuid.UUID, error) {
	accountIDStr := middleware.GetAccountID(c)
	if accountIDStr == "" {
		// Fallback to header for development
		accountIDStr = c.GetHeader("X-Account-ID")
	}
	if accountIDStr == "" {
		return uuid.Nil, errors.New("account ID not found in context")
	}
	return uuid.Parse(accountIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError sends a 400 response for a failed request binding, with
// per-field details when the failure came from struct validation
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// notFoundSentinels are the domain lookups that translate to a 404
var notFoundSentinels = []error{
	store.ErrStoreNotFound,
	order.ErrOrderNotFound,
	fulfillment.ErrSupplierOrderNotFound,
	webhook.ErrEventNotFound,
	ledger.ErrTransactionNotFound,
	ledger.ErrBalanceNotFound,
	shared.ErrNotFound,
}

// HandleError converts domain and application errors to HTTP responses.
// It understands the full error taxonomy: typed domain errors, validation
// errors, external call failures and the package-level sentinels.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode := dto.GetHTTPStatus(code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if shared.IsValidation(err) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
		return
	}

	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			h.NotFound(c, err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, webhook.ErrBadSignature):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeBadSignature, "Webhook signature verification failed")
	case errors.Is(err, webhook.ErrVerifierNotRegistered):
		h.BadRequest(c, err.Error())
	case errors.Is(err, webhook.ErrMissingDedupKey):
		h.BadRequest(c, err.Error())
	case errors.Is(err, ordersync.ErrSyncInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeSyncInProgress, err.Error())
	case errors.Is(err, fulfillsvc.ErrDispatchNotAllowed):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeBusinessRule, err.Error())
	case errors.Is(err, ledger.ErrWithdrawalNotRequested):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		h.Error(c, http.StatusConflict, dto.ErrCodeConcurrencyConflict, "The resource was modified concurrently, retry the request")
	case errors.Is(err, shared.ErrQuotaExceeded):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeQuotaExceeded, err.Error())
	case errors.Is(err, shared.ErrInsufficientBalance):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientBalance, err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		h.Error(c, http.StatusConflict, dto.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidPlatform),
		errors.Is(err, store.ErrMissingCredentialsRef):
		h.BadRequest(c, err.Error())
	case shared.IsTransient(err):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamUnavailable, "An upstream platform is temporarily unavailable")
	case shared.IsPermanent(err):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamRejected, "An upstream platform rejected the request")
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal,
			"An unexpected error occurred",
			requestID,
		))
	}
}
