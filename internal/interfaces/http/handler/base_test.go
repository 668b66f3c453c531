package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropship/backend/internal/application/ordersync"
	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/dropship/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	t.Run("from context", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Set(middleware.RequestIDKey, "ctx-request-id")
		assert.Equal(t, "ctx-request-id", getRequestID(c))
	})

	t.Run("from header when context empty", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id")
		assert.Equal(t, "header-request-id", getRequestID(c))
	})

	t.Run("empty when not set", func(t *testing.T) {
		c, _ := newTestContext(t)
		assert.Equal(t, "", getRequestID(c))
	})
}

func TestHandleError_StatusMapping(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "store not found",
			err:            store.ErrStoreNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "wrapped order not found",
			err:            fmt.Errorf("loading order: %w", order.ErrOrderNotFound),
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
		},
		{
			name:           "bad webhook signature",
			err:            webhook.ErrBadSignature,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   dto.ErrCodeBadSignature,
		},
		{
			name:           "unknown webhook source",
			err:            fmt.Errorf("%w: magento", webhook.ErrVerifierNotRegistered),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeBadRequest,
		},
		{
			name:           "sync already running",
			err:            ordersync.ErrSyncInProgress,
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrCodeSyncInProgress,
		},
		{
			name:           "quota exceeded",
			err:            shared.ErrQuotaExceeded,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeQuotaExceeded,
		},
		{
			name:           "insufficient balance",
			err:            shared.ErrInsufficientBalance,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeInsufficientBalance,
		},
		{
			name:           "concurrency conflict",
			err:            shared.ErrConcurrencyConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   dto.ErrCodeConcurrencyConflict,
		},
		{
			name:           "validation error",
			err:            shared.NewValidationError("quantity must be positive"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeValidation,
		},
		{
			name:           "transient upstream failure",
			err:            shared.NewTransientExternalError("shopify.FetchOrder", errors.New("status 503")),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   dto.ErrCodeUpstreamUnavailable,
		},
		{
			name:           "permanent upstream rejection",
			err:            shared.NewPermanentExternalError("aliexpress.PlaceOrder", "item discontinued", nil),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   dto.ErrCodeUpstreamRejected,
		},
		{
			name:           "typed domain error",
			err:            shared.NewDomainError("QUOTA_EXCEEDED", "monthly order quota reached"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeQuotaExceeded,
		},
		{
			name:           "unknown error",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(t)
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
		})
	}
}

func TestHandleError_NilIsNoop(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.String())
}

func TestHandleError_CarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)
	c.Set(middleware.RequestIDKey, "req-42")

	h.HandleError(c, store.ErrStoreNotFound)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}
