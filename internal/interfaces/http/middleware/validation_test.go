package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropship/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatedPayload struct {
	Name     string `json:"name" binding:"required,min=1,max=50"`
	Currency string `json:"currency" binding:"required,len=3"`
	Provider string `json:"provider" binding:"required,oneof=stripe paypal"`
}

func newValidationEngine() *gin.Engine {
	SetupValidator()
	engine := gin.New()
	engine.Use(RequestID())
	engine.POST("/payouts", func(c *gin.Context) {
		var req validatedPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req))
	})
	return engine
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	engine := newValidationEngine()

	body := `{"currency": "USDT", "provider": "wise"}`
	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	fields := make(map[string]string, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", fields["name"])
	assert.Equal(t, "Must be exactly 3 characters", fields["currency"])
	assert.Equal(t, "Must be one of: stripe paypal", fields["provider"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	engine := newValidationEngine()

	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestHandleValidationError_ValidPayloadPasses(t *testing.T) {
	engine := newValidationEngine()

	body := `{"name": "Main Store", "currency": "USD", "provider": "stripe"}`
	req := httptest.NewRequest(http.MethodPost, "/payouts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
