package handler

import (
	"github.com/dropship/backend/internal/application/ordersync"
	storeapp "github.com/dropship/backend/internal/application/store"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StoreHandler handles store connection and plan API endpoints
type StoreHandler struct {
	BaseHandler
	storeService *storeapp.Service
	syncService  *ordersync.Service
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(storeService *storeapp.Service, syncService *ordersync.Service) *StoreHandler {
	return &StoreHandler{
		storeService: storeService,
		syncService:  syncService,
	}
}

// RegisterRoutes registers store routes
func (h *StoreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores")
	{
		stores.POST("", h.Connect)
		stores.GET("", h.List)
		stores.GET("/:id", h.Get)
		stores.DELETE("/:id", h.Disconnect)
		stores.POST("/:id/suspend", h.Suspend)
		stores.PUT("/:id/plan", h.ChangePlan)
		stores.GET("/:id/usage", h.Usage)
		stores.POST("/:id/sync", h.Sync)
	}
}

// ConnectStoreRequest is the request body for connecting a store
type ConnectStoreRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	Platform       string `json:"platform" binding:"required"`
	CredentialsRef string `json:"credentials_ref" binding:"required,max=500"`
	PlanTier       string `json:"plan_tier" binding:"omitempty"`
}

// ChangePlanRequest is the request body for changing a store's plan
type ChangePlanRequest struct {
	PlanTier string `json:"plan_tier" binding:"required"`
}

// ListStoresRequest holds the query parameters for listing stores
type ListStoresRequest struct {
	IncludeDisconnected bool `form:"include_disconnected"`
}

// StoreResponse is the API shape of a connected store
type StoreResponse struct {
	ID             string  `json:"id"`
	AccountID      string  `json:"account_id"`
	Name           string  `json:"name"`
	Platform       string  `json:"platform"`
	PlanTier       string  `json:"plan_tier"`
	Status         string  `json:"status"`
	DisconnectedAt *string `json:"disconnected_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toStoreResponse(s *store.Store) StoreResponse {
	return StoreResponse{
		ID:             s.ID.String(),
		AccountID:      s.AccountID.String(),
		Name:           s.Name,
		Platform:       s.Platform.String(),
		PlanTier:       s.PlanTier.String(),
		Status:         s.Status.String(),
		DisconnectedAt: formatTimePtr(s.DisconnectedAt),
		CreatedAt:      formatTime(s.CreatedAt),
		UpdatedAt:      formatTime(s.UpdatedAt),
	}
}

// Connect connects a new storefront for the authenticated account
func (h *StoreHandler) Connect(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Account ID not found")
		return
	}

	var req ConnectStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.storeService.Connect(c.Request.Context(), storeapp.ConnectInput{
		AccountID:      accountID,
		Name:           req.Name,
		Platform:       store.Platform(req.Platform),
		CredentialsRef: req.CredentialsRef,
		PlanTier:       store.PlanTier(req.PlanTier),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toStoreResponse(st))
}

// List lists the account's stores
func (h *StoreHandler) List(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Account ID not found")
		return
	}

	var req ListStoresRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	stores, err := h.storeService.ListByAccount(c.Request.Context(), accountID, req.IncludeDisconnected)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]StoreResponse, 0, len(stores))
	for i := range stores {
		responses = append(responses, toStoreResponse(&stores[i]))
	}
	h.Success(c, responses)
}

// Get returns one store by ID
func (h *StoreHandler) Get(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	st, err := h.storeService.Get(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toStoreResponse(st))
}

// Disconnect disconnects a store. The store's orders and ledger history
// are retained.
func (h *StoreHandler) Disconnect(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	if err := h.storeService.Disconnect(c.Request.Context(), storeID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Suspend suspends a store, pausing sync and dispatch
func (h *StoreHandler) Suspend(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	if err := h.storeService.Suspend(c.Request.Context(), storeID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ChangePlan moves a store to a different plan tier
func (h *StoreHandler) ChangePlan(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.storeService.ChangePlan(c.Request.Context(), storeID, store.PlanTier(req.PlanTier))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toStoreResponse(st))
}

// Usage reports the store's consumption against its plan ceilings
func (h *StoreHandler) Usage(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	summary, err := h.storeService.Usage(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// Sync runs an on-demand order sync for the store
func (h *StoreHandler) Sync(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	report, err := h.syncService.SyncStore(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
