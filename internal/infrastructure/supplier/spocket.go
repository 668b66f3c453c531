package supplier

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SpocketAdapter places orders through the Spocket API
type SpocketAdapter struct {
	client *apiClient
}

// NewSpocketAdapter creates a Spocket supplier adapter
func NewSpocketAdapter(baseURL, apiKey string, limit float64, burst int) *SpocketAdapter {
	return &SpocketAdapter{
		client: newAPIClient("spocket.place_order", baseURL, apiKey, limit, burst),
	}
}

// SupplierCode returns the supplier this adapter handles
func (a *SpocketAdapter) SupplierCode() fulfillment.SupplierCode {
	return fulfillment.SupplierCodeSpocket
}

type spocketPlaceRequest struct {
	ExternalReference string              `json:"external_reference"`
	LineItems         []spocketOrderItem  `json:"line_items"`
	ShippingAddress   spocketShippingInfo `json:"shipping_address"`
}

type spocketOrderItem struct {
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
}

type spocketShippingInfo struct {
	FullName string `json:"full_name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

type spocketPlaceResponse struct {
	ID        string `json:"id"`
	TotalCost string `json:"total_cost"`
}

// PlaceOrder places an order with Spocket
func (a *SpocketAdapter) PlaceOrder(ctx context.Context, draft *fulfillment.PlacementDraft) (*fulfillment.Placement, error) {
	req := spocketPlaceRequest{
		ExternalReference: draft.Reference.String(),
		ShippingAddress: spocketShippingInfo{
			FullName: draft.RecipientName,
			Address1: draft.AddressL1,
			Address2: draft.AddressL2,
			City:     draft.City,
			State:    draft.Region,
			Zip:      draft.PostalCode,
			Country:  draft.Country,
			Phone:    draft.Phone,
		},
	}
	for _, item := range draft.Items {
		req.LineItems = append(req.LineItems, spocketOrderItem{
			VariantID: item.ProductRef,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
		})
	}

	var resp spocketPlaceResponse
	if err := a.client.doJSON(ctx, http.MethodPost, "/api/v1/orders", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, shared.NewPermanentExternalError("spocket.place_order", "response carried no id", nil)
	}

	cost := decimal.Zero
	if resp.TotalCost != "" {
		if parsed, err := decimal.NewFromString(resp.TotalCost); err == nil {
			cost = parsed
		}
	}
	return &fulfillment.Placement{SupplierNativeID: resp.ID, Cost: cost}, nil
}

type spocketStatusResponse struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// GetStatus retrieves the supplier-side fulfillment status
func (a *SpocketAdapter) GetStatus(ctx context.Context, supplierNativeID string) (*fulfillment.StatusReport, error) {
	var resp spocketStatusResponse
	path := "/api/v1/orders/" + url.PathEscape(supplierNativeID)
	if err := a.client.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	state, err := spocketState(resp.Status)
	if err != nil {
		return nil, err
	}
	return &fulfillment.StatusReport{State: state, TrackingNumber: resp.TrackingNumber}, nil
}

// Cancel requests cancellation of a supplier order
func (a *SpocketAdapter) Cancel(ctx context.Context, supplierNativeID string) (bool, error) {
	path := "/api/v1/orders/" + url.PathEscape(supplierNativeID) + "/cancel"
	err := a.client.doJSON(ctx, http.MethodPost, path, nil, nil)
	if err == nil {
		return true, nil
	}
	if shared.IsPermanent(err) {
		return false, nil
	}
	return false, err
}

func spocketState(status string) (fulfillment.State, error) {
	switch status {
	case "order_placed", "processing":
		return fulfillment.StatePlaced, nil
	case "shipped":
		return fulfillment.StateShipped, nil
	case "delivered":
		return fulfillment.StateDelivered, nil
	case "cancelled", "rejected":
		return fulfillment.StateFailed, nil
	default:
		return "", shared.NewPermanentExternalError("spocket.get_status", "unknown status "+status, nil)
	}
}

var _ fulfillment.SupplierAdapter = (*SpocketAdapter)(nil)
