package supplier

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AliExpressAdapter places dropshipping orders through the AliExpress
// open platform API
type AliExpressAdapter struct {
	client *apiClient
}

// NewAliExpressAdapter creates an AliExpress supplier adapter
func NewAliExpressAdapter(baseURL, apiKey string, limit float64, burst int) *AliExpressAdapter {
	return &AliExpressAdapter{
		client: newAPIClient("aliexpress.place_order", baseURL, apiKey, limit, burst),
	}
}

// SupplierCode returns the supplier this adapter handles
func (a *AliExpressAdapter) SupplierCode() fulfillment.SupplierCode {
	return fulfillment.SupplierCodeAliExpress
}

type aliexpressPlaceRequest struct {
	OutOrderID string                `json:"out_order_id"`
	Items      []aliexpressOrderItem `json:"product_items"`
	Address    aliexpressAddress     `json:"logistics_address"`
}

type aliexpressOrderItem struct {
	ProductID string `json:"product_id"`
	SKUAttr   string `json:"sku_attr"`
	Quantity  int    `json:"product_count"`
}

type aliexpressAddress struct {
	ContactPerson string `json:"contact_person"`
	Address       string `json:"address"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city"`
	Province      string `json:"province"`
	Zip           string `json:"zip"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}

type aliexpressPlaceResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount string `json:"total_amount"`
}

// PlaceOrder places an order with AliExpress. The supplier order ID is sent
// as out_order_id so a retried placement lands on the same upstream order.
func (a *AliExpressAdapter) PlaceOrder(ctx context.Context, draft *fulfillment.PlacementDraft) (*fulfillment.Placement, error) {
	req := aliexpressPlaceRequest{
		OutOrderID: draft.Reference.String(),
		Address: aliexpressAddress{
			ContactPerson: draft.RecipientName,
			Address:       draft.AddressL1,
			Address2:      draft.AddressL2,
			City:          draft.City,
			Province:      draft.Region,
			Zip:           draft.PostalCode,
			Country:       draft.Country,
			PhoneNumber:   draft.Phone,
		},
	}
	for _, item := range draft.Items {
		req.Items = append(req.Items, aliexpressOrderItem{
			ProductID: item.ProductRef,
			SKUAttr:   item.SKU,
			Quantity:  item.Quantity,
		})
	}

	var resp aliexpressPlaceResponse
	if err := a.client.doJSON(ctx, http.MethodPost, "/api/ds/order/create", req, &resp); err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, shared.NewPermanentExternalError("aliexpress.place_order", "response carried no order_id", nil)
	}

	cost := decimal.Zero
	if resp.TotalAmount != "" {
		parsed, err := decimal.NewFromString(resp.TotalAmount)
		if err == nil {
			cost = parsed
		}
	}
	return &fulfillment.Placement{SupplierNativeID: resp.OrderID, Cost: cost}, nil
}

type aliexpressStatusResponse struct {
	OrderStatus    string `json:"order_status"`
	TrackingNumber string `json:"tracking_number"`
}

// GetStatus retrieves the supplier-side fulfillment status
func (a *AliExpressAdapter) GetStatus(ctx context.Context, supplierNativeID string) (*fulfillment.StatusReport, error) {
	var resp aliexpressStatusResponse
	path := "/api/ds/order/" + url.PathEscape(supplierNativeID)
	if err := a.client.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	state, err := aliexpressState(resp.OrderStatus)
	if err != nil {
		return nil, err
	}
	return &fulfillment.StatusReport{State: state, TrackingNumber: resp.TrackingNumber}, nil
}

// Cancel requests cancellation of a supplier order
func (a *AliExpressAdapter) Cancel(ctx context.Context, supplierNativeID string) (bool, error) {
	path := "/api/ds/order/" + url.PathEscape(supplierNativeID) + "/cancel"
	err := a.client.doJSON(ctx, http.MethodPost, path, nil, nil)
	if err == nil {
		return true, nil
	}
	if shared.IsPermanent(err) {
		// Already shipped or otherwise past the point of no return.
		return false, nil
	}
	return false, err
}

func aliexpressState(status string) (fulfillment.State, error) {
	switch status {
	case "PLACE_ORDER_SUCCESS", "WAIT_SELLER_SEND_GOODS", "SELLER_PART_SEND_GOODS":
		return fulfillment.StatePlaced, nil
	case "WAIT_BUYER_ACCEPT_GOODS":
		return fulfillment.StateShipped, nil
	case "FINISH":
		return fulfillment.StateDelivered, nil
	case "IN_CANCEL", "CLOSED":
		return fulfillment.StateFailed, nil
	default:
		return "", shared.NewPermanentExternalError("aliexpress.get_status", "unknown order_status "+status, nil)
	}
}

var _ fulfillment.SupplierAdapter = (*AliExpressAdapter)(nil)
