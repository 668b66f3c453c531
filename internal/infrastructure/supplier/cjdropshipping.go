package supplier

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CJDropshippingAdapter places orders through the CJDropshipping API
type CJDropshippingAdapter struct {
	client *apiClient
}

// NewCJDropshippingAdapter creates a CJDropshipping supplier adapter
func NewCJDropshippingAdapter(baseURL, apiKey string, limit float64, burst int) *CJDropshippingAdapter {
	return &CJDropshippingAdapter{
		client: newAPIClient("cjdropshipping.place_order", baseURL, apiKey, limit, burst),
	}
}

// SupplierCode returns the supplier this adapter handles
func (a *CJDropshippingAdapter) SupplierCode() fulfillment.SupplierCode {
	return fulfillment.SupplierCodeCJDropshipping
}

type cjPlaceRequest struct {
	OrderNumber   string        `json:"orderNumber"`
	ShippingName  string        `json:"shippingCustomerName"`
	ShippingPhone string        `json:"shippingPhone,omitempty"`
	Address       string        `json:"shippingAddress"`
	Address2      string        `json:"shippingAddress2,omitempty"`
	City          string        `json:"shippingCity"`
	Province      string        `json:"shippingProvince"`
	Zip           string        `json:"shippingZip"`
	CountryCode   string        `json:"shippingCountryCode"`
	Products      []cjOrderItem `json:"products"`
}

type cjOrderItem struct {
	VID      string `json:"vid"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type cjPlaceResponse struct {
	Data struct {
		OrderID     string  `json:"orderId"`
		OrderAmount float64 `json:"orderAmount"`
	} `json:"data"`
}

// PlaceOrder places an order with CJDropshipping, using the supplier order
// ID as orderNumber so retried placements dedupe upstream
func (a *CJDropshippingAdapter) PlaceOrder(ctx context.Context, draft *fulfillment.PlacementDraft) (*fulfillment.Placement, error) {
	req := cjPlaceRequest{
		OrderNumber:   draft.Reference.String(),
		ShippingName:  draft.RecipientName,
		ShippingPhone: draft.Phone,
		Address:       draft.AddressL1,
		Address2:      draft.AddressL2,
		City:          draft.City,
		Province:      draft.Region,
		Zip:           draft.PostalCode,
		CountryCode:   draft.Country,
	}
	for _, item := range draft.Items {
		req.Products = append(req.Products, cjOrderItem{
			VID:      item.ProductRef,
			SKU:      item.SKU,
			Quantity: item.Quantity,
		})
	}

	var resp cjPlaceResponse
	if err := a.client.doJSON(ctx, http.MethodPost, "/api2.0/v1/shopping/order/createOrder", req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.OrderID == "" {
		return nil, shared.NewPermanentExternalError("cjdropshipping.place_order", "response carried no orderId", nil)
	}
	return &fulfillment.Placement{
		SupplierNativeID: resp.Data.OrderID,
		Cost:             decimal.NewFromFloat(resp.Data.OrderAmount),
	}, nil
}

type cjStatusResponse struct {
	Data struct {
		OrderStatus    string `json:"orderStatus"`
		TrackingNumber string `json:"trackNumber"`
	} `json:"data"`
}

// GetStatus retrieves the supplier-side fulfillment status
func (a *CJDropshippingAdapter) GetStatus(ctx context.Context, supplierNativeID string) (*fulfillment.StatusReport, error) {
	var resp cjStatusResponse
	path := "/api2.0/v1/shopping/order/getOrderDetail?orderId=" + url.QueryEscape(supplierNativeID)
	if err := a.client.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	state, err := cjState(resp.Data.OrderStatus)
	if err != nil {
		return nil, err
	}
	return &fulfillment.StatusReport{State: state, TrackingNumber: resp.Data.TrackingNumber}, nil
}

// Cancel requests cancellation of a supplier order
func (a *CJDropshippingAdapter) Cancel(ctx context.Context, supplierNativeID string) (bool, error) {
	body := map[string]string{"orderId": supplierNativeID}
	err := a.client.doJSON(ctx, http.MethodPost, "/api2.0/v1/shopping/order/deleteOrder", body, nil)
	if err == nil {
		return true, nil
	}
	if shared.IsPermanent(err) {
		return false, nil
	}
	return false, err
}

func cjState(status string) (fulfillment.State, error) {
	switch status {
	case "CREATED", "IN_CART", "UNPAID", "UNSHIPPED":
		return fulfillment.StatePlaced, nil
	case "SHIPPED":
		return fulfillment.StateShipped, nil
	case "DELIVERED":
		return fulfillment.StateDelivered, nil
	case "CANCELLED":
		return fulfillment.StateFailed, nil
	default:
		return "", shared.NewPermanentExternalError("cjdropshipping.get_status", "unknown orderStatus "+status, nil)
	}
}

var _ fulfillment.SupplierAdapter = (*CJDropshippingAdapter)(nil)
