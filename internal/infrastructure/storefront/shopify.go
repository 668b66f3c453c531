package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const shopifyOrderPath = "/admin/api/2024-07/orders/%s.json"

// ShopifyAdapter maps Shopify REST order payloads into canonical drafts.
// Webhook deliveries carry the bare order object; the REST API wraps it
// in an "order" envelope. Both shapes are accepted.
type ShopifyAdapter struct {
	transport Transport
}

// NewShopifyAdapter creates a Shopify platform adapter
func NewShopifyAdapter(transport Transport) *ShopifyAdapter {
	return &ShopifyAdapter{transport: transport}
}

// Platform returns the platform this adapter handles
func (a *ShopifyAdapter) Platform() store.Platform {
	return store.PlatformShopify
}

// FetchOrder retrieves the provider-native payload for an order
func (a *ShopifyAdapter) FetchOrder(ctx context.Context, storeID uuid.UUID, nativeID string) ([]byte, error) {
	payload, err := a.transport.Get(ctx, storeID, fmt.Sprintf(shopifyOrderPath, nativeID))
	if errors.Is(err, ErrTransportNotFound) {
		return nil, storefront.ErrOrderNotFoundOnPlatform
	}
	return payload, err
}

// Parse maps a Shopify order payload into a canonical draft
func (a *ShopifyAdapter) Parse(payload []byte) (*order.Draft, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("invalid JSON")
	}
	root := gjson.GetBytes(payload, "order")
	if !root.Exists() {
		root = gjson.ParseBytes(payload)
	}

	externalID := root.Get("id").String()
	if externalID == "" {
		return nil, malformed("missing order id")
	}
	revision, err := timeRevision(root.Get("updated_at").String())
	if err != nil {
		return nil, err
	}

	currency := valueobject.Currency(root.Get("currency").String())
	total, err := valueobject.NewMoneyFromString(root.Get("total_price").String(), currency)
	if err != nil {
		return nil, malformed("bad total_price: %v", err)
	}

	paymentStatus, err := shopifyPaymentStatus(root.Get("financial_status").String())
	if err != nil {
		return nil, err
	}

	shipTo := root.Get("shipping_address")
	customer := order.CustomerContact{
		Name:       shipTo.Get("name").String(),
		Email:      root.Get("email").String(),
		Phone:      shipTo.Get("phone").String(),
		AddressL1:  shipTo.Get("address1").String(),
		AddressL2:  shipTo.Get("address2").String(),
		City:       shipTo.Get("city").String(),
		Region:     shipTo.Get("province").String(),
		PostalCode: shipTo.Get("zip").String(),
		Country:    shipTo.Get("country_code").String(),
	}
	if customer.Name == "" {
		buyer := root.Get("customer")
		customer.Name = strings.TrimSpace(buyer.Get("first_name").String() + " " + buyer.Get("last_name").String())
	}

	var items []order.LineItem
	var itemErr error
	root.Get("line_items").ForEach(func(_, item gjson.Result) bool {
		unitPrice, err := decimal.NewFromString(item.Get("price").String())
		if err != nil {
			itemErr = malformed("bad line item price: %v", err)
			return false
		}
		items = append(items, order.LineItem{
			ProductRef: item.Get("product_id").String(),
			SKU:        item.Get("sku").String(),
			Title:      item.Get("title").String(),
			SupplierID: supplierHint(item.Get(`properties.#(name=="supplier_id").value`)),
			Quantity:   int(item.Get("quantity").Int()),
			UnitPrice:  unitPrice,
		})
		return true
	})
	if itemErr != nil {
		return nil, itemErr
	}

	return &order.Draft{
		ExternalOrderID:  externalID,
		ProviderRevision: revision,
		Customer:         customer,
		Items:            items,
		Total:            total,
		PaymentStatus:    paymentStatus,
	}, nil
}

func shopifyPaymentStatus(status string) (order.PaymentStatus, error) {
	switch status {
	case "pending", "authorized":
		return order.PaymentStatusPending, nil
	case "paid", "partially_refunded":
		return order.PaymentStatusPaid, nil
	case "refunded":
		return order.PaymentStatusRefunded, nil
	case "voided":
		return order.PaymentStatusCancelled, nil
	default:
		return "", malformed("unknown financial_status %q", status)
	}
}

var _ storefront.PlatformAdapter = (*ShopifyAdapter)(nil)
