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

const wooOrderPath = "/wp-json/wc/v3/orders/%s"

// WooCommerceAdapter maps WooCommerce REST order payloads into canonical
// drafts. Modification timestamps come from date_modified_gmt, which Woo
// emits without a timezone suffix.
type WooCommerceAdapter struct {
	transport Transport
}

// NewWooCommerceAdapter creates a WooCommerce platform adapter
func NewWooCommerceAdapter(transport Transport) *WooCommerceAdapter {
	return &WooCommerceAdapter{transport: transport}
}

// Platform returns the platform this adapter handles
func (a *WooCommerceAdapter) Platform() store.Platform {
	return store.PlatformWooCommerce
}

// FetchOrder retrieves the provider-native payload for an order
func (a *WooCommerceAdapter) FetchOrder(ctx context.Context, storeID uuid.UUID, nativeID string) ([]byte, error) {
	payload, err := a.transport.Get(ctx, storeID, fmt.Sprintf(wooOrderPath, nativeID))
	if errors.Is(err, ErrTransportNotFound) {
		return nil, storefront.ErrOrderNotFoundOnPlatform
	}
	return payload, err
}

// Parse maps a WooCommerce order payload into a canonical draft
func (a *WooCommerceAdapter) Parse(payload []byte) (*order.Draft, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("invalid JSON")
	}
	root := gjson.ParseBytes(payload)

	externalID := root.Get("id").String()
	if externalID == "" || externalID == "0" {
		return nil, malformed("missing order id")
	}
	revision, err := timeRevision(root.Get("date_modified_gmt").String())
	if err != nil {
		return nil, err
	}

	currency := valueobject.Currency(root.Get("currency").String())
	total, err := valueobject.NewMoneyFromString(root.Get("total").String(), currency)
	if err != nil {
		return nil, malformed("bad total: %v", err)
	}

	paymentStatus, err := wooPaymentStatus(root.Get("status").String())
	if err != nil {
		return nil, err
	}

	billing := root.Get("billing")
	shipping := root.Get("shipping")
	customer := order.CustomerContact{
		Name:       strings.TrimSpace(shipping.Get("first_name").String() + " " + shipping.Get("last_name").String()),
		Email:      billing.Get("email").String(),
		Phone:      billing.Get("phone").String(),
		AddressL1:  shipping.Get("address_1").String(),
		AddressL2:  shipping.Get("address_2").String(),
		City:       shipping.Get("city").String(),
		Region:     shipping.Get("state").String(),
		PostalCode: shipping.Get("postcode").String(),
		Country:    shipping.Get("country").String(),
	}
	if customer.Name == "" {
		customer.Name = strings.TrimSpace(billing.Get("first_name").String() + " " + billing.Get("last_name").String())
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
			Title:      item.Get("name").String(),
			SupplierID: supplierHint(item.Get(`meta_data.#(key=="_supplier_id").value`)),
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

func wooPaymentStatus(status string) (order.PaymentStatus, error) {
	switch status {
	case "pending", "on-hold":
		return order.PaymentStatusPending, nil
	case "processing", "completed":
		return order.PaymentStatusPaid, nil
	case "refunded":
		return order.PaymentStatusRefunded, nil
	case "cancelled", "failed", "trash":
		return order.PaymentStatusCancelled, nil
	default:
		return "", malformed("unknown order status %q", status)
	}
}

var _ storefront.PlatformAdapter = (*WooCommerceAdapter)(nil)
