package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const ebayOrderPath = "/sell/fulfillment/v1/order/%s"

// EbayAdapter maps eBay Fulfillment API order payloads into canonical drafts
type EbayAdapter struct {
	transport Transport
}

// NewEbayAdapter creates an eBay platform adapter
func NewEbayAdapter(transport Transport) *EbayAdapter {
	return &EbayAdapter{transport: transport}
}

// Platform returns the platform this adapter handles
func (a *EbayAdapter) Platform() store.Platform {
	return store.PlatformEbay
}

// FetchOrder retrieves the provider-native payload for an order
func (a *EbayAdapter) FetchOrder(ctx context.Context, storeID uuid.UUID, nativeID string) ([]byte, error) {
	payload, err := a.transport.Get(ctx, storeID, fmt.Sprintf(ebayOrderPath, nativeID))
	if errors.Is(err, ErrTransportNotFound) {
		return nil, storefront.ErrOrderNotFoundOnPlatform
	}
	return payload, err
}

// Parse maps an eBay order payload into a canonical draft
func (a *EbayAdapter) Parse(payload []byte) (*order.Draft, error) {
	if !gjson.ValidBytes(payload) {
		return nil, malformed("invalid JSON")
	}
	root := gjson.ParseBytes(payload)

	externalID := root.Get("orderId").String()
	if externalID == "" {
		return nil, malformed("missing orderId")
	}
	revision, err := timeRevision(root.Get("lastModifiedDate").String())
	if err != nil {
		return nil, err
	}

	totalNode := root.Get("pricingSummary.total")
	currency := valueobject.Currency(totalNode.Get("currency").String())
	total, err := valueobject.NewMoneyFromString(totalNode.Get("value").String(), currency)
	if err != nil {
		return nil, malformed("bad pricingSummary.total: %v", err)
	}

	paymentStatus, err := ebayPaymentStatus(root.Get("orderPaymentStatus").String())
	if err != nil {
		return nil, err
	}

	shipTo := root.Get("fulfillmentStartInstructions.0.shippingStep.shipTo")
	address := shipTo.Get("contactAddress")
	customer := order.CustomerContact{
		Name:       shipTo.Get("fullName").String(),
		Email:      shipTo.Get("email").String(),
		Phone:      shipTo.Get("primaryPhone.phoneNumber").String(),
		AddressL1:  address.Get("addressLine1").String(),
		AddressL2:  address.Get("addressLine2").String(),
		City:       address.Get("city").String(),
		Region:     address.Get("stateOrProvince").String(),
		PostalCode: address.Get("postalCode").String(),
		Country:    address.Get("countryCode").String(),
	}
	if customer.Name == "" {
		customer.Name = root.Get("buyer.username").String()
	}

	var items []order.LineItem
	var itemErr error
	root.Get("lineItems").ForEach(func(_, item gjson.Result) bool {
		unitPrice, err := decimal.NewFromString(item.Get("lineItemCost.value").String())
		if err != nil {
			itemErr = malformed("bad lineItemCost: %v", err)
			return false
		}
		items = append(items, order.LineItem{
			ProductRef: item.Get("legacyItemId").String(),
			SKU:        item.Get("sku").String(),
			Title:      item.Get("title").String(),
			SupplierID: supplierHint(item.Get("supplierId")),
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

func ebayPaymentStatus(status string) (order.PaymentStatus, error) {
	switch status {
	case "PENDING":
		return order.PaymentStatusPending, nil
	case "PAID", "PARTIALLY_REFUNDED":
		return order.PaymentStatusPaid, nil
	case "FULLY_REFUNDED":
		return order.PaymentStatusRefunded, nil
	case "FAILED":
		return order.PaymentStatusCancelled, nil
	default:
		return "", malformed("unknown orderPaymentStatus %q", status)
	}
}

var _ storefront.PlatformAdapter = (*EbayAdapter)(nil)
