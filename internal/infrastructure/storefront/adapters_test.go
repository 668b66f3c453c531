package storefront

import (
	"context"
	"testing"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/store"
	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopifyOrderPayload = `{
  "id": 5523001234,
  "email": "ada@example.com",
  "updated_at": "2026-03-01T10:15:30Z",
  "currency": "USD",
  "total_price": "59.98",
  "financial_status": "paid",
  "customer": {"first_name": "Ada", "last_name": "Buyer"},
  "shipping_address": {
    "name": "Ada Buyer",
    "phone": "+1 555 0100",
    "address1": "1 Infinite Loop",
    "address2": "Suite 4",
    "city": "Cupertino",
    "province": "CA",
    "zip": "95014",
    "country_code": "US"
  },
  "line_items": [
    {
      "product_id": 88001,
      "sku": "SKU-1",
      "title": "Enamel Mug",
      "quantity": 2,
      "price": "29.99",
      "properties": [{"name": "supplier_id", "value": "7d3f9c4e-9a1b-4a5c-8d2e-0f1a2b3c4d5e"}]
    }
  ]
}`

func TestShopifyAdapter_Parse(t *testing.T) {
	adapter := NewShopifyAdapter(NewStaticTransport())

	draft, err := adapter.Parse([]byte(shopifyOrderPayload))
	require.NoError(t, err)

	assert.Equal(t, "5523001234", draft.ExternalOrderID)
	assert.Equal(t, order.PaymentStatusPaid, draft.PaymentStatus)
	assert.Equal(t, "59.98", draft.Total.Amount().String())
	assert.Equal(t, "Ada Buyer", draft.Customer.Name)
	assert.Equal(t, "Cupertino", draft.Customer.City)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "SKU-1", draft.Items[0].SKU)
	assert.Equal(t, 2, draft.Items[0].Quantity)
	assert.Equal(t, "7d3f9c4e-9a1b-4a5c-8d2e-0f1a2b3c4d5e", draft.Items[0].SupplierID.String())
	assert.Positive(t, draft.ProviderRevision)
	require.NoError(t, draft.Validate())
}

func TestShopifyAdapter_ParseRESTEnvelope(t *testing.T) {
	adapter := NewShopifyAdapter(NewStaticTransport())

	draft, err := adapter.Parse([]byte(`{"order": ` + shopifyOrderPayload + `}`))
	require.NoError(t, err)
	assert.Equal(t, "5523001234", draft.ExternalOrderID)
}

func TestShopifyAdapter_ParseRejectsMalformed(t *testing.T) {
	adapter := NewShopifyAdapter(NewStaticTransport())

	cases := map[string]string{
		"invalid json":   `{"id": 1,`,
		"missing id":     `{"updated_at": "2026-03-01T10:15:30Z"}`,
		"bad timestamp":  `{"id": 1, "updated_at": "yesterday"}`,
		"unknown status": `{"id": 1, "updated_at": "2026-03-01T10:15:30Z", "currency": "USD", "total_price": "1.00", "financial_status": "escrow"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.Parse([]byte(payload))
			assert.ErrorIs(t, err, storefront.ErrMalformedPayload)
		})
	}
}

func TestShopifyAdapter_FetchOrder(t *testing.T) {
	transport := NewStaticTransport()
	transport.Set("/admin/api/2024-07/orders/5523001234.json", []byte(shopifyOrderPayload))
	adapter := NewShopifyAdapter(transport)

	payload, err := adapter.FetchOrder(context.Background(), uuid.New(), "5523001234")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)

	_, err = adapter.FetchOrder(context.Background(), uuid.New(), "99")
	assert.ErrorIs(t, err, storefront.ErrOrderNotFoundOnPlatform)
}

const wooOrderPayload = `{
  "id": 7741,
  "status": "processing",
  "currency": "EUR",
  "total": "45.00",
  "date_modified_gmt": "2026-03-02T08:00:00",
  "billing": {"first_name": "Grace", "last_name": "Hopper", "email": "grace@example.com", "phone": "+33 1 23 45"},
  "shipping": {"first_name": "Grace", "last_name": "Hopper", "address_1": "12 Rue de Rivoli", "address_2": "", "city": "Paris", "state": "IDF", "postcode": "75001", "country": "FR"},
  "line_items": [
    {
      "product_id": 31,
      "sku": "SKU-9",
      "name": "Desk Lamp",
      "quantity": 3,
      "price": 15,
      "meta_data": [{"key": "_supplier_id", "value": "2b6a1c0d-3e4f-4a5b-9c8d-7e6f5a4b3c2d"}]
    }
  ]
}`

func TestWooCommerceAdapter_Parse(t *testing.T) {
	adapter := NewWooCommerceAdapter(NewStaticTransport())

	draft, err := adapter.Parse([]byte(wooOrderPayload))
	require.NoError(t, err)

	assert.Equal(t, "7741", draft.ExternalOrderID)
	assert.Equal(t, order.PaymentStatusPaid, draft.PaymentStatus)
	assert.Equal(t, "45", draft.Total.Amount().String())
	assert.Equal(t, "Grace Hopper", draft.Customer.Name)
	assert.Equal(t, "FR", draft.Customer.Country)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, 3, draft.Items[0].Quantity)
	assert.Equal(t, "15", draft.Items[0].UnitPrice.String())
	assert.Equal(t, "2b6a1c0d-3e4f-4a5b-9c8d-7e6f5a4b3c2d", draft.Items[0].SupplierID.String())
	require.NoError(t, draft.Validate())
}

func TestWooCommerceAdapter_StatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   order.PaymentStatus
	}{
		{"pending", order.PaymentStatusPending},
		{"on-hold", order.PaymentStatusPending},
		{"completed", order.PaymentStatusPaid},
		{"refunded", order.PaymentStatusRefunded},
		{"cancelled", order.PaymentStatusCancelled},
	}
	for _, tc := range cases {
		got, err := wooPaymentStatus(tc.status)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := wooPaymentStatus("draft")
	assert.ErrorIs(t, err, storefront.ErrMalformedPayload)
}

const ebayOrderPayload = `{
  "orderId": "12-09871-55512",
  "lastModifiedDate": "2026-03-03T18:30:00.000Z",
  "orderPaymentStatus": "PAID",
  "pricingSummary": {"total": {"value": "120.50", "currency": "GBP"}},
  "buyer": {"username": "collector88"},
  "fulfillmentStartInstructions": [
    {
      "shippingStep": {
        "shipTo": {
          "fullName": "Alan Turing",
          "email": "alan@example.com",
          "primaryPhone": {"phoneNumber": "+44 20 7946"},
          "contactAddress": {
            "addressLine1": "221B Baker St",
            "city": "London",
            "stateOrProvince": "LDN",
            "postalCode": "NW1 6XE",
            "countryCode": "GB"
          }
        }
      }
    }
  ],
  "lineItems": [
    {"legacyItemId": "334455", "sku": "SKU-77", "title": "Chess Set", "quantity": 1, "lineItemCost": {"value": "120.50"}, "supplierId": "9f8e7d6c-5b4a-4c3d-8e2f-1a0b9c8d7e6f"}
  ]
}`

func TestEbayAdapter_Parse(t *testing.T) {
	adapter := NewEbayAdapter(NewStaticTransport())

	draft, err := adapter.Parse([]byte(ebayOrderPayload))
	require.NoError(t, err)

	assert.Equal(t, "12-09871-55512", draft.ExternalOrderID)
	assert.Equal(t, order.PaymentStatusPaid, draft.PaymentStatus)
	assert.Equal(t, "120.5", draft.Total.Amount().String())
	assert.Equal(t, "Alan Turing", draft.Customer.Name)
	assert.Equal(t, "NW1 6XE", draft.Customer.PostalCode)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "9f8e7d6c-5b4a-4c3d-8e2f-1a0b9c8d7e6f", draft.Items[0].SupplierID.String())
	require.NoError(t, draft.Validate())
}

func TestEbayAdapter_UnassignedSupplierStaysNil(t *testing.T) {
	adapter := NewEbayAdapter(NewStaticTransport())

	payload := `{
	  "orderId": "12-1",
	  "lastModifiedDate": "2026-03-03T18:30:00Z",
	  "orderPaymentStatus": "PENDING",
	  "pricingSummary": {"total": {"value": "5.00", "currency": "USD"}},
	  "lineItems": [{"sku": "S", "title": "T", "quantity": 1, "lineItemCost": {"value": "5.00"}}]
	}`
	draft, err := adapter.Parse([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, draft.Items[0].SupplierID)
}

func TestRegistry(t *testing.T) {
	transport := NewStaticTransport()
	registry := NewRegistry(
		NewShopifyAdapter(transport),
		NewWooCommerceAdapter(transport),
	)

	adapter, err := registry.GetAdapter(store.PlatformShopify)
	require.NoError(t, err)
	assert.Equal(t, store.PlatformShopify, adapter.Platform())

	_, err = registry.GetAdapter(store.PlatformEbay)
	assert.ErrorIs(t, err, storefront.ErrPlatformNotRegistered)

	adapters := registry.ListAdapters()
	require.Len(t, adapters, 2)
	assert.Equal(t, store.PlatformShopify, adapters[0].Platform())
	assert.Equal(t, store.PlatformWooCommerce, adapters[1].Platform())
}
