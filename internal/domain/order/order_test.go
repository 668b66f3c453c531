package order

import (
	"testing"

	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft(revision int64, payment PaymentStatus) *Draft {
	supplierID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return &Draft{
		ExternalOrderID:  "EXT-1001",
		ProviderRevision: revision,
		Customer: CustomerContact{
			Name:    "Jamie Doe",
			Email:   "jamie@example.com",
			Country: "US",
		},
		Items: []LineItem{
			{ProductRef: "P-1", SKU: "SKU-1", SupplierID: supplierID, Quantity: 1, UnitPrice: decimal.NewFromFloat(29.99)},
			{ProductRef: "P-2", SKU: "SKU-2", SupplierID: supplierID, Quantity: 1, UnitPrice: decimal.NewFromFloat(29.99)},
		},
		Total:         valueobject.NewMoneyUSDFromFloat(59.98),
		PaymentStatus: payment,
	}
}

func TestNewOrderFromDraft(t *testing.T) {
	storeID := uuid.New()

	o, err := NewOrderFromDraft(storeID, testDraft(1, PaymentStatusPending))
	require.NoError(t, err)

	assert.Equal(t, 1, o.Version)
	assert.Equal(t, int64(1), o.ProviderRevision)
	assert.Equal(t, FulfillmentStatusUnfulfilled, o.FulfillmentStatus)
	assert.Len(t, o.Items, 2)

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
}

func TestNewOrderFromDraft_PaidEmitsPaidEvent(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(1, PaymentStatusPaid))
	require.NoError(t, err)

	types := make([]string, 0)
	for _, e := range o.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, EventTypeOrderPaid)
}

func TestNewOrderFromDraft_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		err    error
	}{
		{"missing external id", func(d *Draft) { d.ExternalOrderID = "" }, ErrEmptyExternalID},
		{"no line items", func(d *Draft) { d.Items = nil }, ErrNoLineItems},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDraft(1, PaymentStatusPending)
			tt.mutate(d)
			_, err := NewOrderFromDraft(uuid.New(), d)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestApplyRevision_StaleDiscarded(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(3, PaymentStatusPending))
	require.NoError(t, err)
	o.ClearDomainEvents()

	// revision 2 arrives after revision 3: out-of-order delivery
	err = o.ApplyRevision(testDraft(2, PaymentStatusPaid))
	assert.ErrorIs(t, err, ErrStaleRevision)
	assert.Equal(t, 1, o.Version)
	assert.Equal(t, int64(3), o.ProviderRevision)
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Empty(t, o.GetDomainEvents())
}

func TestApplyRevision_VersionMonotonic(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(1, PaymentStatusPending))
	require.NoError(t, err)

	revisions := []int64{3, 2, 5, 4, 6}
	for _, rev := range revisions {
		_ = o.ApplyRevision(testDraft(rev, PaymentStatusPending))
	}

	// applied: 3, 5, 6 -> version 1 + 3
	assert.Equal(t, 4, o.Version)
	assert.Equal(t, int64(6), o.ProviderRevision)
}

func TestApplyRevision_PaidEmittedOnce(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(1, PaymentStatusPending))
	require.NoError(t, err)
	o.ClearDomainEvents()

	require.NoError(t, o.ApplyRevision(testDraft(2, PaymentStatusPaid)))
	require.NoError(t, o.ApplyRevision(testDraft(3, PaymentStatusPaid)))

	paid := 0
	for _, e := range o.GetDomainEvents() {
		if e.EventType() == EventTypeOrderPaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid, "paid event must fire only on the first transition to paid")
}

func TestQuotaExceededSuppressesDispatch(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(1, PaymentStatusPaid))
	require.NoError(t, err)

	o.MarkQuotaExceeded()
	assert.Equal(t, FulfillmentStatusQuotaExceeded, o.FulfillmentStatus)
	assert.False(t, o.CanDispatch())

	o.ClearQuotaExceeded()
	assert.Equal(t, FulfillmentStatusUnfulfilled, o.FulfillmentStatus)
	assert.True(t, o.CanDispatch())
}

func TestCanDispatch_RequiresPayment(t *testing.T) {
	o, err := NewOrderFromDraft(uuid.New(), testDraft(1, PaymentStatusPending))
	require.NoError(t, err)
	assert.False(t, o.CanDispatch())
}

func TestSuppliersReferenced(t *testing.T) {
	supplierA := uuid.New()
	supplierB := uuid.New()
	d := testDraft(1, PaymentStatusPaid)
	d.Items = []LineItem{
		{ProductRef: "P-1", SupplierID: supplierA, Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		{ProductRef: "P-2", SupplierID: supplierB, Quantity: 2, UnitPrice: decimal.NewFromInt(5)},
		{ProductRef: "P-3", SupplierID: supplierA, Quantity: 1, UnitPrice: decimal.NewFromInt(7)},
	}

	o, err := NewOrderFromDraft(uuid.New(), d)
	require.NoError(t, err)

	suppliers := o.SuppliersReferenced()
	require.Len(t, suppliers, 2)
	assert.Equal(t, supplierA, suppliers[0])
	assert.Equal(t, supplierB, suppliers[1])

	assert.Len(t, o.ItemsForSupplier(supplierA), 2)
	assert.Len(t, o.ItemsForSupplier(supplierB), 1)
}

func TestLineItemTotal(t *testing.T) {
	li := LineItem{Quantity: 3, UnitPrice: decimal.NewFromFloat(9.99)}
	assert.True(t, li.LineTotal().Equal(decimal.NewFromFloat(29.97)))
}
