package fulfillment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupplierOrder(t *testing.T) *SupplierOrder {
	t.Helper()
	so := NewSupplierOrder(uuid.New(), uuid.New(), uuid.New(), decimal.NewFromFloat(12.50))
	so.ClearDomainEvents()
	return so
}

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StatePending, StatePlacing, true},
		{StatePending, StateFailed, true},
		{StatePending, StatePlaced, false},
		{StatePlacing, StatePlaced, true},
		{StatePlacing, StateFailed, true},
		{StatePlacing, StateShipped, false},
		{StatePlaced, StateShipped, true},
		{StatePlaced, StateFailed, true},
		{StatePlaced, StateDelivered, false},
		{StateShipped, StateDelivered, true},
		{StateShipped, StateFailed, true},
		{StateDelivered, StatePending, false},
		{StateDelivered, StateFailed, false},
		{StateFailed, StatePending, true},
		{StateFailed, StatePlacing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestState_IsTerminal(t *testing.T) {
	assert.True(t, StateDelivered.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StatePlacing.IsTerminal())
	assert.False(t, StatePlaced.IsTerminal())
	assert.False(t, StateShipped.IsTerminal())
}

func TestPlacementLifecycle(t *testing.T) {
	so := newTestSupplierOrder(t)

	require.NoError(t, so.BeginPlacement())
	assert.Equal(t, StatePlacing, so.State)
	assert.Equal(t, 1, so.AttemptCount)

	require.NoError(t, so.MarkPlaced("ALI-778899"))
	assert.Equal(t, StatePlaced, so.State)
	assert.Equal(t, "ALI-778899", so.SupplierNativeID)
	require.NotNil(t, so.PlacedAt)

	require.NoError(t, so.MarkShipped("TRK123"))
	assert.Equal(t, StateShipped, so.State)
	assert.Equal(t, "TRK123", so.TrackingNumber)
	require.NotNil(t, so.ShippedAt)

	require.NoError(t, so.MarkDelivered())
	assert.Equal(t, StateDelivered, so.State)
	require.NotNil(t, so.DeliveredAt)
}

func TestMarkPlaced_RequiresNativeID(t *testing.T) {
	so := newTestSupplierOrder(t)
	require.NoError(t, so.BeginPlacement())
	assert.Error(t, so.MarkPlaced(""))
}

func TestMarkFailed_FromPlacing(t *testing.T) {
	so := newTestSupplierOrder(t)
	require.NoError(t, so.BeginPlacement())
	require.NoError(t, so.MarkFailed("insufficient stock"))

	assert.Equal(t, StateFailed, so.State)
	assert.Equal(t, "insufficient stock", so.LastError)
}

func TestRetry_ReentersPending(t *testing.T) {
	so := newTestSupplierOrder(t)
	require.NoError(t, so.BeginPlacement())
	require.NoError(t, so.MarkFailed("timeout budget exhausted"))

	require.NoError(t, so.Retry())
	assert.Equal(t, StatePending, so.State)
	assert.Empty(t, so.LastError)
	// attempt history survives the retry
	assert.Equal(t, 1, so.AttemptCount)
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	so := newTestSupplierOrder(t)
	assert.ErrorIs(t, so.Retry(), ErrNotFailed)
}

func TestCancelLocally(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*SupplierOrder)
		wantErr error
	}{
		{"from pending", func(so *SupplierOrder) {}, nil},
		{"from placing", func(so *SupplierOrder) {
			_ = so.BeginPlacement()
		}, nil},
		{"from placed", func(so *SupplierOrder) {
			_ = so.BeginPlacement()
			_ = so.MarkPlaced("N-1")
		}, nil},
		{"from shipped", func(so *SupplierOrder) {
			_ = so.BeginPlacement()
			_ = so.MarkPlaced("N-1")
			_ = so.MarkShipped("TRK")
		}, nil},
		{"from delivered", func(so *SupplierOrder) {
			_ = so.BeginPlacement()
			_ = so.MarkPlaced("N-1")
			_ = so.MarkShipped("TRK")
			_ = so.MarkDelivered()
		}, ErrAlreadyTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			so := newTestSupplierOrder(t)
			tt.prepare(so)

			err := so.CancelLocally("cancelled by operator")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StateFailed, so.State)
			assert.Equal(t, "cancelled by operator", so.LastError)
		})
	}
}

func TestVersionIncrementsPerTransition(t *testing.T) {
	so := newTestSupplierOrder(t)
	require.Equal(t, 1, so.Version)

	require.NoError(t, so.BeginPlacement())
	require.NoError(t, so.MarkPlaced("N-1"))
	require.NoError(t, so.MarkShipped("TRK"))
	require.NoError(t, so.MarkDelivered())

	assert.Equal(t, 5, so.Version)
}

func TestShippedEventCarriesTracking(t *testing.T) {
	so := newTestSupplierOrder(t)
	require.NoError(t, so.BeginPlacement())
	require.NoError(t, so.MarkPlaced("N-1"))
	so.ClearDomainEvents()

	require.NoError(t, so.MarkShipped("TRK123"))

	events := so.GetDomainEvents()
	require.Len(t, events, 1)
	shipped, ok := events[0].(*SupplierOrderShippedEvent)
	require.True(t, ok)
	assert.Equal(t, "TRK123", shipped.TrackingNumber)
}
