package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "test", uuid.New(), uuid.New()),
	}
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	orders := &recordingHandler{types: []string{"order.synced"}}
	shipments := &recordingHandler{types: []string{"supplier_order.shipped"}}
	bus.Subscribe(orders)
	bus.Subscribe(shipments)

	evt := newTestEvent("order.synced")
	require.NoError(t, bus.Publish(context.Background(), evt))

	assert.Len(t, orders.received(), 1)
	assert.Empty(t, shipments.received())
}

func TestInMemoryEventBus_CatchAllReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	all := &recordingHandler{}
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("order.synced"),
		newTestEvent("transaction.recorded"),
	))

	assert.Len(t, all.received(), 2)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := &recordingHandler{types: []string{"order.synced"}, err: errors.New("downstream unavailable")}
	healthy := &recordingHandler{types: []string{"order.synced"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.synced")))

	assert.Len(t, healthy.received(), 1)
}

func TestInMemoryEventBus_PanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	panicking := &recordingHandler{types: []string{"order.synced"}, panics: true}
	healthy := &recordingHandler{types: []string{"order.synced"}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), newTestEvent("order.synced"))
	})
	assert.Len(t, healthy.received(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := &recordingHandler{types: []string{"order.synced"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.synced")))
	assert.Empty(t, h.received())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := &recordingHandler{types: []string{"order.synced"}}
	bus.Subscribe(h, "withdrawal.confirmed")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("order.synced")))
	assert.Empty(t, h.received())

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("withdrawal.confirmed")))
	assert.Len(t, h.received(), 1)
}
