package models

import (
	"encoding/json"
	"fmt"

	"github.com/dropship/backend/internal/domain/order"
	"github.com/dropship/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the canonical Order aggregate root.
// (store_id, external_order_id) is unique; the database constraint is the
// authority for re-entrant creation.
type OrderModel struct {
	AggregateModel
	StoreID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_store_external,priority:1"`
	ExternalOrderID   string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_store_external,priority:2"`
	CustomerJSON      string          `gorm:"column:customer;type:jsonb;not null;default:'{}'"`
	ItemsJSON         string          `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentStatus     string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	FulfillmentStatus string          `gorm:"type:varchar(20);not null;default:'UNFULFILLED';index"`
	ProviderRevision  int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() (*order.Order, error) {
	var customer order.CustomerContact
	if err := json.Unmarshal([]byte(m.CustomerJSON), &customer); err != nil {
		return nil, fmt.Errorf("failed to decode order customer: %w", err)
	}
	var items []order.LineItem
	if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	total, err := valueobject.NewMoney(m.TotalAmount, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, fmt.Errorf("failed to decode order total: %w", err)
	}

	o := &order.Order{
		StoreID:           m.StoreID,
		ExternalOrderID:   m.ExternalOrderID,
		Customer:          customer,
		Items:             items,
		Total:             total,
		PaymentStatus:     order.PaymentStatus(m.PaymentStatus),
		FulfillmentStatus: order.FulfillmentStatus(m.FulfillmentStatus),
		ProviderRevision:  m.ProviderRevision,
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)
	return o, nil
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) error {
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode order customer: %w", err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.StoreID = o.StoreID
	m.ExternalOrderID = o.ExternalOrderID
	m.CustomerJSON = string(customerJSON)
	m.ItemsJSON = string(itemsJSON)
	m.TotalAmount = o.Total.Amount()
	m.Currency = string(o.Total.Currency())
	m.PaymentStatus = o.PaymentStatus.String()
	m.FulfillmentStatus = o.FulfillmentStatus.String()
	m.ProviderRevision = o.ProviderRevision
	return nil
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) (*OrderModel, error) {
	m := &OrderModel{}
	if err := m.FromDomain(o); err != nil {
		return nil, err
	}
	return m, nil
}
