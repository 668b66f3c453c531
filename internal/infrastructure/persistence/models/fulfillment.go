package models

import (
	"time"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierOrderModel is the persistence model for the SupplierOrder aggregate
// root. A partial unique index on (order_id, supplier_id) over non-terminal
// states enforces at most one open supplier order per pair.
type SupplierOrderModel struct {
	AggregateModel
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierNativeID string          `gorm:"type:varchar(100);index"`
	State            string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TrackingNumber   string          `gorm:"type:varchar(100)"`
	Cost             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AttemptCount     int             `gorm:"not null;default:0"`
	LastError        string          `gorm:"type:text"`
	PlacedAt         *time.Time
	ShippedAt        *time.Time
	DeliveredAt      *time.Time
}

// TableName returns the table name for GORM
func (SupplierOrderModel) TableName() string {
	return "supplier_orders"
}

// ToDomain converts the persistence model to a domain SupplierOrder
func (m *SupplierOrderModel) ToDomain() *fulfillment.SupplierOrder {
	so := &fulfillment.SupplierOrder{
		OrderID:          m.OrderID,
		StoreID:          m.StoreID,
		SupplierID:       m.SupplierID,
		SupplierNativeID: m.SupplierNativeID,
		State:            fulfillment.State(m.State),
		TrackingNumber:   m.TrackingNumber,
		Cost:             m.Cost,
		AttemptCount:     m.AttemptCount,
		LastError:        m.LastError,
		PlacedAt:         m.PlacedAt,
		ShippedAt:        m.ShippedAt,
		DeliveredAt:      m.DeliveredAt,
	}
	m.PopulateAggregateRoot(&so.BaseAggregateRoot)
	return so
}

// FromDomain populates the persistence model from a domain SupplierOrder
func (m *SupplierOrderModel) FromDomain(so *fulfillment.SupplierOrder) {
	m.FromDomainAggregateRoot(so.BaseAggregateRoot)
	m.OrderID = so.OrderID
	m.StoreID = so.StoreID
	m.SupplierID = so.SupplierID
	m.SupplierNativeID = so.SupplierNativeID
	m.State = so.State.String()
	m.TrackingNumber = so.TrackingNumber
	m.Cost = so.Cost
	m.AttemptCount = so.AttemptCount
	m.LastError = so.LastError
	m.PlacedAt = so.PlacedAt
	m.ShippedAt = so.ShippedAt
	m.DeliveredAt = so.DeliveredAt
}

// SupplierOrderModelFromDomain creates a new persistence model from a domain SupplierOrder
func SupplierOrderModelFromDomain(so *fulfillment.SupplierOrder) *SupplierOrderModel {
	m := &SupplierOrderModel{}
	m.FromDomain(so)
	return m
}
