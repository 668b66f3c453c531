package models

import (
	"time"

	"github.com/dropship/backend/internal/domain/store"
	"github.com/google/uuid"
)

// StoreModel is the persistence model for the Store aggregate root.
type StoreModel struct {
	AggregateModel
	AccountID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name           string     `gorm:"type:varchar(200);not null"`
	Platform       string     `gorm:"type:varchar(20);not null"`
	CredentialsRef string     `gorm:"type:varchar(200);not null"`
	PlanTier       string     `gorm:"type:varchar(20);not null;default:'FREE'"`
	Status         string     `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	DisconnectedAt *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the persistence model to a domain Store
func (m *StoreModel) ToDomain() *store.Store {
	s := &store.Store{
		AccountID:      m.AccountID,
		Name:           m.Name,
		Platform:       store.Platform(m.Platform),
		CredentialsRef: m.CredentialsRef,
		PlanTier:       store.PlanTier(m.PlanTier),
		Status:         store.Status(m.Status),
		DisconnectedAt: m.DisconnectedAt,
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	return s
}

// FromDomain populates the persistence model from a domain Store
func (m *StoreModel) FromDomain(s *store.Store) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.AccountID = s.AccountID
	m.Name = s.Name
	m.Platform = s.Platform.String()
	m.CredentialsRef = s.CredentialsRef
	m.PlanTier = s.PlanTier.String()
	m.Status = s.Status.String()
	m.DisconnectedAt = s.DisconnectedAt
}

// StoreModelFromDomain creates a new persistence model from a domain Store
func StoreModelFromDomain(s *store.Store) *StoreModel {
	m := &StoreModel{}
	m.FromDomain(s)
	return m
}
