package models

import (
	"time"

	"github.com/dropship/backend/internal/domain/webhook"
	"github.com/google/uuid"
)

// WebhookEventModel is the persistence model for inbound webhook events.
// DedupKey carries a global unique index; the constraint violation on insert
// is how concurrent duplicate deliveries are collapsed.
type WebhookEventModel struct {
	BaseModel
	Source        string     `gorm:"type:varchar(50);not null;index"`
	EventType     string     `gorm:"type:varchar(100);not null"`
	Signature     string     `gorm:"type:varchar(500)"`
	RawPayload    []byte     `gorm:"type:bytea;not null"`
	DedupKey      string     `gorm:"type:varchar(300);not null;uniqueIndex"`
	StoreID       *uuid.UUID `gorm:"type:uuid;index"`
	Status        string     `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_webhook_events_due,priority:1"`
	AttemptCount  int        `gorm:"not null;default:0"`
	MaxAttempts   int        `gorm:"not null;default:5"`
	LastError     string     `gorm:"type:text"`
	NextAttemptAt *time.Time `gorm:"index:idx_webhook_events_due,priority:2"`
	ReceivedAt    time.Time  `gorm:"not null"`
	ProcessedAt   *time.Time
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain Event
func (m *WebhookEventModel) ToDomain() *webhook.Event {
	return &webhook.Event{
		BaseEntity:    m.BaseModel.ToDomain(),
		Source:        m.Source,
		EventType:     m.EventType,
		Signature:     m.Signature,
		RawPayload:    m.RawPayload,
		DedupKey:      m.DedupKey,
		StoreID:       m.StoreID,
		Status:        webhook.Status(m.Status),
		AttemptCount:  m.AttemptCount,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		ReceivedAt:    m.ReceivedAt,
		ProcessedAt:   m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain Event
func (m *WebhookEventModel) FromDomain(e *webhook.Event) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Source = e.Source
	m.EventType = e.EventType
	m.Signature = e.Signature
	m.RawPayload = e.RawPayload
	m.DedupKey = e.DedupKey
	m.StoreID = e.StoreID
	m.Status = e.Status.String()
	m.AttemptCount = e.AttemptCount
	m.MaxAttempts = e.MaxAttempts
	m.LastError = e.LastError
	m.NextAttemptAt = e.NextAttemptAt
	m.ReceivedAt = e.ReceivedAt
	m.ProcessedAt = e.ProcessedAt
}

// WebhookEventModelFromDomain creates a new persistence model from a domain Event
func WebhookEventModelFromDomain(e *webhook.Event) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}
