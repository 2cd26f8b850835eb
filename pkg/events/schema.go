package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Entity events
	EventTypeEntityCreated EventType = "entity.created"
	EventTypeEntityUpdated EventType = "entity.updated"
	EventTypeEntityDeleted EventType = "entity.deleted"

	// Relationship events
	EventTypeRelationshipCreated EventType = "relationship.created"
	EventTypeRelationshipDeleted EventType = "relationship.deleted"

	// Context events
	EventTypeContextPropagated EventType = "context.propagated"

	// Scan events
	EventTypeReceiptScanned    EventType = "receipt.scanned"
	EventTypeReceiptScanFailed EventType = "receipt.scan_failed"
	EventTypeReceiptScanQueued EventType = "receipt.scan_queued"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ContextPropagatedEvent is emitted after values are pushed out to the
// entities linked to a propagation target.
type ContextPropagatedEvent struct {
	BaseEvent
	EntityKind  models.EntityKind          `json:"entity_kind"`
	EntityID    string                     `json:"entity_id"`
	ValueSource models.SourceKind          `json:"value_source"`
	Results     []models.PropagationResult `json:"results"`
}

// ReceiptScannedEvent is emitted when a scan job finishes, successfully
// or not.
type ReceiptScannedEvent struct {
	BaseEvent
	ReceiptID  string `json:"receipt_id"`
	ScanStatus string `json:"scan_status"`
	Provider   string `json:"provider,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
