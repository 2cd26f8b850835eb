// Package events handles event emission for entity lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/tracing"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes portal lifecycle events. Emission is best effort: API
// handlers log failures and carry on, so a Kafka outage never blocks writes
// to the system of record.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityCreated emits an entity created event
func (e *Emitter) EmitEntityCreated(ctx context.Context, tenantID string, kind models.EntityKind, entityID string, entity any) error {
	return e.emitEntity(ctx, EventTypeEntityCreated, tenantID, kind, entityID, entity)
}

// EmitEntityUpdated emits an entity updated event
func (e *Emitter) EmitEntityUpdated(ctx context.Context, tenantID string, kind models.EntityKind, entityID string, entity any) error {
	return e.emitEntity(ctx, EventTypeEntityUpdated, tenantID, kind, entityID, entity)
}

// EmitEntityDeleted emits an entity deleted event
func (e *Emitter) EmitEntityDeleted(ctx context.Context, tenantID string, kind models.EntityKind, entityID string) error {
	return e.emitEntity(ctx, EventTypeEntityDeleted, tenantID, kind, entityID, nil)
}

func (e *Emitter) emitEntity(ctx context.Context, eventType EventType, tenantID string, kind models.EntityKind, entityID string, entity any) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emitEntity")
	defer span.End()

	var data json.RawMessage
	if entity != nil {
		b, err := json.Marshal(entity)
		if err != nil {
			return err
		}
		data = b
	}

	event := &kafka.EntityEvent{
		EventType:  string(eventType),
		TenantID:   tenantID,
		EntityKind: kind,
		EntityID:   entityID,
		Data:       data,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type":  eventType,
			"entity_kind": kind,
			"entity_id":   entityID,
		}).Error("Failed to emit entity event")
		return err
	}

	return nil
}

// EmitRelationshipCreated emits a relationship created event
func (e *Emitter) EmitRelationshipCreated(ctx context.Context, rel *models.EntityRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipCreated")
	defer span.End()

	event := &kafka.RelationshipEvent{
		EventType:      string(EventTypeRelationshipCreated),
		TenantID:       rel.TenantID,
		RelationshipID: rel.ID,
		AKind:          rel.RelationAType,
		AID:            rel.RelationAID,
		BKind:          rel.RelationBType,
		BID:            rel.RelationBID,
	}

	if err := e.producer.PublishRelationshipEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit relationship.created event")
		return err
	}

	return nil
}

// EmitRelationshipDeleted emits a relationship deleted event
func (e *Emitter) EmitRelationshipDeleted(ctx context.Context, rel *models.EntityRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipDeleted")
	defer span.End()

	event := &kafka.RelationshipEvent{
		EventType:      string(EventTypeRelationshipDeleted),
		TenantID:       rel.TenantID,
		RelationshipID: rel.ID,
		AKind:          rel.RelationAType,
		AID:            rel.RelationAID,
		BKind:          rel.RelationBType,
		BID:            rel.RelationBID,
	}

	if err := e.producer.PublishRelationshipEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit relationship.deleted event")
		return err
	}

	return nil
}

// EmitContextPropagated emits an event describing a propagation run
func (e *Emitter) EmitContextPropagated(ctx context.Context, tenantID string, target models.EntityRef, response *models.PropagationResponse) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContextPropagated")
	defer span.End()

	payload := ContextPropagatedEvent{
		BaseEvent:   NewBaseEvent(EventTypeContextPropagated, tenantID),
		EntityKind:  target.Kind,
		EntityID:    target.ID,
		ValueSource: response.ValueSource,
		Results:     response.Results,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.EntityEvent{
		EventType:  string(EventTypeContextPropagated),
		TenantID:   tenantID,
		EntityKind: target.Kind,
		EntityID:   target.ID,
		Data:       data,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit context.propagated event")
		return err
	}

	return nil
}

// EmitReceiptScanQueued emits an event when a scan job is enqueued
func (e *Emitter) EmitReceiptScanQueued(ctx context.Context, tenantID string, receiptID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReceiptScanQueued")
	defer span.End()

	payload := ReceiptScannedEvent{
		BaseEvent:  NewBaseEvent(EventTypeReceiptScanQueued, tenantID),
		ReceiptID:  receiptID,
		ScanStatus: models.ScanStatusPending,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.EntityEvent{
		EventType:  string(EventTypeReceiptScanQueued),
		TenantID:   tenantID,
		EntityKind: models.EntityKindReceipt,
		EntityID:   receiptID,
		Data:       data,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit receipt.scan_queued event")
		return err
	}

	return nil
}

// EmitReceiptScanned emits an event for a finished scan job
func (e *Emitter) EmitReceiptScanned(ctx context.Context, tenantID string, receiptID string, scanStatus string, provider string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReceiptScanned")
	defer span.End()

	eventType := EventTypeReceiptScanned
	if scanStatus == models.ScanStatusFailed {
		eventType = EventTypeReceiptScanFailed
	}

	payload := ReceiptScannedEvent{
		BaseEvent:  NewBaseEvent(eventType, tenantID),
		ReceiptID:  receiptID,
		ScanStatus: scanStatus,
		Provider:   provider,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.EntityEvent{
		EventType:  string(eventType),
		TenantID:   tenantID,
		EntityKind: models.EntityKindReceipt,
		EntityID:   receiptID,
		Data:       data,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit receipt scan event")
		return err
	}

	return nil
}
