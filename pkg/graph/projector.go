package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Projector mirrors entity links into the graph store. Writes are
// fire-and-forget from the caller's point of view: routes log a failed
// projection and carry on with the Postgres result.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// kindLabel maps an entity kind to its node label. Kinds arrive through
// ParseEntityKind, so the label set is closed.
func kindLabel(kind models.EntityKind) string {
	switch kind {
	case models.EntityKindReceipt:
		return "Receipt"
	case models.EntityKindReimbursement:
		return "Reimbursement"
	case models.EntityKindTransaction:
		return "Transaction"
	case models.EntityKindBudget:
		return "Budget"
	case models.EntityKindInventory:
		return "Inventory"
	case models.EntityKindMinute:
		return "Minute"
	default:
		return "Entity"
	}
}

// ProjectLink mirrors a new relationship into the graph. Endpoint nodes
// are MERGEd so the mirror never depends on entity writes having been
// projected first.
func (p *Projector) ProjectLink(ctx context.Context, rel *models.EntityRelationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectLink")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"rel_id":    rel.ID,
		"tenant_id": rel.TenantID,
		"a":         string(rel.RelationAType) + ":" + rel.RelationAID,
		"b":         string(rel.RelationBType) + ":" + rel.RelationBID,
	})

	cypher := fmt.Sprintf(`
		MERGE (a:%s {id: $a_id, tenant_id: $tenant_id})
		MERGE (b:%s {id: $b_id, tenant_id: $tenant_id})
		MERGE (a)-[r:LINKED {id: $rel_id, tenant_id: $tenant_id}]->(b)
		SET r.created_at = $created_at
	`, kindLabel(rel.RelationAType), kindLabel(rel.RelationBType))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"a_id":       rel.RelationAID,
			"b_id":       rel.RelationBID,
			"rel_id":     rel.ID,
			"tenant_id":  rel.TenantID,
			"created_at": rel.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		metrics.RecordGraphProjection("link", "error")
		log.WithError(err).Error("Failed to project link into graph")
		return fmt.Errorf("failed to project link into graph: %w", err)
	}

	metrics.RecordGraphProjection("link", "success")
	log.Debug("Projected link into graph")
	return nil
}

// RemoveLink removes a mirrored relationship by ID
func (p *Projector) RemoveLink(ctx context.Context, tenantID string, relationshipID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveLink")
	defer span.End()

	cypher := `
		MATCH ()-[r:LINKED {id: $id, tenant_id: $tenant_id}]-()
		DELETE r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        relationshipID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		metrics.RecordGraphProjection("unlink", "error")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to remove link %s from graph", relationshipID)
		return fmt.Errorf("failed to remove link from graph: %w", err)
	}

	metrics.RecordGraphProjection("unlink", "success")
	return nil
}

// RemoveLinkByEndpoints removes the mirrored relationship between two
// entities regardless of the direction it was stored with.
func (p *Projector) RemoveLinkByEndpoints(ctx context.Context, tenantID string, a models.EntityRef, b models.EntityRef) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveLinkByEndpoints")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (a:%s {id: $a_id, tenant_id: $tenant_id})-[r:LINKED {tenant_id: $tenant_id}]-(b:%s {id: $b_id, tenant_id: $tenant_id})
		DELETE r
	`, kindLabel(a.Kind), kindLabel(b.Kind))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"a_id":      a.ID,
			"b_id":      b.ID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		metrics.RecordGraphProjection("unlink_pair", "error")
		p.logger.WithContext(ctx).WithError(err).Error("Failed to remove link pair from graph")
		return fmt.Errorf("failed to remove link pair from graph: %w", err)
	}

	metrics.RecordGraphProjection("unlink_pair", "success")
	return nil
}

// RemoveEntity detaches and deletes an entity's node when the entity is
// deleted, taking its mirrored edges with it.
func (p *Projector) RemoveEntity(ctx context.Context, tenantID string, kind models.EntityKind, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveEntity")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (e:%s {id: $id, tenant_id: $tenant_id})
		DETACH DELETE e
	`, kindLabel(kind))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        entityID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		metrics.RecordGraphProjection("remove_entity", "error")
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to remove %s %s from graph", kind, entityID)
		return fmt.Errorf("failed to remove entity from graph: %w", err)
	}

	metrics.RecordGraphProjection("remove_entity", "success")
	return nil
}
