package relationship

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Propagator pushes context values back into linked entities. Each
// entity is updated independently; one failure never aborts the rest,
// and there is no transaction or rollback across entities.
type Propagator struct {
	store  Store
	logger ectologger.Logger
}

// NewPropagator creates a new propagator
func NewPropagator(store Store, logger ectologger.Logger) *Propagator {
	return &Propagator{
		store:  store,
		logger: logger,
	}
}

// Propagate applies the context's values to every linked entity using
// the kind-specific field mapping. Null context fields are omitted
// from the update, never written. An update in which every mapped
// field is null is skipped.
func (p *Propagator) Propagate(ctx context.Context, tenantID string, rc *models.RelationshipContext) []models.PropagationResult {
	ctx, span := tracing.StartSpan(ctx, "relationship.Propagator.Propagate")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    tenantID,
		"value_source": string(rc.ValueSource),
	})

	results := make([]models.PropagationResult, 0, len(rc.LinkedEntityIDs))
	for _, linked := range rc.LinkedEntityIDs {
		ref, err := models.ParseEntityRef(linked)
		if err != nil {
			msg := err.Error()
			results = append(results, models.PropagationResult{ID: linked, Error: &msg})
			metrics.RecordPropagation(tenantID, "invalid", "error")
			continue
		}

		result := p.propagateOne(ctx, tenantID, ref, rc)
		status := "skipped"
		if result.Updated {
			status = "updated"
		}
		if result.Error != nil {
			status = "error"
			log.WithFields(map[string]any{
				"entity": linked,
				"error":  *result.Error,
			}).Warn("Failed to propagate to linked entity")
		}
		metrics.RecordPropagation(tenantID, string(ref.Kind), status)
		results = append(results, result)
	}

	log.WithField("entities", len(results)).Info("Propagated relationship context")
	return results
}

func (p *Propagator) propagateOne(ctx context.Context, tenantID string, ref models.EntityRef, rc *models.RelationshipContext) models.PropagationResult {
	result := models.PropagationResult{Kind: ref.Kind, ID: ref.ID}

	var updated bool
	var err error
	switch ref.Kind {
	case models.EntityKindTransaction:
		updated, err = p.updateTransaction(ctx, tenantID, ref.ID, rc)
	case models.EntityKindReimbursement:
		updated, err = p.updateReimbursement(ctx, tenantID, ref.ID, rc)
	case models.EntityKindReceipt:
		updated, err = p.updateReceipt(ctx, tenantID, ref.ID, rc)
	default:
		// Only hydrated kinds ever appear in linkedEntityIds
		return result
	}

	if err != nil {
		msg := err.Error()
		result.Error = &msg
		return result
	}

	result.Updated = updated
	return result
}

// updateTransaction writes the negated total so the transaction keeps
// its signed outflow form, plus date, description and category.
func (p *Propagator) updateTransaction(ctx context.Context, tenantID, id string, rc *models.RelationshipContext) (bool, error) {
	req := models.UpdateTransactionRequest{
		Date:        rc.Date,
		Description: rc.Description,
		Category:    rc.Category,
	}
	if rc.TotalAmount != nil {
		neg := rc.TotalAmount.Neg()
		req.Amount = &neg
	}

	if req.Date == nil && req.Amount == nil && req.Description == nil && req.Category == nil {
		return false, nil
	}

	transaction, err := p.store.UpdateTransaction(ctx, tenantID, id, req)
	if err != nil {
		return false, err
	}
	if transaction == nil {
		return false, fmt.Errorf("transaction %s not found", id)
	}
	return true, nil
}

// updateReimbursement only carries the amount and description; status
// and purchaser stay owned by the reimbursement workflow.
func (p *Propagator) updateReimbursement(ctx context.Context, tenantID, id string, rc *models.RelationshipContext) (bool, error) {
	req := models.UpdateReimbursementRequest{
		Amount:      rc.TotalAmount,
		Description: rc.Description,
	}

	if req.Amount == nil && req.Description == nil {
		return false, nil
	}

	reimbursement, err := p.store.UpdateReimbursement(ctx, tenantID, id, req)
	if err != nil {
		return false, err
	}
	if reimbursement == nil {
		return false, fmt.Errorf("reimbursement %s not found", id)
	}
	return true, nil
}

// updateReceipt touches the display name only. Scanned content is
// ground truth and is never overwritten by propagation.
func (p *Propagator) updateReceipt(ctx context.Context, tenantID, id string, rc *models.RelationshipContext) (bool, error) {
	req := models.UpdateReceiptRequest{
		Name: rc.Description,
	}

	if req.Name == nil {
		return false, nil
	}

	receipt, err := p.store.UpdateReceipt(ctx, tenantID, id, req)
	if err != nil {
		return false, err
	}
	if receipt == nil {
		return false, fmt.Errorf("receipt %s not found", id)
	}
	return true, nil
}
