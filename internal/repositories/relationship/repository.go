package relationship

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var edgeIDNamespace = uuid.MustParse("b3d1a6d2-4f7e-4c1b-9a0e-6c2f8d914a53")

// ComputeEdgeID returns the deterministic edge ID used for upserts. The
// endpoint pair is normalized before hashing so linking A to B and
// linking B to A address the same row.
func ComputeEdgeID(tenantID string, a, b models.EntityRef) string {
	a, b = normalize(a, b)
	return uuid.NewSHA1(edgeIDNamespace, []byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		tenantID, a.Kind, a.ID, b.Kind, b.ID))).String()
}

func normalize(a, b models.EntityRef) (models.EntityRef, models.EntityRef) {
	if b.Kind < a.Kind || (b.Kind == a.Kind && b.ID < a.ID) {
		return b, a
	}
	return a, b
}

// Repository handles entity relationship persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// allColumns is the standard column list for SELECT queries
const allColumns = `id, tenant_id, relation_a_type, relation_a_id, relation_b_type, relation_b_id,
	created_by, created_at, updated_at, deleted_at`

// Create links two entities. Linking an already-linked (or previously
// unlinked) pair resurrects the existing row instead of erroring.
func (r *Repository) Create(ctx context.Context, tenantID string, a, b models.EntityRef, createdBy *string) (*models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"tenant_id":  tenantID,
		"relation_a": a.String(),
		"relation_b": b.String(),
	})

	// Deterministic ID based on the normalized endpoint pair
	id := ComputeEdgeID(tenantID, a, b)
	now := time.Now().UTC()

	query := `
		INSERT INTO entity_relationships (
			id, tenant_id, relation_a_type, relation_a_id, relation_b_type, relation_b_id,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			created_by = COALESCE(entity_relationships.created_by, EXCLUDED.created_by),
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	if _, err := r.db.ExecContext(ctx, query,
		id, tenantID, a.Kind, a.ID, b.Kind, b.ID,
		createdBy, now, now,
	); err != nil {
		log.WithError(err).Error("Failed to create relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create relationship")
	}

	log.WithFields(map[string]any{"id": id}).Info("Upserted relationship")
	return r.Get(ctx, tenantID, id)
}

// Get retrieves a relationship by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.Get")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, allColumns)

	var edge models.EntityRelationship
	if err := r.db.GetContext(ctx, &edge, query, id, tenantID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "relationship %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get relationship")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship")
	}

	return &edge, nil
}

// GetByEndpoints retrieves the edge between two entities, nil when the
// pair is not linked
func (r *Repository) GetByEndpoints(ctx context.Context, tenantID string, a, b models.EntityRef) (*models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.GetByEndpoints")
	defer span.End()

	id := ComputeEdgeID(tenantID, a, b)
	query := fmt.Sprintf(`SELECT %s FROM entity_relationships WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, allColumns)

	var edge models.EntityRelationship
	if err := r.db.GetContext(ctx, &edge, query, id, tenantID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get relationship by endpoints")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship")
	}

	return &edge, nil
}

// ListForEntity retrieves all live edges touching an entity, oldest
// first so downstream ordering is stable
func (r *Repository) ListForEntity(ctx context.Context, tenantID string, ref models.EntityRef) ([]models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.ListForEntity")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM entity_relationships
		WHERE tenant_id = $1
		  AND ((relation_a_type = $2 AND relation_a_id = $3) OR (relation_b_type = $2 AND relation_b_id = $3))
		  AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, allColumns)

	var edges []models.EntityRelationship
	if err := r.db.SelectContext(ctx, &edges, query, tenantID, ref.Kind, ref.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list relationships for entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}

	return edges, nil
}

// SoftDelete marks a relationship as deleted
func (r *Repository) SoftDelete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	query := `UPDATE entity_relationships SET deleted_at = $3 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, tenantID, now)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete relationship")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationship")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("relationship %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Soft deleted relationship")
	return nil
}

// SoftDeleteByEndpoints unlinks two entities. Returns the deleted edge
// so callers can report what was removed; nil when the pair was not
// linked.
func (r *Repository) SoftDeleteByEndpoints(ctx context.Context, tenantID string, a, b models.EntityRef) (*models.EntityRelationship, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.SoftDeleteByEndpoints")
	defer span.End()

	edge, err := r.GetByEndpoints(ctx, tenantID, a, b)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, nil
	}

	if err := r.SoftDelete(ctx, tenantID, edge.ID); err != nil {
		return nil, err
	}
	return edge, nil
}

// SoftDeleteForEntity marks all edges touching an entity as deleted.
// Used when the entity itself is removed.
func (r *Repository) SoftDeleteForEntity(ctx context.Context, tenantID string, ref models.EntityRef) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Repository.SoftDeleteForEntity")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE entity_relationships SET deleted_at = $4
		WHERE tenant_id = $1
		  AND ((relation_a_type = $2 AND relation_a_id = $3) OR (relation_b_type = $2 AND relation_b_id = $3))
		  AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, ref.Kind, ref.ID, now)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete relationships for entity")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationships")
	}

	rows, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"entity": ref.String(),
		"count":  rows,
	}).Info("Soft deleted relationships for entity")
	return rows, nil
}
