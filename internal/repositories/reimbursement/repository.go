package reimbursement

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ReimbursementRepository defines the interface for reimbursement operations
type ReimbursementRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateReimbursementRequest, createdBy *string) (*models.Reimbursement, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Reimbursement, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Reimbursement, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error)
	Delete(ctx context.Context, tenantID string, id string) error
}

// Repository implements ReimbursementRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reimbursement repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "reimbursements"

var columns = []string{"id", "tenant_id", "amount", "description", "minutes_name", "status", "purchaser_id", "created_by", "created_at", "updated_at", "deleted_at"}

// Create creates a new reimbursement request
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateReimbursementRequest, createdBy *string) (*models.Reimbursement, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "amount", "description", "minutes_name", "status", "purchaser_id", "created_by", "created_at", "updated_at")
	sb.Values(id, tenantID, req.Amount, req.Description, req.MinutesName, models.ReimbursementStatusRequested, req.PurchaserID, createdBy, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to create reimbursement")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create reimbursement: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
	}).Info("created reimbursement")

	return r.GetByID(ctx, tenantID, id)
}

// GetByID gets a reimbursement by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Reimbursement, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var reimbursement models.Reimbursement
	err := r.db.GetContext(ctx, &reimbursement, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get reimbursement by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get reimbursement: %w", err)
	}

	return &reimbursement, nil
}

// List lists reimbursements for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Reimbursement, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count reimbursements")
		return nil, 0, fmt.Errorf("failed to count reimbursements: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Reimbursement
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list reimbursements")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list reimbursements: %w", err)
	}

	return items, totalCount, nil
}

// Update updates a reimbursement, only touching the provided fields
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.Update")
	defer span.End()

	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("updated_at", time.Now()))

	if req.Amount != nil {
		sb.Set(sb.Assign("amount", *req.Amount))
	}
	if req.Description != nil {
		sb.Set(sb.Assign("description", *req.Description))
	}
	if req.MinutesName != nil {
		sb.Set(sb.Assign("minutes_name", *req.MinutesName))
	}
	if req.Status != nil {
		sb.Set(sb.Assign("status", *req.Status))
	}
	if req.PurchaserID != nil {
		sb.Set(sb.Assign("purchaser_id", *req.PurchaserID))
	}

	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to update reimbursement")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update reimbursement: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated reimbursement")

	return r.GetByID(ctx, tenantID, id)
}

// Delete soft deletes a reimbursement
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.Delete")
	defer span.End()

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("deleted_at", time.Now()))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to delete reimbursement")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete reimbursement: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted reimbursement")

	return nil
}
