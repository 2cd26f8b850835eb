package receipt

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

// ReceiptRepository defines the interface for receipt operations
type ReceiptRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateReceiptRequest, createdBy *string) (*models.Receipt, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Receipt, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Receipt, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error)
	UpdateScanStatus(ctx context.Context, tenantID string, id string, status string) error
	Delete(ctx context.Context, tenantID string, id string) error
}

// Repository implements ReceiptRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new receipt repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "receipts"

var columns = []string{"id", "tenant_id", "name", "file_ref", "scan_status", "purchaser_id", "created_by", "created_at", "updated_at", "deleted_at"}

// Create creates a new receipt in the pending scan state
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateReceiptRequest, createdBy *string) (*models.Receipt, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "name", "file_ref", "scan_status", "purchaser_id", "created_by", "created_at", "updated_at")
	sb.Values(id, tenantID, req.Name, req.FileRef, models.ScanStatusPending, req.PurchaserID, createdBy, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to create receipt")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create receipt: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
	}).Info("created receipt")

	return r.GetByID(ctx, tenantID, id)
}

// GetByID gets a receipt by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Receipt, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.GetByID")
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

	var receipt models.Receipt
	err := r.db.GetContext(ctx, &receipt, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get receipt by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get receipt: %v", err)
	}

	return &receipt, nil
}

// List lists receipts for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Receipt, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.List")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to count receipts")
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
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

	var items []models.Receipt
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list receipts")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list receipts: %v", err)
	}

	return items, totalCount, nil
}

// Update updates receipt metadata
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.Update")
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

	if req.Name != nil {
		sb.Set(sb.Assign("name", *req.Name))
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
		}).Error("failed to update receipt")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update receipt: %v", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated receipt")

	return r.GetByID(ctx, tenantID, id)
}

// UpdateScanStatus moves a receipt through the scan lifecycle
func (r *Repository) UpdateScanStatus(ctx context.Context, tenantID string, id string, status string) error {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.UpdateScanStatus")
	defer span.End()

	sb := sqlbuilder.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("scan_status", status),
		sb.Assign("updated_at", time.Now()),
	)
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
			"status":    status,
		}).Error("failed to update receipt scan status")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update scan status: %v", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "receipt %s not found", id)
	}

	return nil
}

// Delete soft deletes a receipt
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ReceiptRepository.Delete")
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
		}).Error("failed to delete receipt")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete receipt: %v", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted receipt")

	return nil
}
