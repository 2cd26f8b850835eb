package inventoryitem

import (
	"context"
	"database/sql"
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

// InventoryItemRepository defines the interface for inventory operations
type InventoryItemRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateInventoryItemRequest, createdBy *string) (*models.InventoryItem, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.InventoryItem, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.InventoryItem, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateInventoryItemRequest) (*models.InventoryItem, error)
	Delete(ctx context.Context, tenantID string, id string) error
}

// Repository implements InventoryItemRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new inventory item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create adds a new inventory item
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateInventoryItemRequest, createdBy *string) (*models.InventoryItem, error) {
	ctx, span := tracing.StartSpan(ctx, "InventoryItemRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	attrs := req.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}

	row := InventoryItemRow{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Name:       req.Name,
		Quantity:   req.Quantity,
		Location:   req.Location,
		Attributes: database.JSONB[map[string]any]{Data: attrs},
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ib := inventoryItemStruct.InsertInto(inventoryItemsTable, row)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        row.ID,
			"tenant_id": tenantID,
		}).Error("failed to create inventory item")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create inventory item: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        row.ID,
		"tenant_id": tenantID,
	}).Info("created inventory item")

	return r.GetByID(ctx, tenantID, row.ID)
}

// GetByID gets an inventory item by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.InventoryItem, error) {
	ctx, span := tracing.StartSpan(ctx, "InventoryItemRepository.GetByID")
	defer span.End()

	sb := inventoryItemStruct.SelectFrom(inventoryItemsTable)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var row InventoryItemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get inventory item by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get inventory item: %v", err)
	}

	return ToInventoryItem(&row), nil
}

// List lists inventory items for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.InventoryItem, int, error) {
	ctx, span := tracing.StartSpan(ctx, "InventoryItemRepository.List")
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

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(inventoryItemsTable)
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	)
	countQuery, countArgs := countSb.Build()

	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count inventory items")
		return nil, 0, fmt.Errorf("failed to count inventory items: %w", err)
	}

	sb := inventoryItemStruct.SelectFrom(inventoryItemsTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var rows []InventoryItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list inventory items")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list inventory items: %v", err)
	}

	return ToInventoryItems(rows), totalCount, nil
}

// Update updates an inventory item, only touching the provided fields
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	ctx, span := tracing.StartSpan(ctx, "InventoryItemRepository.Update")
	defer span.End()

	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	sb := database.NewUpdateBuilder()
	sb.Update(inventoryItemsTable)
	sb.Set(sb.Assign("updated_at", time.Now().UTC()))

	if req.Name != nil {
		sb.Set(sb.Assign("name", *req.Name))
	}
	if req.Quantity != nil {
		sb.Set(sb.Assign("quantity", *req.Quantity))
	}
	if req.Location != nil {
		sb.Set(sb.Assign("location", *req.Location))
	}
	if req.Attributes != nil {
		sb.Set(sb.Assign("attributes", database.JSONB[map[string]any]{Data: req.Attributes}))
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
		}).Error("failed to update inventory item")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update inventory item: %v", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated inventory item")

	return r.GetByID(ctx, tenantID, id)
}

// Delete soft deletes an inventory item
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "InventoryItemRepository.Delete")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(inventoryItemsTable)
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
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
		}).Error("failed to delete inventory item")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete inventory item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted inventory item")

	return nil
}
