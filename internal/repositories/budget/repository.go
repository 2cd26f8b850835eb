package budget

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

// BudgetRepository defines the interface for budget operations
type BudgetRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateBudgetRequest, createdBy *string) (*models.Budget, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Budget, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Budget, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateBudgetRequest) (*models.Budget, error)
	Delete(ctx context.Context, tenantID string, id string) error
}

// Repository implements BudgetRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new budget repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "budgets"

var columns = []string{"id", "tenant_id", "name", "amount", "category", "period_start", "period_end", "created_by", "created_at", "updated_at", "deleted_at"}

// Create creates a new budget
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateBudgetRequest, createdBy *string) (*models.Budget, error) {
	ctx, span := tracing.StartSpan(ctx, "BudgetRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "name", "amount", "category", "period_start", "period_end", "created_by", "created_at", "updated_at")
	sb.Values(id, tenantID, req.Name, req.Amount, req.Category, req.PeriodStart, req.PeriodEnd, createdBy, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to create budget")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create budget: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
	}).Info("created budget")

	return r.GetByID(ctx, tenantID, id)
}

// GetByID gets a budget by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Budget, error) {
	ctx, span := tracing.StartSpan(ctx, "BudgetRepository.GetByID")
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

	var budget models.Budget
	err := r.db.GetContext(ctx, &budget, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get budget by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get budget: %v", err)
	}

	return &budget, nil
}

// List lists budgets for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Budget, int, error) {
	ctx, span := tracing.StartSpan(ctx, "BudgetRepository.List")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to count budgets")
		return nil, 0, fmt.Errorf("failed to count budgets: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Budget
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list budgets")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list budgets: %v", err)
	}

	return items, totalCount, nil
}

// Update updates a budget, only touching the provided fields
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateBudgetRequest) (*models.Budget, error) {
	ctx, span := tracing.StartSpan(ctx, "BudgetRepository.Update")
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
	if req.Amount != nil {
		sb.Set(sb.Assign("amount", *req.Amount))
	}
	if req.Category != nil {
		sb.Set(sb.Assign("category", *req.Category))
	}
	if req.PeriodStart != nil {
		sb.Set(sb.Assign("period_start", *req.PeriodStart))
	}
	if req.PeriodEnd != nil {
		sb.Set(sb.Assign("period_end", *req.PeriodEnd))
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
		}).Error("failed to update budget")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update budget: %v", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated budget")

	return r.GetByID(ctx, tenantID, id)
}

// Delete soft deletes a budget
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "BudgetRepository.Delete")
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
		}).Error("failed to delete budget")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete budget: %v", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted budget")

	return nil
}
