package transaction

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
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var transactionIDNamespace = uuid.MustParse("5e8f0c27-31d4-4a6b-8b2e-9f47c60d18ba")

// ComputeStatementID returns the deterministic transaction ID for a
// statement row carrying an external ID. Re-delivered statements land
// on the same row.
func ComputeStatementID(tenantID, source, externalID string) string {
	return uuid.NewSHA1(transactionIDNamespace, []byte(fmt.Sprintf("%s|%s|%s", tenantID, source, externalID))).String()
}

// TransactionRepository defines the interface for transaction operations
type TransactionRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateTransactionRequest, createdBy *string) (*models.Transaction, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Transaction, error)
	List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Transaction, int, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error)
	Delete(ctx context.Context, tenantID string, id string) error
	BulkUpsert(ctx context.Context, tenantID string, source string, rows []models.BankStatementRow) (int, error)
}

// Repository implements TransactionRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "transactions"

var columns = []string{"id", "tenant_id", "date", "amount", "description", "category", "account_ref", "created_by", "created_at", "updated_at", "deleted_at"}

type transactionRow struct {
	ID          string          `db:"id"`
	TenantID    string          `db:"tenant_id"`
	Date        *time.Time      `db:"date"`
	Amount      decimal.Decimal `db:"amount"`
	Description *string         `db:"description"`
	Category    *string         `db:"category"`
	AccountRef  *string         `db:"account_ref"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

var transactionStruct = database.NewStruct(new(transactionRow))

// Create records a single transaction
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateTransactionRequest, createdBy *string) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := sqlbuilder.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "tenant_id", "date", "amount", "description", "category", "account_ref", "created_by", "created_at", "updated_at")
	sb.Values(id, tenantID, req.Date, req.Amount, req.Description, req.Category, req.AccountRef, createdBy, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to create transaction")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create transaction: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
	}).Info("created transaction")

	return r.GetByID(ctx, tenantID, id)
}

// GetByID gets a transaction by ID
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.GetByID")
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

	var transaction models.Transaction
	err := r.db.GetContext(ctx, &transaction, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":        id,
			"tenant_id": tenantID,
		}).Error("failed to get transaction by ID")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get transaction: %w", err)
	}

	return &transaction, nil
}

// List lists transactions for a tenant with pagination, newest first
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.Transaction, int, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.List")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to count transactions")
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("date DESC NULLS LAST", "created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Transaction
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list transactions")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list transactions: %w", err)
	}

	return items, totalCount, nil
}

// Update updates a transaction, only touching the provided fields
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.Update")
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

	if req.Date != nil {
		sb.Set(sb.Assign("date", *req.Date))
	}
	if req.Amount != nil {
		sb.Set(sb.Assign("amount", *req.Amount))
	}
	if req.Description != nil {
		sb.Set(sb.Assign("description", *req.Description))
	}
	if req.Category != nil {
		sb.Set(sb.Assign("category", *req.Category))
	}
	if req.AccountRef != nil {
		sb.Set(sb.Assign("account_ref", *req.AccountRef))
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
		}).Error("failed to update transaction")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update transaction: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("updated transaction")

	return r.GetByID(ctx, tenantID, id)
}

// Delete soft deletes a transaction
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.Delete")
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
		}).Error("failed to delete transaction")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete transaction: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"tenant_id":     tenantID,
		"rows_affected": rowsAffected,
	}).Info("deleted transaction")

	return nil
}

// BulkUpsert stores an ingested batch of statement rows in a single
// transaction. Rows carrying an external ID get a deterministic ID so
// re-delivered batches are idempotent; rows without one always insert.
// Returns the number of rows written.
func (r *Repository) BulkUpsert(ctx context.Context, tenantID string, source string, rows []models.BankStatementRow) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "TransactionRepository.BulkUpsert")
	defer span.End()

	if len(rows) == 0 {
		return 0, nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"source":    source,
		"rows":      len(rows),
	})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	written := 0
	for _, stmt := range rows {
		var id string
		if stmt.ExternalID != nil && *stmt.ExternalID != "" {
			id = ComputeStatementID(tenantID, source, *stmt.ExternalID)
		} else {
			id = uuid.New().String()
		}

		row := transactionRow{
			ID:          id,
			TenantID:    tenantID,
			Date:        stmt.Date,
			Amount:      stmt.Amount,
			Description: stmt.Description,
			Category:    stmt.Category,
			AccountRef:  stmt.AccountRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ib := transactionStruct.InsertInto(tableName, row)
		ub := ib.OnConflict("id")
		ub.Set(
			ub.Assign("date", database.Excluded("date")),
			ub.Assign("amount", database.Excluded("amount")),
			ub.Assign("description", database.Excluded("description")),
			ub.Assign("category", database.Excluded("category")),
			ub.Assign("account_ref", database.Excluded("account_ref")),
			ub.Assign("updated_at", database.Excluded("updated_at")),
		)

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).WithField("transaction_id", id).Error("Failed to upsert statement row")
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store statement rows")
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit statement batch")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit statement batch")
	}

	log.WithField("written", written).Info("Stored bank statement batch")
	return written, nil
}
