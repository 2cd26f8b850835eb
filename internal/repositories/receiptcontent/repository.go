package receiptcontent

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ReceiptContentRepository defines the interface for scanned receipt content
type ReceiptContentRepository interface {
	Upsert(ctx context.Context, tenantID string, receiptID string, req models.UpsertReceiptContentRequest) (*models.ReceiptContent, error)
	GetByReceiptID(ctx context.Context, tenantID string, receiptID string) (*models.ReceiptContent, error)
	DeleteByReceiptID(ctx context.Context, tenantID string, receiptID string) error
}

// Repository implements ReceiptContentRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new receipt content repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const allColumns = `receipt_id, tenant_id, purchase_date, total_amount, store_name, currency, items,
	provider, scanned_at, created_at, updated_at, deleted_at`

// Upsert stores the scan output for a receipt, replacing any earlier
// scan. A rescan always wins.
func (r *Repository) Upsert(ctx context.Context, tenantID string, receiptID string, req models.UpsertReceiptContentRequest) (*models.ReceiptContent, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptContentRepository.Upsert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Upsert",
		"tenant_id":  tenantID,
		"receipt_id": receiptID,
		"provider":   req.Provider,
	})

	now := time.Now().UTC()

	query := `
		INSERT INTO receipt_contents (
			receipt_id, tenant_id, purchase_date, total_amount, store_name, currency, items,
			provider, scanned_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (receipt_id)
		DO UPDATE SET
			purchase_date = EXCLUDED.purchase_date,
			total_amount = EXCLUDED.total_amount,
			store_name = EXCLUDED.store_name,
			currency = EXCLUDED.currency,
			items = EXCLUDED.items,
			provider = EXCLUDED.provider,
			scanned_at = EXCLUDED.scanned_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	if _, err := r.db.ExecContext(ctx, query,
		receiptID, tenantID, req.PurchaseDate, req.TotalAmount, req.StoreName, req.Currency, req.Items,
		req.Provider, now, now, now,
	); err != nil {
		log.WithError(err).Error("Failed to upsert receipt content")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store receipt content")
	}

	log.Info("Upserted receipt content")
	return r.GetByReceiptID(ctx, tenantID, receiptID)
}

// GetByReceiptID gets the scanned content for a receipt, nil when the
// receipt has never been scanned
func (r *Repository) GetByReceiptID(ctx context.Context, tenantID string, receiptID string) (*models.ReceiptContent, error) {
	ctx, span := tracing.StartSpan(ctx, "ReceiptContentRepository.GetByReceiptID")
	defer span.End()

	query := `SELECT ` + allColumns + ` FROM receipt_contents WHERE receipt_id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	var content models.ReceiptContent
	if err := r.db.GetContext(ctx, &content, query, receiptID, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"receipt_id": receiptID,
			"tenant_id":  tenantID,
		}).Error("failed to get receipt content")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get receipt content")
	}

	return &content, nil
}

// DeleteByReceiptID soft deletes the content row when its receipt is removed
func (r *Repository) DeleteByReceiptID(ctx context.Context, tenantID string, receiptID string) error {
	ctx, span := tracing.StartSpan(ctx, "ReceiptContentRepository.DeleteByReceiptID")
	defer span.End()

	now := time.Now().UTC()
	query := `UPDATE receipt_contents SET deleted_at = $3 WHERE receipt_id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, receiptID, tenantID, now); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"receipt_id": receiptID,
			"tenant_id":  tenantID,
		}).Error("failed to delete receipt content")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete receipt content")
	}

	return nil
}
