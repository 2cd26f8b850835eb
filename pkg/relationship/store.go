// Package relationship builds and propagates the merged financial view
// of an entity and its direct links.
package relationship

import (
	"context"

	relationshiprepo "github.com/Ramsey-B/clover/internal/repositories/relationship"
	"github.com/Ramsey-B/clover/internal/repositories/receipt"
	"github.com/Ramsey-B/clover/internal/repositories/receiptcontent"
	"github.com/Ramsey-B/clover/internal/repositories/reimbursement"
	"github.com/Ramsey-B/clover/internal/repositories/transaction"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Store defines the persistence operations the engine needs. Lookups
// return nil without error when the row does not exist.
type Store interface {
	ListEdges(ctx context.Context, tenantID string, ref models.EntityRef) ([]models.EntityRelationship, error)
	GetReceipt(ctx context.Context, tenantID string, id string) (*models.Receipt, error)
	GetReceiptContent(ctx context.Context, tenantID string, receiptID string) (*models.ReceiptContent, error)
	GetReimbursement(ctx context.Context, tenantID string, id string) (*models.Reimbursement, error)
	GetTransaction(ctx context.Context, tenantID string, id string) (*models.Transaction, error)
	UpdateReceipt(ctx context.Context, tenantID string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error)
	UpdateReimbursement(ctx context.Context, tenantID string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error)
	UpdateTransaction(ctx context.Context, tenantID string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error)
}

// RepositoryStore backs the engine with the concrete repositories
type RepositoryStore struct {
	relationships  *relationshiprepo.Repository
	receipts       *receipt.Repository
	contents       *receiptcontent.Repository
	reimbursements *reimbursement.Repository
	transactions   *transaction.Repository
}

// NewRepositoryStore creates a repository-backed store
func NewRepositoryStore(
	relationships *relationshiprepo.Repository,
	receipts *receipt.Repository,
	contents *receiptcontent.Repository,
	reimbursements *reimbursement.Repository,
	transactions *transaction.Repository,
) *RepositoryStore {
	return &RepositoryStore{
		relationships:  relationships,
		receipts:       receipts,
		contents:       contents,
		reimbursements: reimbursements,
		transactions:   transactions,
	}
}

func (s *RepositoryStore) ListEdges(ctx context.Context, tenantID string, ref models.EntityRef) ([]models.EntityRelationship, error) {
	return s.relationships.ListForEntity(ctx, tenantID, ref)
}

func (s *RepositoryStore) GetReceipt(ctx context.Context, tenantID string, id string) (*models.Receipt, error) {
	return s.receipts.GetByID(ctx, tenantID, id)
}

func (s *RepositoryStore) GetReceiptContent(ctx context.Context, tenantID string, receiptID string) (*models.ReceiptContent, error) {
	return s.contents.GetByReceiptID(ctx, tenantID, receiptID)
}

func (s *RepositoryStore) GetReimbursement(ctx context.Context, tenantID string, id string) (*models.Reimbursement, error) {
	return s.reimbursements.GetByID(ctx, tenantID, id)
}

func (s *RepositoryStore) GetTransaction(ctx context.Context, tenantID string, id string) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, tenantID, id)
}

func (s *RepositoryStore) UpdateReceipt(ctx context.Context, tenantID string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error) {
	return s.receipts.Update(ctx, tenantID, id, req)
}

func (s *RepositoryStore) UpdateReimbursement(ctx context.Context, tenantID string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error) {
	return s.reimbursements.Update(ctx, tenantID, id, req)
}

func (s *RepositoryStore) UpdateTransaction(ctx context.Context, tenantID string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	return s.transactions.Update(ctx, tenantID, id, req)
}
