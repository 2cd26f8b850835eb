package integration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/relationship"
)

// memoryStore is an in-memory relationship.Store that applies updates
// to its entities, so values pushed by one propagation are visible to
// every later context build, the same way they would be when the
// engine runs against Postgres.
type memoryStore struct {
	edges          []models.EntityRelationship
	receipts       map[string]*models.Receipt
	contents       map[string]*models.ReceiptContent
	reimbursements map[string]*models.Reimbursement
	transactions   map[string]*models.Transaction

	failUpdates map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		receipts:       map[string]*models.Receipt{},
		contents:       map[string]*models.ReceiptContent{},
		reimbursements: map[string]*models.Reimbursement{},
		transactions:   map[string]*models.Transaction{},
		failUpdates:    map[string]error{},
	}
}

func (s *memoryStore) link(a, b models.EntityRef) {
	s.edges = append(s.edges, models.EntityRelationship{
		ID:            fmt.Sprintf("edge-%d", len(s.edges)+1),
		TenantID:      "t1",
		RelationAType: a.Kind,
		RelationAID:   a.ID,
		RelationBType: b.Kind,
		RelationBID:   b.ID,
	})
}

func (s *memoryStore) unlink(a, b models.EntityRef) {
	kept := s.edges[:0]
	for _, edge := range s.edges {
		other, ok := edge.Other(a)
		if ok && other == b {
			continue
		}
		kept = append(kept, edge)
	}
	s.edges = kept
}

func (s *memoryStore) ListEdges(_ context.Context, _ string, ref models.EntityRef) ([]models.EntityRelationship, error) {
	matched := []models.EntityRelationship{}
	for _, edge := range s.edges {
		if _, ok := edge.Other(ref); ok {
			matched = append(matched, edge)
		}
	}
	return matched, nil
}

func (s *memoryStore) GetReceipt(_ context.Context, _ string, id string) (*models.Receipt, error) {
	return s.receipts[id], nil
}

func (s *memoryStore) GetReceiptContent(_ context.Context, _ string, receiptID string) (*models.ReceiptContent, error) {
	return s.contents[receiptID], nil
}

func (s *memoryStore) GetReimbursement(_ context.Context, _ string, id string) (*models.Reimbursement, error) {
	return s.reimbursements[id], nil
}

func (s *memoryStore) GetTransaction(_ context.Context, _ string, id string) (*models.Transaction, error) {
	return s.transactions[id], nil
}

func (s *memoryStore) UpdateReceipt(_ context.Context, _ string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error) {
	if err := s.failUpdates["receipt:"+id]; err != nil {
		return nil, err
	}
	receipt := s.receipts[id]
	if receipt == nil {
		return nil, nil
	}
	if req.Name != nil {
		receipt.Name = *req.Name
	}
	if req.PurchaserID != nil {
		receipt.PurchaserID = req.PurchaserID
	}
	return receipt, nil
}

func (s *memoryStore) UpdateReimbursement(_ context.Context, _ string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error) {
	if err := s.failUpdates["reimbursement:"+id]; err != nil {
		return nil, err
	}
	reimbursement := s.reimbursements[id]
	if reimbursement == nil {
		return nil, nil
	}
	if req.Amount != nil {
		reimbursement.Amount = *req.Amount
	}
	if req.Description != nil {
		reimbursement.Description = req.Description
	}
	if req.MinutesName != nil {
		reimbursement.MinutesName = req.MinutesName
	}
	if req.Status != nil {
		reimbursement.Status = *req.Status
	}
	if req.PurchaserID != nil {
		reimbursement.PurchaserID = req.PurchaserID
	}
	return reimbursement, nil
}

func (s *memoryStore) UpdateTransaction(_ context.Context, _ string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := s.failUpdates["transaction:"+id]; err != nil {
		return nil, err
	}
	transaction := s.transactions[id]
	if transaction == nil {
		return nil, nil
	}
	if req.Date != nil {
		transaction.Date = req.Date
	}
	if req.Amount != nil {
		transaction.Amount = *req.Amount
	}
	if req.Description != nil {
		transaction.Description = req.Description
	}
	if req.Category != nil {
		transaction.Category = req.Category
	}
	if req.AccountRef != nil {
		transaction.AccountRef = req.AccountRef
	}
	return transaction, nil
}

func quietLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string {
	return &s
}

func ref(kind models.EntityKind, id string) models.EntityRef {
	return models.EntityRef{Kind: kind, ID: id}
}

func TestReceiptScanToPropagationFlow(t *testing.T) {
	store := newMemoryStore()
	store.receipts["r1"] = &models.Receipt{
		ID:         "r1",
		TenantID:   "t1",
		Name:       "Spring banquet",
		ScanStatus: models.ScanStatusPending,
	}
	store.transactions["tx1"] = &models.Transaction{
		ID:       "tx1",
		TenantID: "t1",
		Amount:   decimal.RequireFromString("-112.00"),
	}
	store.reimbursements["rm1"] = &models.Reimbursement{
		ID:          "rm1",
		TenantID:    "t1",
		Amount:      decimal.NewFromInt(100),
		Description: strPtr("Banquet estimate"),
		Status:      models.ReimbursementStatusRequested,
		CreatedAt:   time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC),
	}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindReimbursement, "rm1"))

	engine := relationship.NewEngine(store, quietLogger(), relationship.DefaultConfig())

	// Before the scan lands the receipt already dominates, but it has no
	// values to offer yet.
	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	assert.Equal(t, "r1", rc.ID)
	assert.Nil(t, rc.Date)
	assert.Nil(t, rc.TotalAmount)
	assert.Nil(t, rc.Description)
	assert.Empty(t, rc.LineItems)
	assert.Equal(t, []string{"receipt:r1", "reimbursement:rm1", "transaction:tx1"}, rc.LinkedEntityIDs)

	// The scan pipeline lands OCR content. Raw provider strings only;
	// parsing happens when the context is rebuilt.
	store.receipts["r1"].ScanStatus = models.ScanStatusScanned
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:    "r1",
		TenantID:     "t1",
		PurchaseDate: strPtr("04/12/2025"),
		TotalAmount:  strPtr("$112.40"),
		StoreName:    strPtr("Riverside Catering"),
		Items:        strPtr(`[{"name":"Sheet cake","quantity":"1","unit_price":"45.00"},{"name":"Sandwich platter","quantity":2,"total_price":67.40}]`),
		Provider:     "textract",
	}

	rc, err = engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)
	require.NotNil(t, rc.Date)
	assert.Equal(t, time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC), *rc.Date)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("112.40")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "Riverside Catering", *rc.Description)
	require.Len(t, rc.LineItems, 2)
	require.NotNil(t, rc.LineItems[0].Quantity)
	assert.True(t, rc.LineItems[0].Quantity.Equal(decimal.NewFromInt(1)))
	require.NotNil(t, rc.LineItems[1].TotalPrice)
	assert.True(t, rc.LineItems[1].TotalPrice.Equal(decimal.RequireFromString("67.40")))

	// Confirming the autofill pushes the receipt's values out to every
	// linked entity, including the receipt itself.
	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, resp.ValueSource)
	require.Len(t, resp.Results, 3)
	for _, result := range resp.Results {
		assert.Nil(t, result.Error)
		assert.True(t, result.Updated)
	}

	transaction := store.transactions["tx1"]
	assert.True(t, transaction.Amount.Equal(decimal.RequireFromString("-112.40")))
	require.NotNil(t, transaction.Date)
	assert.Equal(t, time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC), *transaction.Date)
	require.NotNil(t, transaction.Description)
	assert.Equal(t, "Riverside Catering", *transaction.Description)

	reimbursement := store.reimbursements["rm1"]
	assert.True(t, reimbursement.Amount.Equal(decimal.RequireFromString("112.40")))
	require.NotNil(t, reimbursement.Description)
	assert.Equal(t, "Riverside Catering", *reimbursement.Description)
	assert.Equal(t, models.ReimbursementStatusRequested, reimbursement.Status)

	assert.Equal(t, "Riverside Catering", store.receipts["r1"].Name)

	// Seen from the transaction's side the receipt still owns the values.
	rc, err = engine.ContextFor(context.Background(), "t1", ref(models.EntityKindTransaction, "tx1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	assert.Equal(t, "r1", rc.ID)
	assert.Equal(t, []string{"receipt:r1", "transaction:tx1"}, rc.LinkedEntityIDs)
}

func TestReimbursementDominatesUntilReceiptLinked(t *testing.T) {
	store := newMemoryStore()
	createdAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	store.reimbursements["rm2"] = &models.Reimbursement{
		ID:          "rm2",
		TenantID:    "t1",
		Amount:      decimal.RequireFromString("58.25"),
		MinutesName: strPtr("April meeting"),
		Status:      models.ReimbursementStatusRequested,
		CreatedAt:   createdAt,
	}
	store.transactions["tx2"] = &models.Transaction{
		ID:       "tx2",
		TenantID: "t1",
		Amount:   decimal.RequireFromString("-58.25"),
	}
	store.link(ref(models.EntityKindReimbursement, "rm2"), ref(models.EntityKindTransaction, "tx2"))

	engine := relationship.NewEngine(store, quietLogger(), relationship.DefaultConfig())

	// Without a description the minutes name stands in for it.
	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReimbursement, "rm2"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReimbursement, rc.ValueSource)
	assert.Equal(t, "rm2", rc.ID)
	require.NotNil(t, rc.Date)
	assert.Equal(t, createdAt, *rc.Date)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("58.25")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "April meeting", *rc.Description)

	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReimbursement, "rm2"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	transaction := store.transactions["tx2"]
	assert.True(t, transaction.Amount.Equal(decimal.RequireFromString("-58.25")))
	require.NotNil(t, transaction.Description)
	assert.Equal(t, "April meeting", *transaction.Description)

	// A scanned receipt linked later takes over as the value source.
	store.receipts["r9"] = &models.Receipt{
		ID:         "r9",
		TenantID:   "t1",
		Name:       "April receipt",
		ScanStatus: models.ScanStatusScanned,
	}
	store.contents["r9"] = &models.ReceiptContent{
		ReceiptID:   "r9",
		TenantID:    "t1",
		TotalAmount: strPtr("61.80"),
		StoreName:   strPtr("Corner Grocer"),
	}
	store.link(ref(models.EntityKindReimbursement, "rm2"), ref(models.EntityKindReceipt, "r9"))

	rc, err = engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReimbursement, "rm2"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	assert.Equal(t, "r9", rc.ID)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("61.80")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "Corner Grocer", *rc.Description)
}

func TestEditedContextPropagatesAsGiven(t *testing.T) {
	store := newMemoryStore()
	store.receipts["r1"] = &models.Receipt{
		ID:         "r1",
		TenantID:   "t1",
		Name:       "Paint supplies",
		ScanStatus: models.ScanStatusScanned,
	}
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:   "r1",
		TenantID:    "t1",
		TotalAmount: strPtr("42.00"),
		StoreName:   strPtr("Hardware Hut"),
	}
	store.transactions["tx1"] = &models.Transaction{
		ID:       "tx1",
		TenantID: "t1",
		Amount:   decimal.RequireFromString("-42.00"),
	}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))

	engine := relationship.NewEngine(store, quietLogger(), relationship.DefaultConfig())

	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	// The treasurer adds the delivery fee the scan missed, then confirms.
	edited := *rc
	total := decimal.RequireFromString("45.00")
	edited.TotalAmount = &total
	edited.Description = strPtr("Hardware Hut incl. delivery")

	resp := engine.PropagateContext(context.Background(), "t1", &edited)
	assert.Equal(t, models.SourceReceipt, resp.ValueSource)
	require.Len(t, resp.Results, 2)
	for _, result := range resp.Results {
		assert.Nil(t, result.Error)
		assert.True(t, result.Updated)
	}

	transaction := store.transactions["tx1"]
	assert.True(t, transaction.Amount.Equal(decimal.RequireFromString("-45.00")))
	require.NotNil(t, transaction.Description)
	assert.Equal(t, "Hardware Hut incl. delivery", *transaction.Description)
	assert.Equal(t, "Hardware Hut incl. delivery", store.receipts["r1"].Name)

	// Entities trimmed from the edited link list are left alone.
	edited.LinkedEntityIDs = []string{"receipt:r1"}
	edited.Description = strPtr("Hardware Hut")
	resp = engine.PropagateContext(context.Background(), "t1", &edited)
	require.Len(t, resp.Results, 1)

	assert.Equal(t, "Hardware Hut", store.receipts["r1"].Name)
	assert.Equal(t, "Hardware Hut incl. delivery", *store.transactions["tx1"].Description)
}

func TestRepropagationAfterFailureConverges(t *testing.T) {
	store := newMemoryStore()
	store.reimbursements["rm1"] = &models.Reimbursement{
		ID:          "rm1",
		TenantID:    "t1",
		Amount:      decimal.NewFromInt(15),
		Description: strPtr("Pizza night"),
		Status:      models.ReimbursementStatusApproved,
		CreatedAt:   time.Date(2025, 5, 6, 18, 30, 0, 0, time.UTC),
	}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", TenantID: "t1", Amount: decimal.NewFromInt(-15)}
	store.transactions["tx2"] = &models.Transaction{ID: "tx2", TenantID: "t1", Amount: decimal.NewFromInt(-15)}
	store.link(ref(models.EntityKindReimbursement, "rm1"), ref(models.EntityKindTransaction, "tx1"))
	store.link(ref(models.EntityKindReimbursement, "rm1"), ref(models.EntityKindTransaction, "tx2"))
	store.failUpdates["transaction:tx1"] = errors.New("deadlock detected")

	engine := relationship.NewEngine(store, quietLogger(), relationship.DefaultConfig())

	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReimbursement, "rm1"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	byID := map[string]models.PropagationResult{}
	for _, result := range resp.Results {
		byID[result.ID] = result
	}
	require.NotNil(t, byID["tx1"].Error)
	assert.False(t, byID["tx1"].Updated)
	assert.True(t, byID["tx2"].Updated)

	// The failed transaction kept its bank-imported emptiness while the
	// sibling took the values.
	assert.Nil(t, store.transactions["tx1"].Description)
	require.NotNil(t, store.transactions["tx2"].Description)
	assert.Equal(t, "Pizza night", *store.transactions["tx2"].Description)

	// A retry after the contention clears brings the stragglers up to
	// date and re-applies the same values everywhere else.
	delete(store.failUpdates, "transaction:tx1")
	resp, err = engine.Propagate(context.Background(), "t1", ref(models.EntityKindReimbursement, "rm1"))
	require.NoError(t, err)
	for _, result := range resp.Results {
		assert.Nil(t, result.Error)
		assert.True(t, result.Updated)
	}

	require.NotNil(t, store.transactions["tx1"].Description)
	assert.Equal(t, "Pizza night", *store.transactions["tx1"].Description)
	assert.True(t, store.transactions["tx1"].Amount.Equal(decimal.NewFromInt(-15)))
	assert.True(t, store.transactions["tx2"].Amount.Equal(decimal.NewFromInt(-15)))
}

func TestUnlinkReturnsEntityToOwnValues(t *testing.T) {
	store := newMemoryStore()
	txDate := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	store.transactions["tx1"] = &models.Transaction{
		ID:          "tx1",
		TenantID:    "t1",
		Date:        &txDate,
		Amount:      decimal.RequireFromString("-19.99"),
		Description: strPtr("CARD 0231 OFFICEMART"),
	}
	store.receipts["r1"] = &models.Receipt{
		ID:         "r1",
		TenantID:   "t1",
		Name:       "Office supplies",
		ScanStatus: models.ScanStatusScanned,
	}
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:   "r1",
		TenantID:    "t1",
		TotalAmount: strPtr("19.99"),
		StoreName:   strPtr("OfficeMart"),
	}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))

	engine := relationship.NewEngine(store, quietLogger(), relationship.DefaultConfig())

	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindTransaction, "tx1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	assert.Equal(t, "r1", rc.ID)

	// Unlinked, the transaction falls back to its own row: positive
	// magnitude, bank description, statement date.
	store.unlink(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))

	rc, err = engine.ContextFor(context.Background(), "t1", ref(models.EntityKindTransaction, "tx1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceTransaction, rc.ValueSource)
	assert.Equal(t, "tx1", rc.ID)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("19.99")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "CARD 0231 OFFICEMART", *rc.Description)
	require.NotNil(t, rc.Date)
	assert.Equal(t, txDate, *rc.Date)
	assert.Equal(t, []string{"transaction:tx1"}, rc.LinkedEntityIDs)
}
