package relationship

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeStore struct {
	edges          []models.EntityRelationship
	receipts       map[string]*models.Receipt
	contents       map[string]*models.ReceiptContent
	reimbursements map[string]*models.Reimbursement
	transactions   map[string]*models.Transaction

	edgesErr   error
	edgesCalls int
	lookupErrs map[string]error

	receiptUpdates       map[string]models.UpdateReceiptRequest
	reimbursementUpdates map[string]models.UpdateReimbursementRequest
	transactionUpdates   map[string]models.UpdateTransactionRequest
	updateErrs           map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		receipts:             map[string]*models.Receipt{},
		contents:             map[string]*models.ReceiptContent{},
		reimbursements:       map[string]*models.Reimbursement{},
		transactions:         map[string]*models.Transaction{},
		lookupErrs:           map[string]error{},
		receiptUpdates:       map[string]models.UpdateReceiptRequest{},
		reimbursementUpdates: map[string]models.UpdateReimbursementRequest{},
		transactionUpdates:   map[string]models.UpdateTransactionRequest{},
		updateErrs:           map[string]error{},
	}
}

func (s *fakeStore) link(a, b models.EntityRef) {
	s.edges = append(s.edges, models.EntityRelationship{
		ID:            fmt.Sprintf("edge-%d", len(s.edges)+1),
		TenantID:      "t1",
		RelationAType: a.Kind,
		RelationAID:   a.ID,
		RelationBType: b.Kind,
		RelationBID:   b.ID,
	})
}

func (s *fakeStore) ListEdges(_ context.Context, _ string, _ models.EntityRef) ([]models.EntityRelationship, error) {
	s.edgesCalls++
	if s.edgesErr != nil {
		return nil, s.edgesErr
	}
	return s.edges, nil
}

func (s *fakeStore) GetReceipt(_ context.Context, _ string, id string) (*models.Receipt, error) {
	if err := s.lookupErrs["receipt:"+id]; err != nil {
		return nil, err
	}
	return s.receipts[id], nil
}

func (s *fakeStore) GetReceiptContent(_ context.Context, _ string, receiptID string) (*models.ReceiptContent, error) {
	if err := s.lookupErrs["content:"+receiptID]; err != nil {
		return nil, err
	}
	return s.contents[receiptID], nil
}

func (s *fakeStore) GetReimbursement(_ context.Context, _ string, id string) (*models.Reimbursement, error) {
	if err := s.lookupErrs["reimbursement:"+id]; err != nil {
		return nil, err
	}
	return s.reimbursements[id], nil
}

func (s *fakeStore) GetTransaction(_ context.Context, _ string, id string) (*models.Transaction, error) {
	if err := s.lookupErrs["transaction:"+id]; err != nil {
		return nil, err
	}
	return s.transactions[id], nil
}

func (s *fakeStore) UpdateReceipt(_ context.Context, _ string, id string, req models.UpdateReceiptRequest) (*models.Receipt, error) {
	if err := s.updateErrs["receipt:"+id]; err != nil {
		return nil, err
	}
	if s.receipts[id] == nil {
		return nil, nil
	}
	s.receiptUpdates[id] = req
	return s.receipts[id], nil
}

func (s *fakeStore) UpdateReimbursement(_ context.Context, _ string, id string, req models.UpdateReimbursementRequest) (*models.Reimbursement, error) {
	if err := s.updateErrs["reimbursement:"+id]; err != nil {
		return nil, err
	}
	if s.reimbursements[id] == nil {
		return nil, nil
	}
	s.reimbursementUpdates[id] = req
	return s.reimbursements[id], nil
}

func (s *fakeStore) UpdateTransaction(_ context.Context, _ string, id string, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := s.updateErrs["transaction:"+id]; err != nil {
		return nil, err
	}
	if s.transactions[id] == nil {
		return nil, nil
	}
	s.transactionUpdates[id] = req
	return s.transactions[id], nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string {
	return &s
}

func ref(kind models.EntityKind, id string) models.EntityRef {
	return models.EntityRef{Kind: kind, ID: id}
}

func TestContextForReceiptDominates(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1", TenantID: "t1", Name: "Paint supplies"}
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:    "r1",
		PurchaseDate: strPtr("2025-03-10"),
		TotalAmount:  strPtr("42.50"),
		StoreName:    strPtr("Hardware Hut"),
		Items:        strPtr(`[{"name":"paint","quantity":2,"unit_price":"10.00"},{"name":"brushes","total_price":22.50}]`),
	}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", TenantID: "t1", Amount: decimal.NewFromFloat(-42.50)}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))

	engine := NewEngine(store, testLogger(), DefaultConfig())

	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	assert.Equal(t, "r1", rc.ID)
	require.NotNil(t, rc.Date)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *rc.Date)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("42.50")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "Hardware Hut", *rc.Description)
	require.Len(t, rc.LineItems, 2)
	assert.Equal(t, "paint", rc.LineItems[0].Name)
	assert.Equal(t, []string{"receipt:r1", "transaction:tx1"}, rc.LinkedEntityIDs)

	// Never populated by the current mappings
	assert.Nil(t, rc.Currency)
	assert.Nil(t, rc.PurchaserID)
}

func TestContextForUnlinkedEntityIsUnknown(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, testLogger(), DefaultConfig())

	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindBudget, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.SourceUnknown, rc.ValueSource)
	assert.Empty(t, rc.ID)
	assert.Nil(t, rc.Date)
	assert.Nil(t, rc.TotalAmount)
	assert.Nil(t, rc.Description)
	assert.Empty(t, rc.LinkedEntityIDs)
	assert.Empty(t, rc.LineItems)
}

func TestContextForEdgeLookupFailure(t *testing.T) {
	store := newFakeStore()
	store.edgesErr = fmt.Errorf("connection refused")
	engine := NewEngine(store, testLogger(), DefaultConfig())

	_, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	assert.Error(t, err)
}

func TestPropagateFromReceipt(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1", TenantID: "t1", Name: "Paint supplies"}
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:    "r1",
		PurchaseDate: strPtr("2025-03-10"),
		TotalAmount:  strPtr("42.50"),
		StoreName:    strPtr("Hardware Hut"),
	}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", TenantID: "t1", Amount: decimal.NewFromFloat(-40)}
	store.reimbursements["rb1"] = &models.Reimbursement{ID: "rb1", TenantID: "t1", Amount: decimal.NewFromInt(40)}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindReimbursement, "rb1"))

	engine := NewEngine(store, testLogger(), DefaultConfig())

	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, resp.ValueSource)
	require.Len(t, resp.Results, 3)
	for _, result := range resp.Results {
		assert.Nil(t, result.Error)
		assert.True(t, result.Updated)
	}

	// The transaction takes the negated total plus date and description
	txReq := store.transactionUpdates["tx1"]
	require.NotNil(t, txReq.Amount)
	assert.True(t, txReq.Amount.Equal(decimal.RequireFromString("-42.50")))
	require.NotNil(t, txReq.Date)
	require.NotNil(t, txReq.Description)
	assert.Equal(t, "Hardware Hut", *txReq.Description)

	// The reimbursement takes amount and description only
	rbReq := store.reimbursementUpdates["rb1"]
	require.NotNil(t, rbReq.Amount)
	assert.True(t, rbReq.Amount.Equal(decimal.RequireFromString("42.50")))
	require.NotNil(t, rbReq.Description)
	assert.Nil(t, rbReq.Status)

	// The source receipt only refreshes its display name
	rReq := store.receiptUpdates["r1"]
	require.NotNil(t, rReq.Name)
	assert.Equal(t, "Hardware Hut", *rReq.Name)
	assert.Nil(t, rReq.PurchaserID)
}

func TestPropagateOverridesReimbursementAmount(t *testing.T) {
	// A member filed the reimbursement for 99.00 before the receipt was
	// scanned. Once linked, the scanned total wins.
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1", TenantID: "t1", Name: "Groceries"}
	store.contents["r1"] = &models.ReceiptContent{
		ReceiptID:   "r1",
		TotalAmount: strPtr("12.50"),
		StoreName:   strPtr("K-Market"),
	}
	store.reimbursements["p1"] = &models.Reimbursement{ID: "p1", TenantID: "t1", Amount: decimal.RequireFromString("99.00")}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindReimbursement, "p1"))

	engine := NewEngine(store, testLogger(), DefaultConfig())

	rc, err := engine.ContextFor(context.Background(), "t1", ref(models.EntityKindReimbursement, "p1"))
	require.NoError(t, err)
	assert.Equal(t, models.SourceReceipt, rc.ValueSource)
	require.NotNil(t, rc.TotalAmount)
	assert.True(t, rc.TotalAmount.Equal(decimal.RequireFromString("12.50")))
	require.NotNil(t, rc.Description)
	assert.Equal(t, "K-Market", *rc.Description)
	assert.Equal(t, []string{"receipt:r1", "reimbursement:p1"}, rc.LinkedEntityIDs)
	assert.Nil(t, rc.Date)

	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReimbursement, "p1"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	rbReq := store.reimbursementUpdates["p1"]
	require.NotNil(t, rbReq.Amount)
	assert.True(t, rbReq.Amount.Equal(decimal.RequireFromString("12.50")))
	require.NotNil(t, rbReq.Description)
	assert.Equal(t, "K-Market", *rbReq.Description)

	rReq := store.receiptUpdates["r1"]
	require.NotNil(t, rReq.Name)
	assert.Equal(t, "K-Market", *rReq.Name)
}

func TestPropagateIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	store.reimbursements["rb1"] = &models.Reimbursement{
		ID:          "rb1",
		TenantID:    "t1",
		Amount:      decimal.NewFromInt(15),
		Description: strPtr("Pizza night"),
		CreatedAt:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", TenantID: "t1", Amount: decimal.NewFromInt(-15)}
	store.transactions["tx2"] = &models.Transaction{ID: "tx2", TenantID: "t1", Amount: decimal.NewFromInt(-15)}
	store.link(ref(models.EntityKindReimbursement, "rb1"), ref(models.EntityKindTransaction, "tx1"))
	store.link(ref(models.EntityKindReimbursement, "rb1"), ref(models.EntityKindTransaction, "tx2"))
	store.updateErrs["transaction:tx1"] = fmt.Errorf("deadlock detected")

	engine := NewEngine(store, testLogger(), DefaultConfig())

	resp, err := engine.Propagate(context.Background(), "t1", ref(models.EntityKindReimbursement, "rb1"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	byID := map[string]models.PropagationResult{}
	for _, result := range resp.Results {
		byID[result.ID] = result
	}

	require.NotNil(t, byID["tx1"].Error)
	assert.False(t, byID["tx1"].Updated)

	// The sibling still went through
	assert.Nil(t, byID["tx2"].Error)
	assert.True(t, byID["tx2"].Updated)
	req := store.transactionUpdates["tx2"]
	require.NotNil(t, req.Amount)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(-15)))
}
