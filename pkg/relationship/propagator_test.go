package relationship

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestPropagateSkipsWhenAllFieldsNull(t *testing.T) {
	store := newFakeStore()
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", Amount: decimal.NewFromInt(-5)}

	propagator := NewPropagator(store, testLogger())
	rc := &models.RelationshipContext{
		ValueSource:     models.SourceUnknown,
		LinkedEntityIDs: []string{"transaction:tx1"},
	}

	results := propagator.Propagate(context.Background(), "t1", rc)
	require.Len(t, results, 1)
	assert.False(t, results[0].Updated)
	assert.Nil(t, results[0].Error)

	// Nothing was written
	assert.Empty(t, store.transactionUpdates)
}

func TestPropagateOmitsNullFields(t *testing.T) {
	store := newFakeStore()
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", Amount: decimal.NewFromInt(-5)}

	amount := decimal.RequireFromString("30.00")
	propagator := NewPropagator(store, testLogger())
	rc := &models.RelationshipContext{
		ValueSource:     models.SourceReceipt,
		TotalAmount:     &amount,
		LinkedEntityIDs: []string{"transaction:tx1"},
	}

	results := propagator.Propagate(context.Background(), "t1", rc)
	require.Len(t, results, 1)
	assert.True(t, results[0].Updated)

	req := store.transactionUpdates["tx1"]
	require.NotNil(t, req.Amount)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("-30.00")))
	assert.Nil(t, req.Date)
	assert.Nil(t, req.Description)
	assert.Nil(t, req.Category)
}

func TestPropagateReceiptGetsNameOnly(t *testing.T) {
	store := newFakeStore()
	store.receipts["r2"] = &models.Receipt{ID: "r2", Name: "old name"}

	amount := decimal.RequireFromString("30.00")
	propagator := NewPropagator(store, testLogger())
	rc := &models.RelationshipContext{
		ValueSource:     models.SourceTransaction,
		TotalAmount:     &amount,
		Description:     strPtr("Garden center"),
		LinkedEntityIDs: []string{"receipt:r2"},
	}

	results := propagator.Propagate(context.Background(), "t1", rc)
	require.Len(t, results, 1)
	assert.True(t, results[0].Updated)

	req := store.receiptUpdates["r2"]
	require.NotNil(t, req.Name)
	assert.Equal(t, "Garden center", *req.Name)
	assert.Nil(t, req.PurchaserID)
}

func TestPropagateRecordsMissingEntities(t *testing.T) {
	store := newFakeStore()

	amount := decimal.RequireFromString("30.00")
	propagator := NewPropagator(store, testLogger())
	rc := &models.RelationshipContext{
		ValueSource:     models.SourceReceipt,
		TotalAmount:     &amount,
		LinkedEntityIDs: []string{"transaction:gone"},
	}

	results := propagator.Propagate(context.Background(), "t1", rc)
	require.Len(t, results, 1)
	assert.False(t, results[0].Updated)
	require.NotNil(t, results[0].Error)
	assert.Contains(t, *results[0].Error, "not found")
}

func TestPropagateMalformedLinkedID(t *testing.T) {
	store := newFakeStore()

	propagator := NewPropagator(store, testLogger())
	rc := &models.RelationshipContext{
		ValueSource:     models.SourceUnknown,
		LinkedEntityIDs: []string{"not-a-ref"},
	}

	results := propagator.Propagate(context.Background(), "t1", rc)
	require.Len(t, results, 1)
	assert.False(t, results[0].Updated)
	assert.NotNil(t, results[0].Error)
}
