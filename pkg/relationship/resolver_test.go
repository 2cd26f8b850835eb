package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestResolveSourceReceiptBeatsEverything(t *testing.T) {
	graph := &models.RelationshipGraph{
		Receipts:       []models.Receipt{{ID: "r1"}},
		Reimbursements: []models.Reimbursement{{ID: "rb1"}},
		Transactions:   []models.Transaction{{ID: "tx1"}},
	}

	sel := ResolveSource(graph)
	assert.Equal(t, models.SourceReceipt, sel.Kind)
	require.NotNil(t, sel.Receipt)
	assert.Equal(t, "r1", sel.Receipt.ID)
	assert.Nil(t, sel.Reimbursement)
	assert.Nil(t, sel.Transaction)
}

func TestResolveSourceReimbursementBeatsTransaction(t *testing.T) {
	graph := &models.RelationshipGraph{
		Reimbursements: []models.Reimbursement{{ID: "rb1"}, {ID: "rb2"}},
		Transactions:   []models.Transaction{{ID: "tx1"}},
	}

	sel := ResolveSource(graph)
	assert.Equal(t, models.SourceReimbursement, sel.Kind)
	require.NotNil(t, sel.Reimbursement)
	assert.Equal(t, "rb1", sel.Reimbursement.ID)
}

func TestResolveSourceTransactionOnly(t *testing.T) {
	graph := &models.RelationshipGraph{
		Transactions: []models.Transaction{{ID: "tx2"}, {ID: "tx1"}},
	}

	sel := ResolveSource(graph)
	assert.Equal(t, models.SourceTransaction, sel.Kind)
	require.NotNil(t, sel.Transaction)

	// First element wins, not newest or oldest
	assert.Equal(t, "tx2", sel.Transaction.ID)
}

func TestResolveSourceEmptyGraphIsUnknown(t *testing.T) {
	sel := ResolveSource(&models.RelationshipGraph{})
	assert.Equal(t, models.SourceUnknown, sel.Kind)
	assert.Nil(t, sel.Receipt)
	assert.Nil(t, sel.Reimbursement)
	assert.Nil(t, sel.Transaction)
}

func TestResolveSourceNilGraphIsUnknown(t *testing.T) {
	sel := ResolveSource(nil)
	assert.Equal(t, models.SourceUnknown, sel.Kind)
}
