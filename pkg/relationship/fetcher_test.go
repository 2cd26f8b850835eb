package relationship

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestFetchGraphStartNodeComesFirst(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1", Name: "start"}
	store.receipts["r2"] = &models.Receipt{ID: "r2", Name: "neighbor"}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindReceipt, "r2"))

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	require.Len(t, graph.Receipts, 2)
	assert.Equal(t, "r1", graph.Receipts[0].ID)
	assert.Equal(t, "r2", graph.Receipts[1].ID)
}

func TestFetchGraphSingleHopOnly(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1"}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", Amount: decimal.NewFromInt(-5)}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))

	fetcher := NewFetcher(store, testLogger(), 4)
	_, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	// One edge query for the start node, never one per neighbor
	assert.Equal(t, 1, store.edgesCalls)
}

func TestFetchGraphDropsMissingNeighbors(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1"}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "gone"))
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindReimbursement, "rb1"))
	store.reimbursements["rb1"] = &models.Reimbursement{ID: "rb1", Amount: decimal.NewFromInt(9)}

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	assert.Len(t, graph.Receipts, 1)
	assert.Len(t, graph.Reimbursements, 1)
	assert.Empty(t, graph.Transactions)

	// Edges are reported even when a node is gone
	assert.Len(t, graph.AllEdges, 2)
}

func TestFetchGraphDropsFailedLookups(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1"}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", Amount: decimal.NewFromInt(-5)}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))
	store.lookupErrs["transaction:tx1"] = fmt.Errorf("query timeout")

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	assert.Len(t, graph.Receipts, 1)
	assert.Empty(t, graph.Transactions)
}

func TestFetchGraphDeduplicatesNodes(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1"}
	store.transactions["tx1"] = &models.Transaction{ID: "tx1", Amount: decimal.NewFromInt(-5)}

	// Two live edges to the same neighbor
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindTransaction, "tx1"))
	store.link(ref(models.EntityKindTransaction, "tx1"), ref(models.EntityKindReceipt, "r1"))

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	require.Len(t, graph.Transactions, 1)
	assert.Equal(t, "tx1", graph.Transactions[0].ID)
}

func TestFetchGraphNonHydratedKindsStayEdgeOnly(t *testing.T) {
	store := newFakeStore()
	store.receipts["r1"] = &models.Receipt{ID: "r1"}
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindBudget, "b1"))
	store.link(ref(models.EntityKindReceipt, "r1"), ref(models.EntityKindMinute, "m1"))

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "r1"))
	require.NoError(t, err)

	assert.Len(t, graph.Receipts, 1)
	assert.Empty(t, graph.Reimbursements)
	assert.Empty(t, graph.Transactions)
	assert.Len(t, graph.AllEdges, 2)
}

func TestFetchGraphMissingStartEntity(t *testing.T) {
	store := newFakeStore()

	fetcher := NewFetcher(store, testLogger(), 4)
	graph, err := fetcher.FetchGraph(context.Background(), "t1", ref(models.EntityKindReceipt, "missing"))
	require.NoError(t, err)

	assert.Empty(t, graph.Receipts)
	assert.Empty(t, graph.Reimbursements)
	assert.Empty(t, graph.Transactions)
	assert.Empty(t, graph.AllEdges)
}
