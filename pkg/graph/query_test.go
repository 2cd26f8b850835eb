package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestCollectValueDeduplicatesAcrossPaths(t *testing.T) {
	receipt := neo4j.Node{Labels: []string{"Receipt"}, Props: map[string]any{"id": "r1", "tenant_id": "t1"}}
	txn := neo4j.Node{Labels: []string{"Transaction"}, Props: map[string]any{"id": "tx1", "tenant_id": "t1"}}
	budget := neo4j.Node{Labels: []string{"Budget"}, Props: map[string]any{"id": "b1", "tenant_id": "t1"}}

	edge1 := neo4j.Relationship{Type: "LINKED", Props: map[string]any{"id": "rel1", "tenant_id": "t1"}}
	edge2 := neo4j.Relationship{Type: "LINKED", Props: map[string]any{"id": "rel2", "tenant_id": "t1"}}

	// Two paths out of the same start node share it and its first edge
	paths := []any{
		neo4j.Path{Nodes: []neo4j.Node{receipt, txn}, Relationships: []neo4j.Relationship{edge1}},
		neo4j.Path{Nodes: []neo4j.Node{receipt, txn, budget}, Relationships: []neo4j.Relationship{edge1, edge2}},
	}

	qr := &QueryResult{Nodes: make([]NodeResult, 0), Relationships: make([]RelResult, 0)}
	seenNodes := make(map[string]bool)
	seenRels := make(map[string]bool)
	collectValue(paths, qr, seenNodes, seenRels)

	assert.Len(t, qr.Nodes, 3)
	assert.Len(t, qr.Relationships, 2)
	assert.Equal(t, "r1", qr.Nodes[0].ID)
	assert.Equal(t, []string{"Receipt"}, qr.Nodes[0].Labels)
	assert.Equal(t, "rel1", qr.Relationships[0].ID)
	assert.Equal(t, "LINKED", qr.Relationships[0].Type)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Receipt", kindLabel(models.EntityKindReceipt))
	assert.Equal(t, "Reimbursement", kindLabel(models.EntityKindReimbursement))
	assert.Equal(t, "Transaction", kindLabel(models.EntityKindTransaction))
	assert.Equal(t, "Budget", kindLabel(models.EntityKindBudget))
	assert.Equal(t, "Inventory", kindLabel(models.EntityKindInventory))
	assert.Equal(t, "Minute", kindLabel(models.EntityKindMinute))
	assert.Equal(t, "Entity", kindLabel(models.EntityKind("mystery")))
}

func TestClampDepth(t *testing.T) {
	assert.Equal(t, 1, clampDepth(0))
	assert.Equal(t, 1, clampDepth(-3))
	assert.Equal(t, 3, clampDepth(3))
	assert.Equal(t, MaxTraversalDepth, clampDepth(50))
}
