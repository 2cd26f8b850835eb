package relationship

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/fanout"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Fetcher loads the single-hop neighborhood of an entity. Direct
// neighbors only, never a full traversal.
type Fetcher struct {
	store   Store
	logger  ectologger.Logger
	workers int
}

// NewFetcher creates a new graph fetcher
func NewFetcher(store Store, logger ectologger.Logger, workers int) *Fetcher {
	return &Fetcher{
		store:   store,
		logger:  logger,
		workers: workers,
	}
}

type hydrated struct {
	receipt       *models.Receipt
	reimbursement *models.Reimbursement
	transaction   *models.Transaction
}

// FetchGraph loads all live edges touching the start entity and
// hydrates the start node plus every neighbor. The start entity does
// not need to exist; a missing entity just yields empty buckets. A
// neighbor whose lookup fails or comes back empty is dropped, never an
// error.
func (f *Fetcher) FetchGraph(ctx context.Context, tenantID string, start models.EntityRef) (*models.RelationshipGraph, error) {
	ctx, span := tracing.StartSpan(ctx, "relationship.Fetcher.FetchGraph")
	defer span.End()

	log := f.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"entity":    start.String(),
	})

	edges, err := f.store.ListEdges(ctx, tenantID, start)
	if err != nil {
		return nil, err
	}

	// The start node is always fetched first, then neighbors in edge
	// order. Bucket order downstream depends on this.
	refs := make([]models.EntityRef, 0, len(edges)+1)
	refs = append(refs, start)
	for _, edge := range edges {
		other, ok := edge.Other(start)
		if !ok {
			continue
		}
		refs = append(refs, other)
	}

	results := fanout.Run(ctx, refs, f.workers, func(ctx context.Context, ref models.EntityRef) (hydrated, error) {
		return f.hydrate(ctx, tenantID, ref)
	})

	graph := &models.RelationshipGraph{
		Receipts:       []models.Receipt{},
		Reimbursements: []models.Reimbursement{},
		Transactions:   []models.Transaction{},
		AllEdges:       edges,
	}

	// Merge in fetch order. A duplicate id replaces the earlier value
	// but keeps its original position.
	receiptIdx := map[string]int{}
	reimbursementIdx := map[string]int{}
	transactionIdx := map[string]int{}
	nodes := 0

	for i, res := range results {
		if res.Err != nil {
			log.WithError(res.Err).WithField("node", refs[i].String()).Warn("Dropping node that failed to load")
			continue
		}

		switch {
		case res.Value.receipt != nil:
			if pos, ok := receiptIdx[res.Value.receipt.ID]; ok {
				graph.Receipts[pos] = *res.Value.receipt
			} else {
				receiptIdx[res.Value.receipt.ID] = len(graph.Receipts)
				graph.Receipts = append(graph.Receipts, *res.Value.receipt)
			}
			nodes++
		case res.Value.reimbursement != nil:
			if pos, ok := reimbursementIdx[res.Value.reimbursement.ID]; ok {
				graph.Reimbursements[pos] = *res.Value.reimbursement
			} else {
				reimbursementIdx[res.Value.reimbursement.ID] = len(graph.Reimbursements)
				graph.Reimbursements = append(graph.Reimbursements, *res.Value.reimbursement)
			}
			nodes++
		case res.Value.transaction != nil:
			if pos, ok := transactionIdx[res.Value.transaction.ID]; ok {
				graph.Transactions[pos] = *res.Value.transaction
			} else {
				transactionIdx[res.Value.transaction.ID] = len(graph.Transactions)
				graph.Transactions = append(graph.Transactions, *res.Value.transaction)
			}
			nodes++
		}
	}

	metrics.GraphNodesFetched.Observe(float64(nodes))
	log.WithFields(map[string]any{
		"edges":          len(edges),
		"receipts":       len(graph.Receipts),
		"reimbursements": len(graph.Reimbursements),
		"transactions":   len(graph.Transactions),
	}).Debug("Fetched relationship graph")

	return graph, nil
}

// hydrate looks up a single node. Only receipts, reimbursements and
// transactions are loaded; every other kind stays edge-only.
func (f *Fetcher) hydrate(ctx context.Context, tenantID string, ref models.EntityRef) (hydrated, error) {
	switch ref.Kind {
	case models.EntityKindReceipt:
		receipt, err := f.store.GetReceipt(ctx, tenantID, ref.ID)
		return hydrated{receipt: receipt}, err
	case models.EntityKindReimbursement:
		reimbursement, err := f.store.GetReimbursement(ctx, tenantID, ref.ID)
		return hydrated{reimbursement: reimbursement}, err
	case models.EntityKindTransaction:
		transaction, err := f.store.GetTransaction(ctx, tenantID, ref.ID)
		return hydrated{transaction: transaction}, err
	default:
		return hydrated{}, nil
	}
}
