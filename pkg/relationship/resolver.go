package relationship

import "github.com/Ramsey-B/clover/pkg/models"

// ResolveSource picks the entity whose values dominate a graph.
// Receipts beat reimbursements, reimbursements beat transactions, and
// within a bucket the first element wins. An empty graph resolves to
// unknown, which is a valid outcome rather than an error.
func ResolveSource(graph *models.RelationshipGraph) models.SourceSelection {
	if graph == nil {
		return models.SourceSelection{Kind: models.SourceUnknown}
	}

	if len(graph.Receipts) > 0 {
		return models.SourceSelection{
			Kind:    models.SourceReceipt,
			Receipt: &graph.Receipts[0],
		}
	}

	if len(graph.Reimbursements) > 0 {
		return models.SourceSelection{
			Kind:          models.SourceReimbursement,
			Reimbursement: &graph.Reimbursements[0],
		}
	}

	if len(graph.Transactions) > 0 {
		return models.SourceSelection{
			Kind:        models.SourceTransaction,
			Transaction: &graph.Transactions[0],
		}
	}

	return models.SourceSelection{Kind: models.SourceUnknown}
}
