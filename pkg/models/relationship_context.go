package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceKind identifies which entity (if any) contributed the value
// fields of a relationship context.
type SourceKind string

const (
	SourceManual        SourceKind = "manual"
	SourceReceipt       SourceKind = "receipt"
	SourceReimbursement SourceKind = "reimbursement"
	SourceTransaction   SourceKind = "transaction"
	SourceBudget        SourceKind = "budget"
	SourceUnknown       SourceKind = "unknown"
)

// RelationshipGraph holds the single-hop neighborhood of an entity.
// Only receipts, reimbursements and transactions are hydrated; other
// kinds are visible through AllEdges only.
type RelationshipGraph struct {
	Receipts       []Receipt            `json:"receipts"`
	Reimbursements []Reimbursement      `json:"reimbursements"`
	Transactions   []Transaction        `json:"transactions"`
	AllEdges       []EntityRelationship `json:"all_edges"`
}

// SourceSelection is the outcome of resolving which entity dominates a
// graph. Exactly one of the entity pointers is set unless Kind is
// SourceUnknown.
type SourceSelection struct {
	Kind          SourceKind
	Receipt       *Receipt
	Reimbursement *Reimbursement
	Transaction   *Transaction
}

// RelationshipContextLineItem is one purchased item recovered from a
// receipt's scanned item list.
type RelationshipContextLineItem struct {
	Name         string           `json:"name"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice   *decimal.Decimal `json:"total_price,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	SourceItemID *string          `json:"source_item_id,omitempty"`
}

// RelationshipContext is the merged financial view of an entity and its
// direct links. It is recomputed on every request and never persisted.
type RelationshipContext struct {
	ID              string                        `json:"id"`
	Date            *time.Time                    `json:"date,omitempty"`
	TotalAmount     *decimal.Decimal              `json:"total_amount,omitempty"`
	Description     *string                       `json:"description,omitempty"`
	Currency        *string                       `json:"currency,omitempty"`
	Category        *string                       `json:"category,omitempty"`
	PurchaserID     *string                       `json:"purchaser_id,omitempty"`
	LineItems       []RelationshipContextLineItem `json:"line_items"`
	ValueSource     SourceKind                    `json:"value_source"`
	LinkedEntityIDs []string                      `json:"linked_entity_ids"`
}

// PropagationResult reports the outcome of pushing context values into
// one linked entity.
type PropagationResult struct {
	Kind    EntityKind `json:"kind"`
	ID      string     `json:"id"`
	Updated bool       `json:"updated"`
	Error   *string    `json:"error,omitempty"`
}

// PropagationResponse is the response for a propagation request
type PropagationResponse struct {
	ValueSource SourceKind          `json:"value_source"`
	Results     []PropagationResult `json:"results"`
}
