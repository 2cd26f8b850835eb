package relationship

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Builder maps a resolved source entity onto a relationship context.
// Every mapping is lossy on purpose: malformed stored values become
// nulls, never errors.
type Builder struct {
	store  Store
	logger ectologger.Logger
}

// NewBuilder creates a new context builder
func NewBuilder(store Store, logger ectologger.Logger) *Builder {
	return &Builder{
		store:  store,
		logger: logger,
	}
}

// BuildContext assembles the context for a graph and its resolved
// source. linkedEntityIds always covers every hydrated node; the value
// fields come from the dominant entity alone.
func (b *Builder) BuildContext(ctx context.Context, tenantID string, sel models.SourceSelection, graph *models.RelationshipGraph) models.RelationshipContext {
	ctx, span := tracing.StartSpan(ctx, "relationship.Builder.BuildContext")
	defer span.End()

	rc := models.RelationshipContext{
		ValueSource:     sel.Kind,
		LineItems:       []models.RelationshipContextLineItem{},
		LinkedEntityIDs: linkedEntityIDs(graph),
	}

	switch sel.Kind {
	case models.SourceReceipt:
		b.applyReceipt(ctx, tenantID, sel.Receipt, &rc)
	case models.SourceReimbursement:
		applyReimbursement(sel.Reimbursement, &rc)
	case models.SourceTransaction:
		applyTransaction(sel.Transaction, &rc)
	}

	return rc
}

func linkedEntityIDs(graph *models.RelationshipGraph) []string {
	if graph == nil {
		return []string{}
	}

	ids := make([]string, 0, len(graph.Receipts)+len(graph.Reimbursements)+len(graph.Transactions))
	for _, r := range graph.Receipts {
		ids = append(ids, models.EntityRef{Kind: models.EntityKindReceipt, ID: r.ID}.String())
	}
	for _, r := range graph.Reimbursements {
		ids = append(ids, models.EntityRef{Kind: models.EntityKindReimbursement, ID: r.ID}.String())
	}
	for _, t := range graph.Transactions {
		ids = append(ids, models.EntityRef{Kind: models.EntityKindTransaction, ID: t.ID}.String())
	}
	return ids
}

// applyReceipt maps the receipt's scanned content onto the context. A
// receipt that was never scanned keeps all value fields null while the
// value source stays receipt.
func (b *Builder) applyReceipt(ctx context.Context, tenantID string, receipt *models.Receipt, rc *models.RelationshipContext) {
	rc.ID = receipt.ID

	content, err := b.store.GetReceiptContent(ctx, tenantID, receipt.ID)
	if err != nil {
		b.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"receipt_id": receipt.ID,
		}).Warn("Failed to load receipt content, building context without values")
		return
	}
	if content == nil {
		return
	}

	if content.PurchaseDate != nil {
		rc.Date = parseDate(*content.PurchaseDate)
	}
	if content.TotalAmount != nil {
		rc.TotalAmount = parseAmount(*content.TotalAmount)
	}
	if content.StoreName != nil {
		rc.Description = content.StoreName
	} else {
		name := receipt.Name
		rc.Description = &name
	}
	if content.Items != nil {
		items, err := parseLineItems(*content.Items)
		if err != nil {
			b.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id":  tenantID,
				"receipt_id": receipt.ID,
			}).Warn("Failed to parse receipt line items")
			items = []models.RelationshipContextLineItem{}
		}
		rc.LineItems = items
	}
}

// applyReimbursement uses the creation time as the purchase date, the
// closest thing a reimbursement records.
func applyReimbursement(reimbursement *models.Reimbursement, rc *models.RelationshipContext) {
	rc.ID = reimbursement.ID

	createdAt := reimbursement.CreatedAt
	rc.Date = &createdAt

	amount := reimbursement.Amount
	rc.TotalAmount = &amount

	if reimbursement.Description != nil {
		rc.Description = reimbursement.Description
	} else {
		rc.Description = reimbursement.MinutesName
	}
}

// applyTransaction reports the positive magnitude; the signed value
// stays in the transaction row.
func applyTransaction(transaction *models.Transaction, rc *models.RelationshipContext) {
	rc.ID = transaction.ID
	rc.Date = transaction.Date

	amount := transaction.Amount.Abs()
	rc.TotalAmount = &amount

	rc.Description = transaction.Description
	rc.Category = transaction.Category
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// parseDate tries the date formats scan providers are known to emit.
// Anything unrecognized becomes nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseAmount reads a money string leniently, tolerating currency
// symbols and thousands separators. Malformed values become nil.
func parseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

type rawLineItem struct {
	Name       string          `json:"name"`
	Quantity   json.RawMessage `json:"quantity"`
	UnitPrice  json.RawMessage `json:"unit_price"`
	TotalPrice json.RawMessage `json:"total_price"`
	Tags       []string        `json:"tags"`
}

// parseLineItems decodes the stored item JSON. Quantities and prices
// arrive as numbers or strings depending on the provider, so each is
// coerced independently and dropped to nil when unreadable.
func parseLineItems(raw string) ([]models.RelationshipContextLineItem, error) {
	var rawItems []rawLineItem
	if err := json.Unmarshal([]byte(raw), &rawItems); err != nil {
		return nil, err
	}

	items := make([]models.RelationshipContextLineItem, 0, len(rawItems))
	for _, ri := range rawItems {
		item := models.RelationshipContextLineItem{
			Name:       ri.Name,
			Quantity:   coerceDecimal(ri.Quantity),
			UnitPrice:  coerceDecimal(ri.UnitPrice),
			TotalPrice: coerceDecimal(ri.TotalPrice),
			Tags:       ri.Tags,
		}
		if ri.Name != "" {
			name := ri.Name
			item.SourceItemID = &name
		}
		items = append(items, item)
	}
	return items, nil
}

// coerceDecimal reads a JSON value that may be a number or a quoted
// string
func coerceDecimal(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseAmount(s)
	}

	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err == nil {
		return &d
	}
	return nil
}
