package inventoryitem

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

const inventoryItemsTable = "inventory_items"

// InventoryItemRow represents the database row for an inventory item
type InventoryItemRow struct {
	ID         string                         `db:"id"`
	TenantID   string                         `db:"tenant_id"`
	Name       string                         `db:"name"`
	Quantity   int                            `db:"quantity"`
	Location   *string                        `db:"location"`
	Attributes database.JSONB[map[string]any] `db:"attributes"`
	CreatedBy  *string                        `db:"created_by"`
	CreatedAt  time.Time                      `db:"created_at"`
	UpdatedAt  time.Time                      `db:"updated_at"`
	DeletedAt  *time.Time                     `db:"deleted_at"`
}

var inventoryItemStruct = database.NewStruct(new(InventoryItemRow))

// ToInventoryItem converts a database row to a domain model
func ToInventoryItem(row *InventoryItemRow) *models.InventoryItem {
	return &models.InventoryItem{
		ID:         row.ID,
		TenantID:   row.TenantID,
		Name:       row.Name,
		Quantity:   row.Quantity,
		Location:   row.Location,
		Attributes: row.Attributes.Data,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		DeletedAt:  row.DeletedAt,
	}
}

// ToInventoryItems converts a slice of database rows to domain models
func ToInventoryItems(rows []InventoryItemRow) []models.InventoryItem {
	items := make([]models.InventoryItem, len(rows))
	for i, row := range rows {
		items[i] = *ToInventoryItem(&row)
	}
	return items
}
