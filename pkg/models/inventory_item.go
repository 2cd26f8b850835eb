package models

import "time"

// InventoryItem is a physical asset the committee owns or tracks
type InventoryItem struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       string         `json:"name"`
	Quantity   int            `json:"quantity"`
	Location   *string        `json:"location,omitempty"`
	Attributes map[string]any `json:"attributes"`
	CreatedBy  *string        `json:"created_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  *time.Time     `json:"deleted_at,omitempty"`
}

// CreateInventoryItemRequest is the request for adding an inventory item
type CreateInventoryItemRequest struct {
	Name       string         `json:"name" validate:"required"`
	Quantity   int            `json:"quantity" validate:"gte=0"`
	Location   *string        `json:"location,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// UpdateInventoryItemRequest is the request for updating an inventory item
type UpdateInventoryItemRequest struct {
	Name       *string        `json:"name,omitempty"`
	Quantity   *int           `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Location   *string        `json:"location,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// InventoryItemListResponse is the response for listing inventory items
type InventoryItemListResponse struct {
	Items      []InventoryItem `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
