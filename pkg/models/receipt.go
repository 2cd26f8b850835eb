package models

import "time"

// Receipt scan lifecycle states.
const (
	ScanStatusPending = "pending"
	ScanStatusScanned = "scanned"
	ScanStatusFailed  = "failed"
)

// Receipt represents an uploaded purchase receipt. OCR-derived fields live
// in the ReceiptContent sub-record, never on the receipt row itself.
type Receipt struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	Name        string     `json:"name" db:"name"`
	FileRef     string     `json:"file_ref" db:"file_ref"`
	ScanStatus  string     `json:"scan_status" db:"scan_status"`
	PurchaserID *string    `json:"purchaser_id,omitempty" db:"purchaser_id"`
	CreatedBy   *string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ReceiptContent is the OCR output captured for a receipt at scan time.
// Amounts and dates are kept as the raw strings the provider produced;
// they are parsed leniently only when a relationship context is built.
type ReceiptContent struct {
	ReceiptID    string     `json:"receipt_id" db:"receipt_id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	PurchaseDate *string    `json:"purchase_date,omitempty" db:"purchase_date"`
	TotalAmount  *string    `json:"total_amount,omitempty" db:"total_amount"`
	StoreName    *string    `json:"store_name,omitempty" db:"store_name"`
	Currency     *string    `json:"currency,omitempty" db:"currency"`
	Items        *string    `json:"items,omitempty" db:"items"` // raw JSON string
	Provider     string     `json:"provider" db:"provider"`
	ScannedAt    time.Time  `json:"scanned_at" db:"scanned_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateReceiptRequest is the request for uploading a receipt record
type CreateReceiptRequest struct {
	Name        string  `json:"name" validate:"required"`
	FileRef     string  `json:"file_ref" validate:"required"`
	PurchaserID *string `json:"purchaser_id,omitempty"`
}

// UpdateReceiptRequest is the request for updating receipt metadata.
// OCR content is never updated through this path.
type UpdateReceiptRequest struct {
	Name        *string `json:"name,omitempty"`
	PurchaserID *string `json:"purchaser_id,omitempty"`
}

// UpsertReceiptContentRequest stores the fields extracted by a scan
type UpsertReceiptContentRequest struct {
	PurchaseDate *string `json:"purchase_date,omitempty"`
	TotalAmount  *string `json:"total_amount,omitempty"`
	StoreName    *string `json:"store_name,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	Items        *string `json:"items,omitempty"`
	Provider     string  `json:"provider" validate:"required"`
}

// ReceiptResponse wraps a single receipt
type ReceiptResponse struct {
	Receipt Receipt `json:"receipt"`
}

// ReceiptListResponse is the response for listing receipts
type ReceiptListResponse struct {
	Items      []Receipt `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
