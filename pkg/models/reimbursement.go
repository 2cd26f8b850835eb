package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reimbursement statuses.
const (
	ReimbursementStatusRequested = "requested"
	ReimbursementStatusApproved  = "approved"
	ReimbursementStatusPaid      = "paid"
	ReimbursementStatusRejected  = "rejected"
)

// Reimbursement is a member's request to be paid back for an
// out-of-pocket purchase.
type Reimbursement struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description *string         `json:"description,omitempty" db:"description"`
	MinutesName *string         `json:"minutes_name,omitempty" db:"minutes_name"`
	Status      string          `json:"status" db:"status"`
	PurchaserID *string         `json:"purchaser_id,omitempty" db:"purchaser_id"`
	CreatedBy   *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateReimbursementRequest is the request for creating a reimbursement
type CreateReimbursementRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description,omitempty"`
	MinutesName *string         `json:"minutes_name,omitempty"`
	PurchaserID *string         `json:"purchaser_id,omitempty"`
}

// UpdateReimbursementRequest is the request for updating a reimbursement
type UpdateReimbursementRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	MinutesName *string          `json:"minutes_name,omitempty"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=requested approved paid rejected"`
	PurchaserID *string          `json:"purchaser_id,omitempty"`
}

// ReimbursementListResponse is the response for listing reimbursements
type ReimbursementListResponse struct {
	Items      []Reimbursement `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
