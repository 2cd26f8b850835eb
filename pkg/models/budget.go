package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a planned spending envelope for a committee period
type Budget struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Name        string          `json:"name" db:"name"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Category    *string         `json:"category,omitempty" db:"category"`
	PeriodStart *time.Time      `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty" db:"period_end"`
	CreatedBy   *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateBudgetRequest is the request for creating a budget
type CreateBudgetRequest struct {
	Name        string          `json:"name" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Category    *string         `json:"category,omitempty"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty"`
}

// UpdateBudgetRequest is the request for updating a budget
type UpdateBudgetRequest struct {
	Name        *string          `json:"name,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	PeriodStart *time.Time       `json:"period_start,omitempty"`
	PeriodEnd   *time.Time       `json:"period_end,omitempty"`
}

// BudgetListResponse is the response for listing budgets
type BudgetListResponse struct {
	Items      []Budget `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
