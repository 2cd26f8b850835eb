package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a bank statement line. Amounts are signed: negative for
// money leaving the account, positive for money coming in.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Date        *time.Time      `json:"date,omitempty" db:"date"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description *string         `json:"description,omitempty" db:"description"`
	Category    *string         `json:"category,omitempty" db:"category"`
	AccountRef  *string         `json:"account_ref,omitempty" db:"account_ref"`
	CreatedBy   *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateTransactionRequest is the request for recording a transaction
type CreateTransactionRequest struct {
	Date        *time.Time      `json:"date,omitempty"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
	AccountRef  *string         `json:"account_ref,omitempty"`
}

// UpdateTransactionRequest is the request for updating a transaction
type UpdateTransactionRequest struct {
	Date        *time.Time       `json:"date,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	AccountRef  *string          `json:"account_ref,omitempty"`
}

// BankStatementRow is a single line from an ingested bank statement feed
type BankStatementRow struct {
	Date        *time.Time      `json:"date,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
	AccountRef  *string         `json:"account_ref,omitempty"`
	ExternalID  *string         `json:"external_id,omitempty"`
}

// BankStatement is the message body consumed from the bank statements topic
type BankStatement struct {
	TenantID string             `json:"tenant_id"`
	Source   string             `json:"source"`
	Rows     []BankStatementRow `json:"rows"`
}

// TransactionListResponse is the response for listing transactions
type TransactionListResponse struct {
	Items      []Transaction `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}
