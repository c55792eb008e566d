package dto

import (
	"time"

	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest represents the request payload for recording a transaction
type CreateTransactionRequest struct {
	AccountID         string    `json:"account_id" validate:"required,uuid"`
	Type              string    `json:"type" validate:"required,transaction_type"`
	Amount            string    `json:"amount" validate:"required,decimal_amount"`
	Description       string    `json:"description" validate:"max=255"`
	Date              time.Time `json:"date" validate:"required"`
	Category          string    `json:"category" validate:"required,category"`
	ReceiptURL        string    `json:"receipt_url" validate:"omitempty,url"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurringInterval string    `json:"recurring_interval" validate:"omitempty,recurring_interval"`
}

// UpdateTransactionRequest replaces every editable field of a transaction
type UpdateTransactionRequest CreateTransactionRequest

// BulkDeleteRequest lists the transactions to delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid"`
}

// BulkDeleteResponse reports how many transactions were removed
type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// TransactionFilters contains filtering options for transaction queries
type TransactionFilters struct {
	AccountID string `query:"account_id"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	Type      string `query:"type"`
	Category  string `query:"category"`
	Recurring string `query:"recurring"`
}

// PaginationParams contains pagination parameters
type PaginationParams struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	Limit      int    `json:"limit"`
}

// TransactionResponse is a created or updated transaction with the balance
// of its account afterwards
type TransactionResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	Balance     *decimal.Decimal    `json:"balance,omitempty"`
}

// ListTransactionsResponse represents the response for listing transactions
type ListTransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   PaginationInfo       `json:"pagination"`
}
