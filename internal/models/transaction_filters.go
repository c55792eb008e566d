package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionFilters contains filtering options for transaction queries
type TransactionFilters struct {
	AccountID   *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
	Type        string
	Category    string
	IsRecurring *bool
	Limit       int

	// Cursor position: rows strictly older than (CursorDate, CursorID).
	CursorDate *time.Time
	CursorID   uuid.UUID
}

// TransactionPage is one page of a keyset-paginated listing. HasMore is set
// when rows older than the last one exist.
type TransactionPage struct {
	Transactions []Transaction
	HasMore      bool
}
