package models

// AccountSummaryItem is an account as listed to its owner, with the number
// of transactions recorded against it.
type AccountSummaryItem struct {
	Account
	TransactionCount int64 `json:"transaction_count"`
}
