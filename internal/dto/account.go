package dto

import (
	"finance-tracker/internal/models"
)

// Account Request DTOs

// CreateAccountRequest represents the request payload for creating a new account
type CreateAccountRequest struct {
	Name      string `json:"name" validate:"required,min=3,max=100"`
	Type      string `json:"type" validate:"required,account_type"`
	Balance   string `json:"balance" validate:"omitempty,decimal_amount"`
	IsDefault bool   `json:"is_default"`
}

// Account Response DTOs

// CreateAccountResponse represents the response after creating an account
type CreateAccountResponse struct {
	Account *models.Account `json:"account"`
	Message string          `json:"message"`
}

// AccountListResponse lists the caller's accounts, newest first
type AccountListResponse struct {
	Accounts []models.AccountSummaryItem `json:"accounts"`
}

// AccountDetailResponse is one account with a page of its transactions
type AccountDetailResponse struct {
	Account      *models.Account      `json:"account"`
	Transactions []models.Transaction `json:"transactions"`
	Pagination   PaginationInfo       `json:"pagination"`
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
