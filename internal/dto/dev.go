package dto

import "github.com/shopspring/decimal"

// SeedRequest asks for sample transactions on one of the caller's accounts
type SeedRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Days      int    `json:"days" validate:"omitempty,min=1,max=365"`
}

// SeedResponse reports what the seeder wrote
type SeedResponse struct {
	Created int             `json:"created"`
	Balance decimal.Decimal `json:"balance"`
}
