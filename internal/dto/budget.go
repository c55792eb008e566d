package dto

// UpdateBudgetRequest sets the caller's monthly budget
type UpdateBudgetRequest struct {
	Amount string `json:"amount" validate:"required,decimal_amount"`
}
