package handlers

import (
	"net/http"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/errors"
	"finance-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService services.BudgetServiceInterface
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(budgetService services.BudgetServiceInterface) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// GetCurrentBudget returns the caller's budget and this month's expenses on an account
// @Summary Get current budget
// @Description Budget (null when none is set) with the sum of this calendar month's EXPENSE transactions on the given account
// @Tags Budget
// @Security BearerAuth
// @Produce json
// @Param account_id query string true "Account ID (UUID)"
// @Success 200 {object} models.BudgetStatus "Budget status"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_002 - account_id is required or VALIDATION_003 - Invalid account ID"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "ACCOUNT_001 - Account not found"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /budget [get]
func (h *BudgetHandler) GetCurrentBudget(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	accountIDStr := c.QueryParam("account_id")
	if accountIDStr == "" {
		return SendError(c, errors.ValidationRequiredField, errors.WithDetails("account_id is required"))
	}

	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("account_id must be a valid UUID"))
	}

	status, err := h.budgetService.GetCurrentBudget(c.Request().Context(), userID, accountID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, status)
}

// UpdateBudget creates or replaces the caller's monthly budget
// @Summary Set monthly budget
// @Tags Budget
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateBudgetRequest true "Budget amount"
// @Success 200 {object} models.Budget "Saved budget"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body or VALIDATION_004 - Invalid amount"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /budget [put]
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	var req dto.UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	budget, err := h.budgetService.UpdateBudget(c.Request().Context(), userID, req.Amount)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, budget)
}
