package handlers

import (
	"net/http"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/errors"
	"finance-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const productionEnvironment = "production"

// DevHandler handles development-only endpoints
// These endpoints should only be available in development environments
type DevHandler struct {
	seeder      services.TransactionSeederInterface
	environment string
}

// NewDevHandler creates a new development handler
func NewDevHandler(seeder services.TransactionSeederInterface, environment string) *DevHandler {
	return &DevHandler{
		seeder:      seeder,
		environment: environment,
	}
}

// SeedTransactions replaces an account's history with generated sample data
//
// Method: POST /api/v1/dev/seed
// Authentication: Required
// Environment: Non-production only
//
// Body:
//   - account_id: Account UUID
//   - days: Number of days of history to generate (default: 90, max: 365)
//
// Success Response: 201 Created
//   - created: Number of transactions created
//   - balance: Resulting account balance
//
// Error Responses:
//   - 400: Invalid account ID or parameters
//   - 401: Unauthorized
//   - 403: Forbidden (production environment)
//   - 404: Account not found
//   - 500: Internal server error
func (h *DevHandler) SeedTransactions(c echo.Context) error {
	if h.environment == productionEnvironment {
		return echo.NewHTTPError(http.StatusForbidden, "endpoint not available in production")
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	var req dto.SeedRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("account_id must be a valid UUID"))
	}

	result, err := h.seeder.SeedTransactions(c.Request().Context(), userID, accountID, req.Days)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}
