package handlers

import (
	"net/http"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/errors"
	"finance-tracker/internal/models"
	"finance-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService     services.AccountServiceInterface
	transactionService services.TransactionServiceInterface
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService services.AccountServiceInterface, transactionService services.TransactionServiceInterface) *AccountHandler {
	return &AccountHandler{
		accountService:     accountService,
		transactionService: transactionService,
	}
}

// CreateAccount creates a new account for the authenticated user
// @Summary Create a new account
// @Description Create a CURRENT or SAVINGS account with an optional opening balance. A user's first account always becomes the default.
// @Tags Accounts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAccountRequest true "Account creation details"
// @Success 201 {object} dto.CreateAccountResponse "Account created successfully"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body or VALIDATION_004 - Invalid balance"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	var req dto.CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	account, err := h.accountService.CreateAccount(c.Request().Context(), userID, &req)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.CreateAccountResponse{
		Account: account,
		Message: "Account created successfully",
	})
}

// ListAccounts lists the caller's accounts
// @Summary List accounts
// @Description List the caller's accounts, newest first, each with its transaction count
// @Tags Accounts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.AccountListResponse "Accounts"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	accounts, err := h.accountService.ListAccounts(c.Request().Context(), userID)
	if err != nil {
		return sendServiceError(c, err)
	}

	if accounts == nil {
		accounts = []models.AccountSummaryItem{}
	}

	return c.JSON(http.StatusOK, dto.AccountListResponse{Accounts: accounts})
}

// GetAccount retrieves an account with a page of its transactions
// @Summary Get account by ID
// @Tags Accounts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Account ID (UUID)"
// @Param cursor query string false "Pagination cursor for the transaction page"
// @Param limit query int false "Number of transactions per page (max 100)" default(20)
// @Success 200 {object} dto.AccountDetailResponse "Account with transactions"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid account ID format or TRANSACTION_003 - Invalid cursor"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "ACCOUNT_001 - Account not found"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Account ID must be a valid UUID"))
	}

	pagination, err := parsePaginationParams(c)
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	filters := models.TransactionFilters{AccountID: &accountID}
	if err := applyCursor(&filters, pagination); err != nil {
		return SendError(c, errors.TransactionInvalidCursor)
	}

	ctx := c.Request().Context()

	account, err := h.accountService.GetAccount(ctx, userID, accountID)
	if err != nil {
		return sendServiceError(c, err)
	}

	page, err := h.transactionService.ListTransactions(ctx, userID, filters)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dto.AccountDetailResponse{
		Account:      account,
		Transactions: page.Transactions,
		Pagination:   buildPaginationInfo(page, pagination.Limit),
	})
}

// SetDefaultAccount makes an account the caller's default
// @Summary Set default account
// @Description Unset the current default and mark this account as the default in one database transaction
// @Tags Accounts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Account ID (UUID)"
// @Success 200 {object} models.Account "New default account"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid account ID format"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "ACCOUNT_001 - Account not found"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /accounts/{id}/default [put]
func (h *AccountHandler) SetDefaultAccount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Account ID must be a valid UUID"))
	}

	account, err := h.accountService.SetDefaultAccount(c.Request().Context(), userID, accountID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, account)
}
