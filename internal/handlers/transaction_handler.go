package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/errors"
	"finance-tracker/internal/models"
	"finance-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService services.TransactionServiceInterface
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService services.TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// cursorData represents the data encoded in a pagination cursor
type cursorData struct {
	Date          time.Time `json:"date"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// encodeCursor creates a cursor string from the position of the last row on a page
func encodeCursor(date time.Time, transactionID uuid.UUID) string {
	data := cursorData{
		Date:          date.UTC(),
		TransactionID: transactionID,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(jsonData)
}

// decodeCursor decodes a cursor string to date and transaction ID
func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	if cursor == "" {
		return time.Time{}, uuid.Nil, fmt.Errorf("empty cursor")
	}

	jsonData, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var data cursorData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor format: %w", err)
	}

	if data.Date.IsZero() || data.TransactionID == uuid.Nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("incomplete cursor")
	}

	return data.Date, data.TransactionID, nil
}

// CreateTransaction records a transaction and applies it to the account balance
// @Summary Create a transaction
// @Description Record an income or expense. Recurring transactions are stored as templates and do not move the balance themselves.
// @Tags Transactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateTransactionRequest true "Transaction details"
// @Success 201 {object} dto.TransactionResponse "Transaction created with the new account balance"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body or VALIDATION_004 - Invalid amount"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "ACCOUNT_001 - Account not found"
// @Failure 422 {object} errors.ErrorResponse "TRANSACTION_002 - Missing recurring interval"
// @Failure 429 {object} errors.ErrorResponse "SYSTEM_003 - Too many transactions"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	var req dto.CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	transaction, balance, err := h.transactionService.CreateTransaction(c.Request().Context(), userID, &req)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.TransactionResponse{
		Transaction: transaction,
		Balance:     &balance,
	})
}

// ListTransactions retrieves paginated transaction history with filtering
// @Summary List transactions
// @Description Retrieve the caller's transactions, newest first, with cursor-based pagination
// @Tags Transactions
// @Security BearerAuth
// @Produce json
// @Param account_id query string false "Filter by account ID (UUID)"
// @Param start_date query string false "Filter by start date (YYYY-MM-DD or RFC 3339)"
// @Param end_date query string false "Filter by end date (YYYY-MM-DD or RFC 3339)"
// @Param type query string false "Filter by transaction type" Enums(INCOME, EXPENSE)
// @Param category query string false "Filter by category"
// @Param recurring query bool false "Only recurring templates (true) or only concrete transactions (false)"
// @Param cursor query string false "Pagination cursor for next page"
// @Param limit query int false "Number of results per page (max 100)" default(20)
// @Success 200 {object} dto.ListTransactionsResponse "Transaction history with pagination"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid parameters or TRANSACTION_003 - Invalid cursor"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	filters, err := parseTransactionFilters(c)
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	pagination, err := parsePaginationParams(c)
	if err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	}

	if err := applyCursor(&filters, pagination); err != nil {
		return SendError(c, errors.TransactionInvalidCursor)
	}

	page, err := h.transactionService.ListTransactions(c.Request().Context(), userID, filters)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: page.Transactions,
		Pagination:   buildPaginationInfo(page, pagination.Limit),
	})
}

// GetTransaction retrieves a specific transaction by ID
// @Summary Get transaction by ID
// @Tags Transactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Success 200 {object} models.Transaction "Transaction details"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_003 - Invalid transaction ID format"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - Transaction not found"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
	}

	transaction, err := h.transactionService.GetTransaction(c.Request().Context(), userID, transactionID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, transaction)
}

// UpdateTransaction replaces the editable fields of a transaction
// @Summary Update a transaction
// @Description Replace a transaction. The old balance effect is reversed and the new one applied in the same database transaction.
// @Tags Transactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID (UUID)"
// @Param request body dto.UpdateTransactionRequest true "New transaction details"
// @Success 200 {object} dto.TransactionResponse "Updated transaction"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - Transaction not found or ACCOUNT_001 - Account not found"
// @Failure 409 {object} errors.ErrorResponse "TRANSACTION_004 - Concurrent modification"
// @Failure 422 {object} errors.ErrorResponse "TRANSACTION_002 - Missing recurring interval"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
	}

	var req dto.UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request().Context(), userID, transactionID, &req)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dto.TransactionResponse{Transaction: transaction})
}

// BulkDeleteTransactions deletes several transactions at once
// @Summary Bulk delete transactions
// @Description Delete the listed transactions and reverse their balance effects, netted per account
// @Tags Transactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BulkDeleteRequest true "Transaction IDs"
// @Success 200 {object} dto.BulkDeleteResponse "Number of deleted transactions"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 - Invalid request body"
// @Failure 401 {object} errors.ErrorResponse "AUTH_003 - User could not be resolved"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001 - None of the transactions exist"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001 - Internal server error"
// @Router /transactions/bulk-delete [post]
func (h *TransactionHandler) BulkDeleteTransactions(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthUserNotResolved)
	}

	var req dto.BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(validationDetails(err)...))
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails("Transaction ID must be a valid UUID"))
		}
		ids = append(ids, id)
	}

	deleted, err := h.transactionService.BulkDeleteTransactions(c.Request().Context(), userID, ids)
	if err != nil {
		return sendServiceError(c, err)
	}

	return c.JSON(http.StatusOK, dto.BulkDeleteResponse{Deleted: deleted})
}

// parseTransactionFilters parses and validates transaction filter parameters
func parseTransactionFilters(c echo.Context) (models.TransactionFilters, error) {
	var filters models.TransactionFilters

	var query dto.TransactionFilters
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return filters, fmt.Errorf("invalid query parameters")
	}

	if query.AccountID != "" {
		accountID, err := uuid.Parse(query.AccountID)
		if err != nil {
			return filters, fmt.Errorf("account_id must be a valid UUID")
		}
		filters.AccountID = &accountID
	}

	if query.StartDate != "" {
		startDate, err := parseDateParam(query.StartDate)
		if err != nil {
			return filters, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		filters.StartDate = &startDate
	}

	if query.EndDate != "" {
		endDate, err := parseDateParam(query.EndDate)
		if err != nil {
			return filters, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		filters.EndDate = &endDate
	}

	if query.Type != "" {
		if !models.IsValidTransactionType(query.Type) {
			return filters, fmt.Errorf("invalid type, must be 'INCOME' or 'EXPENSE'")
		}
		filters.Type = query.Type
	}

	if query.Category != "" {
		if !models.IsValidCategory(query.Category) {
			return filters, fmt.Errorf("invalid category")
		}
		filters.Category = query.Category
	}

	if query.Recurring != "" {
		recurring, err := strconv.ParseBool(query.Recurring)
		if err != nil {
			return filters, fmt.Errorf("recurring must be true or false")
		}
		filters.IsRecurring = &recurring
	}

	return filters, nil
}

// parsePaginationParams parses pagination parameters from query string
func parsePaginationParams(c echo.Context) (dto.PaginationParams, error) {
	params := dto.PaginationParams{
		Limit: defaultPageLimit,
	}

	if cursor := c.QueryParam("cursor"); cursor != "" {
		params.Cursor = cursor
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return params, fmt.Errorf("invalid limit parameter")
		}

		if limit < 1 {
			return params, fmt.Errorf("limit must be at least 1")
		}

		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		params.Limit = limit
	}

	return params, nil
}

func applyCursor(filters *models.TransactionFilters, pagination dto.PaginationParams) error {
	filters.Limit = pagination.Limit
	if pagination.Cursor == "" {
		return nil
	}

	cursorDate, cursorID, err := decodeCursor(pagination.Cursor)
	if err != nil {
		return err
	}
	filters.CursorDate = &cursorDate
	filters.CursorID = cursorID
	return nil
}

// buildPaginationInfo points the next cursor at the last row when another page exists
func buildPaginationInfo(page *models.TransactionPage, limit int) dto.PaginationInfo {
	info := dto.PaginationInfo{
		HasMore: page.HasMore,
		Limit:   limit,
	}

	if page.HasMore && len(page.Transactions) > 0 {
		last := page.Transactions[len(page.Transactions)-1]
		info.NextCursor = encodeCursor(last.Date, last.ID)
	}

	return info
}
