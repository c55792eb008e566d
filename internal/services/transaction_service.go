package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultTransactionPageSize = 20
	MaxTransactionPageSize     = 100
)

type transactionService struct {
	transactionRepo repositories.TransactionRepositoryInterface
	accountRepo     repositories.AccountRepositoryInterface
	limiter         KeyedLimiterInterface
	auditLogger     AuditLoggerInterface
	metrics         MetricsRecorderInterface
	logger          *slog.Logger
}

func NewTransactionService(
	transactionRepo repositories.TransactionRepositoryInterface,
	accountRepo repositories.AccountRepositoryInterface,
	limiter KeyedLimiterInterface,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) TransactionServiceInterface {
	return &transactionService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		limiter:         limiter,
		auditLogger:     auditLogger,
		metrics:         metrics,
		logger:          logger,
	}
}

// CreateTransaction records a transaction and applies its balance effect.
// Creation is rate limited per user before anything is read or written.
func (s *transactionService) CreateTransaction(ctx context.Context, userID uuid.UUID, req *dto.CreateTransactionRequest) (*models.Transaction, decimal.Decimal, error) {
	if userID == uuid.Nil {
		return nil, decimal.Zero, ErrUserNotResolved
	}

	if !s.limiter.Allow(userID.String()) {
		s.metrics.IncrementCounter(MetricTransactionThrottled, nil)
		s.logger.WarnContext(ctx, "transaction creation rate limited",
			slog.String("user_id", userID.String()),
			slog.Duration("retry_after", s.limiter.RetryAfter(userID.String())),
		)
		return nil, decimal.Zero, ErrTransactionRateLimited
	}

	transaction := &models.Transaction{UserID: userID}
	if err := applyTransactionInput(transaction, req); err != nil {
		return nil, decimal.Zero, err
	}

	if _, err := s.accountRepo.GetByIDForUser(ctx, transaction.AccountID, userID); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, decimal.Zero, ErrAccountNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("failed to get account: %w", err)
	}

	balance, err := s.transactionRepo.CreateWithBalance(ctx, transaction)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, decimal.Zero, ErrAccountNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.metrics.IncrementCounter(MetricTransactionCreated, map[string]string{"type": transaction.Type})
	s.auditLogger.LogTransactionCreated(ctx, userID, transaction.ID, transaction.AccountID, transaction.SignedAmount().String(), balance.String())

	return transaction, balance, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	transaction, err := s.transactionRepo.GetByIDForUser(ctx, transactionID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return transaction, nil
}

// ListTransactions returns one page of the user's transactions, newest first.
// One extra row is fetched to tell whether another page exists.
func (s *transactionService) ListTransactions(ctx context.Context, userID uuid.UUID, filters models.TransactionFilters) (*models.TransactionPage, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultTransactionPageSize
	}
	if limit > MaxTransactionPageSize {
		limit = MaxTransactionPageSize
	}
	filters.Limit = limit + 1

	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return nil, validationError(errors.New("end date must not be before start date"))
	}

	transactions, err := s.transactionRepo.List(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	page := &models.TransactionPage{Transactions: transactions}
	if len(transactions) > limit {
		page.Transactions = transactions[:limit]
		page.HasMore = true
	}

	return page, nil
}

// UpdateTransaction replaces the editable fields of a transaction. The balance
// effect of the old version is reversed and the new one applied together.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	input := (*dto.CreateTransactionRequest)(req)
	if err := applyTransactionInput(&models.Transaction{UserID: userID}, input); err != nil {
		return nil, err
	}

	updated, err := s.transactionRepo.UpdateWithBalance(ctx, transactionID, userID, func(transaction *models.Transaction) error {
		previous := *transaction
		if err := applyTransactionInput(transaction, input); err != nil {
			return err
		}
		if !previous.IsRecurring || !transaction.IsRecurring {
			transaction.LastProcessed = nil
			return nil
		}
		return carryRecurrenceSchedule(transaction, &previous)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTransactionNotFound):
			return nil, ErrTransactionNotFound
		case errors.Is(err, repositories.ErrAccountNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, models.ErrOptimisticLockConflict):
			return nil, ErrTransactionConflict
		case errors.Is(err, ErrValidation):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.auditLogger.LogTransactionUpdated(ctx, userID, updated.ID, updated.Version)

	return updated, nil
}

// BulkDeleteTransactions deletes the user's transactions among ids and nets
// the balance corrections per account. When none match nothing is changed.
func (s *transactionService) BulkDeleteTransactions(ctx context.Context, userID uuid.UUID, transactionIDs []uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, ErrUserNotResolved
	}

	if len(transactionIDs) == 0 {
		return 0, ErrTransactionNotFound
	}

	result, err := s.transactionRepo.DeleteWithBalances(ctx, userID, transactionIDs)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return 0, ErrTransactionNotFound
		}
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}

	s.metrics.IncrementCounter(MetricTransactionsDeleted, nil)
	s.auditLogger.LogTransactionsDeleted(ctx, userID, result.Deleted, result.Deltas)

	return result.Deleted, nil
}

// carryRecurrenceSchedule stops an edit from making a template that already
// ran due again for an occurrence it has paid. With interval and date
// unchanged the stored next date stands; otherwise the next date is the later
// of one interval past the last run and one interval past the new date.
func carryRecurrenceSchedule(updated, previous *models.Transaction) error {
	if previous.LastProcessed == nil {
		return nil
	}

	if previous.NextRecurringDate != nil &&
		updated.Interval() == previous.Interval() &&
		updated.Date.Equal(previous.Date) {
		next := *previous.NextRecurringDate
		updated.NextRecurringDate = &next
		return nil
	}

	next, err := models.NextOccurrence(*previous.LastProcessed, updated.Interval())
	if err != nil {
		return ErrInvalidRecurrence
	}
	if updated.NextRecurringDate != nil && updated.NextRecurringDate.After(next) {
		next = *updated.NextRecurringDate
	}
	updated.NextRecurringDate = &next
	return nil
}

// applyTransactionInput validates req and copies it onto transaction,
// recomputing the next recurring date from the occurrence date.
func applyTransactionInput(transaction *models.Transaction, req *dto.CreateTransactionRequest) error {
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return validationError(errors.New("account_id must be a valid UUID"))
	}

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		return ErrInvalidAmount
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	transactionType := strings.ToUpper(req.Type)
	if !models.IsValidTransactionType(transactionType) {
		return validationError(models.ErrInvalidTransactionType)
	}

	if req.Date.IsZero() {
		return validationError(errors.New("date is required"))
	}

	interval := strings.ToUpper(strings.TrimSpace(req.RecurringInterval))
	var recurringInterval *string
	var nextRecurringDate *time.Time
	if req.IsRecurring {
		next, err := models.NextOccurrence(req.Date, interval)
		if err != nil {
			return ErrInvalidRecurrence
		}
		recurringInterval = &interval
		nextRecurringDate = &next
	} else if interval != "" {
		return ErrInvalidRecurrence
	}

	transaction.AccountID = accountID
	transaction.Type = transactionType
	transaction.Amount = amount
	transaction.Description = strings.TrimSpace(req.Description)
	transaction.Date = req.Date
	transaction.Category = strings.ToLower(strings.TrimSpace(req.Category))
	transaction.ReceiptURL = strings.TrimSpace(req.ReceiptURL)
	transaction.IsRecurring = req.IsRecurring
	transaction.RecurringInterval = recurringInterval
	transaction.NextRecurringDate = nextRecurringDate

	if transaction.Status == "" {
		transaction.Status = models.TransactionStatusCompleted
	}

	if err := transaction.Validate(); err != nil {
		return validationError(err)
	}
	return nil
}
