package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
)

type budgetService struct {
	budgetRepo      repositories.BudgetRepositoryInterface
	accountRepo     repositories.AccountRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	auditLogger     AuditLoggerInterface
	location        *time.Location
	now             func() time.Time
	logger          *slog.Logger
}

func NewBudgetService(
	budgetRepo repositories.BudgetRepositoryInterface,
	accountRepo repositories.AccountRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	auditLogger AuditLoggerInterface,
	location *time.Location,
	logger *slog.Logger,
) BudgetServiceInterface {
	if location == nil {
		location = time.UTC
	}
	return &budgetService{
		budgetRepo:      budgetRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		auditLogger:     auditLogger,
		location:        location,
		now:             time.Now,
		logger:          logger,
	}
}

// GetCurrentBudget returns the user's budget, if any, with this month's
// expenses on the given account.
func (s *budgetService) GetCurrentBudget(ctx context.Context, userID, accountID uuid.UUID) (*models.BudgetStatus, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	if _, err := s.accountRepo.GetByIDForUser(ctx, accountID, userID); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	budget, err := s.budgetRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrBudgetNotFound) {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	start, end := models.MonthWindow(s.now().In(s.location))
	expenses, err := s.transactionRepo.SumExpenses(ctx, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	status := &models.BudgetStatus{
		Budget:          budget,
		AccountID:       accountID,
		CurrentExpenses: expenses,
	}
	if budget != nil {
		used := models.PercentageUsed(expenses, budget.Amount).Round(1)
		status.PercentageUsed = &used
	}

	return status, nil
}

// UpdateBudget creates or replaces the user's monthly budget
func (s *budgetService) UpdateBudget(ctx context.Context, userID uuid.UUID, amount string) (*models.Budget, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	parsed, err := models.ParseAmount(amount)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	parsed = parsed.Round(2)
	if !parsed.IsPositive() {
		return nil, ErrInvalidAmount
	}

	budget, err := s.budgetRepo.Upsert(ctx, userID, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	s.auditLogger.LogBudgetUpdated(ctx, userID, budget.ID, budget.Amount.String())

	return budget, nil
}
