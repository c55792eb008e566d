package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountService implements AccountServiceInterface interface
type accountService struct {
	accountRepo     repositories.AccountRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	auditLogger     AuditLoggerInterface
	logger          *slog.Logger
}

func NewAccountService(
	accountRepo repositories.AccountRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	auditLogger AuditLoggerInterface,
	logger *slog.Logger,
) AccountServiceInterface {
	return &accountService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		auditLogger:     auditLogger,
		logger:          logger,
	}
}

// CreateAccount creates an account for the user. The user's first account
// becomes the default regardless of the request.
func (s *accountService) CreateAccount(ctx context.Context, userID uuid.UUID, req *dto.CreateAccountRequest) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	balance := decimal.Zero
	if strings.TrimSpace(req.Balance) != "" {
		parsed, err := models.ParseAmount(req.Balance)
		if err != nil {
			return nil, ErrInvalidBalance
		}
		balance = parsed
	}
	if balance.IsNegative() {
		return nil, ErrInvalidBalance
	}

	account := &models.Account{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		AccountType: strings.ToUpper(req.Type),
		Balance:     balance.Round(2),
		IsDefault:   req.IsDefault,
	}
	if err := account.Validate(); err != nil {
		return nil, validationError(err)
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.auditLogger.LogAccountCreated(ctx, userID, account.ID, account.AccountType, account.IsDefault)

	return account, nil
}

// ListAccounts returns the user's accounts, newest first, with transaction counts
func (s *accountService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.AccountSummaryItem, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	accounts, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	counts, err := s.transactionRepo.CountByAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	items := make([]models.AccountSummaryItem, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, models.AccountSummaryItem{
			Account:          account,
			TransactionCount: counts[account.ID],
		})
	}

	return items, nil
}

func (s *accountService) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	account, err := s.accountRepo.GetByIDForUser(ctx, accountID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// SetDefaultAccount makes accountID the user's only default account
func (s *accountService) SetDefaultAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	account, err := s.accountRepo.SetDefault(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to set default account: %w", err)
	}

	s.auditLogger.LogDefaultAccountChanged(ctx, userID, accountID)

	return account, nil
}
