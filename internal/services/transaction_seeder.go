package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultSeedDays       = 90
	maxTransactionsPerDay = 3
	incomeProbability     = 0.4
)

// transactionSeeder fills an account with a plausible transaction history
// for demos and local development.
type transactionSeeder struct {
	accountRepo     repositories.AccountRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	auditLogger     AuditLoggerInterface
	logger          *slog.Logger

	mu    sync.Mutex
	faker *gofakeit.Faker
}

func NewTransactionSeeder(
	accountRepo repositories.AccountRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	auditLogger AuditLoggerInterface,
	logger *slog.Logger,
) TransactionSeederInterface {
	return newTransactionSeeder(accountRepo, transactionRepo, auditLogger, logger, gofakeit.New(0))
}

func newTransactionSeeder(
	accountRepo repositories.AccountRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	auditLogger AuditLoggerInterface,
	logger *slog.Logger,
	faker *gofakeit.Faker,
) *transactionSeeder {
	return &transactionSeeder{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		auditLogger:     auditLogger,
		logger:          logger,
		faker:           faker,
	}
}

// SeedTransactions replaces the account's history with generated
// transactions covering the last days days and sets the balance to their net.
func (s *transactionSeeder) SeedTransactions(ctx context.Context, userID, accountID uuid.UUID, days int) (*dto.SeedResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUserNotResolved
	}

	if days <= 0 {
		days = DefaultSeedDays
	}

	if _, err := s.accountRepo.GetByIDForUser(ctx, accountID, userID); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	transactions := s.GenerateTransactions(userID, accountID, time.Now().UTC(), days)

	balance, err := s.transactionRepo.ReplaceAllWithBalance(ctx, accountID, transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to seed transactions: %w", err)
	}

	s.auditLogger.LogSampleDataSeeded(ctx, userID, accountID, len(transactions))

	return &dto.SeedResponse{
		Created: len(transactions),
		Balance: balance,
	}, nil
}

// GenerateTransactions builds one to three transactions for each day from
// days before end up to end. Roughly 40% are income; amounts follow the
// category's sample range.
func (s *transactionSeeder) GenerateTransactions(userID, accountID uuid.UUID, end time.Time, days int) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	transactions := make([]models.Transaction, 0, (days+1)*2)
	for i := days; i >= 0; i-- {
		date := end.AddDate(0, 0, -i)
		perDay := s.faker.IntRange(1, maxTransactionsPerDay)

		for j := 0; j < perDay; j++ {
			transactionType := models.TransactionTypeExpense
			categories := models.ExpenseCategories()
			verb := "Paid for"
			if s.faker.Float64() < incomeProbability {
				transactionType = models.TransactionTypeIncome
				categories = models.IncomeCategories()
				verb = "Received"
			}

			category := categories[s.faker.IntRange(0, len(categories)-1)]
			amount := decimal.NewFromFloat(s.faker.Float64Range(category.Min, category.Max)).Round(2)

			transactions = append(transactions, models.Transaction{
				ID:          uuid.New(),
				UserID:      userID,
				AccountID:   accountID,
				Type:        transactionType,
				Amount:      amount,
				Description: fmt.Sprintf("%s %s", verb, category.Name),
				Date:        date,
				Category:    category.Name,
				Status:      models.TransactionStatusCompleted,
				CreatedAt:   date,
				UpdatedAt:   date,
			})
		}
	}

	return transactions
}
