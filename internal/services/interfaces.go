package services

import (
	"context"
	"time"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserServiceInterface maps authenticated identities to local users
type UserServiceInterface interface {
	ResolveUser(ctx context.Context, claims *models.CustomClaims) (*models.User, error)
}

// AccountServiceInterface defines account-related business operations
type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, userID uuid.UUID, req *dto.CreateAccountRequest) (*models.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.AccountSummaryItem, error)
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error)
	SetDefaultAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error)
}

// TransactionServiceInterface defines transaction-related business operations
type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, userID uuid.UUID, req *dto.CreateTransactionRequest) (*models.Transaction, decimal.Decimal, error)
	GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filters models.TransactionFilters) (*models.TransactionPage, error)
	UpdateTransaction(ctx context.Context, userID, transactionID uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error)
	BulkDeleteTransactions(ctx context.Context, userID uuid.UUID, transactionIDs []uuid.UUID) (int, error)
}

// BudgetServiceInterface defines budget reads and writes for the budget's owner
type BudgetServiceInterface interface {
	GetCurrentBudget(ctx context.Context, userID, accountID uuid.UUID) (*models.BudgetStatus, error)
	UpdateBudget(ctx context.Context, userID uuid.UUID, amount string) (*models.Budget, error)
}

// BudgetAlertServiceInterface evaluates budgets and sends threshold alerts
type BudgetAlertServiceInterface interface {
	CheckBudget(ctx context.Context, budget models.BudgetWithAccount, now time.Time) (bool, error)
	CheckAllBudgets(ctx context.Context, now time.Time) (*BudgetCheckSummary, error)
}

// RecurringServiceInterface fans out due recurring templates and materializes them
type RecurringServiceInterface interface {
	TriggerRecurringTransactions(ctx context.Context, now time.Time) (int, error)
	Materialize(ctx context.Context, templateID, userID uuid.UUID, now time.Time) (*repositories.MaterializeResult, error)
	ProcessJob(ctx context.Context, job *models.RecurringJob) error
	StartProcessing(ctx context.Context)
	CleanupCompletedJobs(ctx context.Context, now time.Time) (int64, error)
	ReclaimStaleJobs(ctx context.Context, now time.Time) (int64, error)
	GetQueueMetrics(ctx context.Context) (*dto.QueueMetrics, error)
}

// TransactionSeederInterface generates sample transaction history
type TransactionSeederInterface interface {
	SeedTransactions(ctx context.Context, userID, accountID uuid.UUID, days int) (*dto.SeedResponse, error)
	GenerateTransactions(userID, accountID uuid.UUID, end time.Time, days int) []models.Transaction
}

// EmailSenderInterface delivers one rendered HTML email
type EmailSenderInterface interface {
	Send(ctx context.Context, to, subject, html string) error
}

// KeyedLimiterInterface is a token bucket per key
type KeyedLimiterInterface interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

type TokenServiceInterface interface {
	GenerateAccessToken(user *models.User) (string, time.Time, error)
	ValidateAccessToken(tokenString string) (*models.CustomClaims, error)
	ExtractTokenFromHeader(authHeader string) (string, error)
}

type AuditLoggerInterface interface {
	LogAccountCreated(ctx context.Context, userID, accountID uuid.UUID, accountType string, isDefault bool)
	LogDefaultAccountChanged(ctx context.Context, userID, accountID uuid.UUID)
	LogTransactionCreated(ctx context.Context, userID, transactionID, accountID uuid.UUID, amount, newBalance string)
	LogTransactionUpdated(ctx context.Context, userID, transactionID uuid.UUID, version int)
	LogTransactionsDeleted(ctx context.Context, userID uuid.UUID, count int, deltas map[uuid.UUID]decimal.Decimal)
	LogRecurringMaterialized(ctx context.Context, userID, templateID, transactionID uuid.UUID, newBalance string)
	LogBudgetUpdated(ctx context.Context, userID, budgetID uuid.UUID, amount string)
	LogBudgetAlertSent(ctx context.Context, userID, budgetID uuid.UUID, percentageUsed string)
	LogSampleDataSeeded(ctx context.Context, userID, accountID uuid.UUID, count int)
	LogRetryAttempt(ctx context.Context, jobID, transactionID uuid.UUID, retryCount, maxRetries int, backoffMs int64)
	LogJobFailed(ctx context.Context, jobID, transactionID uuid.UUID, errorMsg string, retryCount int)
	LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string)
}

type CircuitBreakerInterface interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
	GetState() CircuitBreakerState
	Reset()
	GetFailureCount() int
}
