package repositories

import (
	"context"
	"time"

	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// AccountRepositoryInterface defines the contract for account repository operations
type AccountRepositoryInterface interface {
	Create(ctx context.Context, account *models.Account) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
	GetDefaultForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	SetDefault(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error)
	ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// TransactionRepositoryInterface defines the contract for transaction repository operations
type TransactionRepositoryInterface interface {
	CreateWithBalance(ctx context.Context, transaction *models.Transaction) (decimal.Decimal, error)
	ReplaceAllWithBalance(ctx context.Context, accountID uuid.UUID, transactions []models.Transaction) (decimal.Decimal, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, userID uuid.UUID, filters models.TransactionFilters) ([]models.Transaction, error)
	CountByAccount(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error)
	UpdateWithBalance(ctx context.Context, id, userID uuid.UUID, apply func(*models.Transaction) error) (*models.Transaction, error)
	DeleteWithBalances(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*DeleteResult, error)
	FindDueRecurring(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error)
	MaterializeRecurring(ctx context.Context, templateID, userID uuid.UUID, now time.Time) (*MaterializeResult, error)
	SumExpenses(ctx context.Context, accountID uuid.UUID, start, end time.Time) (decimal.Decimal, error)
}

// BudgetRepositoryInterface defines the contract for budget repository operations
type BudgetRepositoryInterface interface {
	Upsert(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Budget, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Budget, error)
	ListWithDefaultAccount(ctx context.Context) ([]models.BudgetWithAccount, error)
	MarkAlertSent(ctx context.Context, budgetID uuid.UUID, sentAt time.Time) error
}

// RecurringJobRepositoryInterface defines the contract for the recurring job queue
type RecurringJobRepositoryInterface interface {
	EnqueueBatch(ctx context.Context, templates []models.Transaction, maxRetries int, scheduledAt time.Time) (int, error)
	FetchPending(ctx context.Context, now time.Time, limit int) ([]*models.RecurringJob, error)
	Claim(ctx context.Context, jobID uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, jobID uuid.UUID, status string) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) error
	Retry(ctx context.Context, job *models.RecurringJob, errorMessage string, now time.Time) error
	Reschedule(ctx context.Context, jobID uuid.UUID, scheduledAt time.Time) error
	ReclaimStale(ctx context.Context, olderThan, now time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	CleanupCompleted(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditLogRepositoryInterface defines the contract for audit log persistence
type AuditLogRepositoryInterface interface {
	Create(ctx context.Context, log *models.AuditLog) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
