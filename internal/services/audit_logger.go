package services

import (
	"context"
	"log/slog"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type contextKey string

// CorrelationIDKey carries the request trace id through service calls.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying id for audit events.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// AuditLogger writes audit events to the structured log and, for user-visible
// state changes, to the audit_logs table. Persistence failures are logged and
// never fail the operation being audited.
type AuditLogger struct {
	logger *slog.Logger
	repo   repositories.AuditLogRepositoryInterface
}

func NewAuditLogger(logger *slog.Logger, repo repositories.AuditLogRepositoryInterface) AuditLoggerInterface {
	return &AuditLogger{
		logger: logger,
		repo:   repo,
	}
}

func (al *AuditLogger) LogAccountCreated(ctx context.Context, userID, accountID uuid.UUID, accountType string, isDefault bool) {
	al.logger.InfoContext(ctx, "account created",
		slog.String("event_type", models.AuditActionAccountCreated),
		slog.String("user_id", userID.String()),
		slog.String("account_id", accountID.String()),
		slog.String("account_type", accountType),
		slog.Bool("is_default", isDefault),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionAccountCreated, models.AuditResourceAccount, accountID, map[string]interface{}{
		"account_type": accountType,
		"is_default":   isDefault,
	})
}

func (al *AuditLogger) LogDefaultAccountChanged(ctx context.Context, userID, accountID uuid.UUID) {
	al.logger.InfoContext(ctx, "default account changed",
		slog.String("event_type", models.AuditActionDefaultAccountChanged),
		slog.String("user_id", userID.String()),
		slog.String("account_id", accountID.String()),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionDefaultAccountChanged, models.AuditResourceAccount, accountID, nil)
}

func (al *AuditLogger) LogTransactionCreated(ctx context.Context, userID, transactionID, accountID uuid.UUID, amount, newBalance string) {
	al.logger.InfoContext(ctx, "transaction created",
		slog.String("event_type", models.AuditActionTransactionCreated),
		slog.String("user_id", userID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.String("account_id", accountID.String()),
		slog.String("amount", amount),
		slog.String("new_balance", newBalance),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionTransactionCreated, models.AuditResourceTransaction, transactionID, map[string]interface{}{
		"account_id":  accountID.String(),
		"amount":      amount,
		"new_balance": newBalance,
	})
}

func (al *AuditLogger) LogTransactionUpdated(ctx context.Context, userID, transactionID uuid.UUID, version int) {
	al.logger.InfoContext(ctx, "transaction updated",
		slog.String("event_type", models.AuditActionTransactionUpdated),
		slog.String("user_id", userID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.Int("version", version),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionTransactionUpdated, models.AuditResourceTransaction, transactionID, map[string]interface{}{
		"version": version,
	})
}

func (al *AuditLogger) LogTransactionsDeleted(ctx context.Context, userID uuid.UUID, count int, deltas map[uuid.UUID]decimal.Decimal) {
	balanceChanges := make(map[string]interface{}, len(deltas))
	for accountID, delta := range deltas {
		balanceChanges[accountID.String()] = delta.String()
	}

	al.logger.InfoContext(ctx, "transactions deleted",
		slog.String("event_type", models.AuditActionTransactionsDeleted),
		slog.String("user_id", userID.String()),
		slog.Int("count", count),
		slog.Any("balance_changes", balanceChanges),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionTransactionsDeleted, models.AuditResourceTransaction, uuid.Nil, map[string]interface{}{
		"count":           count,
		"balance_changes": balanceChanges,
	})
}

func (al *AuditLogger) LogRecurringMaterialized(ctx context.Context, userID, templateID, transactionID uuid.UUID, newBalance string) {
	al.logger.InfoContext(ctx, "recurring transaction materialized",
		slog.String("event_type", models.AuditActionRecurringMaterialized),
		slog.String("user_id", userID.String()),
		slog.String("template_id", templateID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.String("new_balance", newBalance),
		slog.Time("timestamp", time.Now()),
	)

	al.persist(ctx, userID, models.AuditActionRecurringMaterialized, models.AuditResourceTransaction, transactionID, map[string]interface{}{
		"template_id": templateID.String(),
		"new_balance": newBalance,
	})
}

func (al *AuditLogger) LogBudgetUpdated(ctx context.Context, userID, budgetID uuid.UUID, amount string) {
	al.logger.InfoContext(ctx, "budget updated",
		slog.String("event_type", models.AuditActionBudgetUpdated),
		slog.String("user_id", userID.String()),
		slog.String("budget_id", budgetID.String()),
		slog.String("amount", amount),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionBudgetUpdated, models.AuditResourceBudget, budgetID, map[string]interface{}{
		"amount": amount,
	})
}

func (al *AuditLogger) LogBudgetAlertSent(ctx context.Context, userID, budgetID uuid.UUID, percentageUsed string) {
	al.logger.InfoContext(ctx, "budget alert sent",
		slog.String("event_type", models.AuditActionBudgetAlertSent),
		slog.String("user_id", userID.String()),
		slog.String("budget_id", budgetID.String()),
		slog.String("percentage_used", percentageUsed),
		slog.Time("timestamp", time.Now()),
	)

	al.persist(ctx, userID, models.AuditActionBudgetAlertSent, models.AuditResourceBudget, budgetID, map[string]interface{}{
		"percentage_used": percentageUsed,
	})
}

func (al *AuditLogger) LogSampleDataSeeded(ctx context.Context, userID, accountID uuid.UUID, count int) {
	al.logger.InfoContext(ctx, "sample data seeded",
		slog.String("event_type", models.AuditActionSampleDataSeeded),
		slog.String("user_id", userID.String()),
		slog.String("account_id", accountID.String()),
		slog.Int("count", count),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)

	al.persist(ctx, userID, models.AuditActionSampleDataSeeded, models.AuditResourceAccount, accountID, map[string]interface{}{
		"count": count,
	})
}

func (al *AuditLogger) LogRetryAttempt(ctx context.Context, jobID, transactionID uuid.UUID, retryCount, maxRetries int, backoffMs int64) {
	al.logger.InfoContext(ctx, "retry attempt",
		slog.String("event_type", "retry_attempt"),
		slog.String("job_id", jobID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.Int("retry_count", retryCount),
		slog.Int("max_retries", maxRetries),
		slog.Int64("backoff_ms", backoffMs),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *AuditLogger) LogJobFailed(ctx context.Context, jobID, transactionID uuid.UUID, errorMsg string, retryCount int) {
	al.logger.WarnContext(ctx, "recurring job failed",
		slog.String("event_type", "recurring_job_failed"),
		slog.String("job_id", jobID.String()),
		slog.String("transaction_id", transactionID.String()),
		slog.String("error", errorMsg),
		slog.Int("retry_count", retryCount),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *AuditLogger) LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string) {
	al.logger.WarnContext(ctx, "circuit breaker state change",
		slog.String("event_type", "circuit_breaker_state_change"),
		slog.String("service", service),
		slog.String("old_state", oldState),
		slog.String("new_state", newState),
		slog.Time("timestamp", time.Now()),
		slog.String("correlation_id", getCorrelationID(ctx)),
	)
}

func (al *AuditLogger) persist(ctx context.Context, userID uuid.UUID, action, resource string, resourceID uuid.UUID, metadata map[string]interface{}) {
	if al.repo == nil {
		return
	}

	entry := &models.AuditLog{
		UserID:   &userID,
		Action:   action,
		Resource: resource,
	}
	if resourceID != uuid.Nil {
		entry.ResourceID = resourceID.String()
	}
	for key, value := range metadata {
		entry.SetMetadata(key, value)
	}
	if correlationID := getCorrelationID(ctx); correlationID != "" {
		entry.SetMetadata("correlation_id", correlationID)
	}

	if err := al.repo.Create(ctx, entry); err != nil {
		al.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

func getCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}

	return ""
}
