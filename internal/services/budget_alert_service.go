package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"
)

// BudgetCheckSummary counts the outcomes of one run over all budgets.
type BudgetCheckSummary struct {
	Checked int
	Sent    int
	Failed  int
}

type budgetAlertService struct {
	budgetRepo      repositories.BudgetRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	emailSender     EmailSenderInterface
	auditLogger     AuditLoggerInterface
	metrics         MetricsRecorderInterface
	threshold       int
	concurrency     int
	appURL          string
	location        *time.Location
	logger          *slog.Logger
}

func NewBudgetAlertService(
	budgetRepo repositories.BudgetRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	emailSender EmailSenderInterface,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	cfg *config.Config,
	logger *slog.Logger,
) BudgetAlertServiceInterface {
	concurrency := cfg.Scheduler.BudgetCheckLimit
	if concurrency < 1 {
		concurrency = 1
	}
	return &budgetAlertService{
		budgetRepo:      budgetRepo,
		transactionRepo: transactionRepo,
		emailSender:     emailSender,
		auditLogger:     auditLogger,
		metrics:         metrics,
		threshold:       cfg.Budget.AlertThreshold,
		concurrency:     concurrency,
		appURL:          cfg.Email.AppURL,
		location:        cfg.Scheduler.Location(),
		logger:          logger,
	}
}

// CheckBudget evaluates one budget against its owner's default account and
// sends the alert when due. lastAlertSent only moves after the email was
// accepted, so a failed send is retried by the next run.
func (s *budgetAlertService) CheckBudget(ctx context.Context, budget models.BudgetWithAccount, now time.Time) (bool, error) {
	now = now.In(s.location)
	start, end := models.MonthWindow(now)

	expenses, err := s.transactionRepo.SumExpenses(ctx, budget.AccountID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to sum expenses: %w", err)
	}

	decision := models.EvaluateBudgetAlert(budget.Amount, expenses, budget.LastAlertSent, now, s.threshold)
	if !decision.Send {
		return false, nil
	}

	subject, html, err := RenderBudgetAlertEmail(BudgetAlertEmail{
		UserName:       budget.UserName,
		AccountName:    budget.AccountName,
		AccountType:    budget.AccountType,
		PercentageUsed: decision.PercentageUsed,
		BudgetAmount:   decision.Amount,
		TotalExpenses:  decision.Expenses,
		AppURL:         s.appURL,
	})
	if err != nil {
		return false, err
	}

	if err := s.emailSender.Send(ctx, budget.UserEmail, subject, html); err != nil {
		s.metrics.IncrementCounter(MetricBudgetAlertFailed, nil)
		if errors.Is(err, ErrEmailDelivery) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	if err := s.budgetRepo.MarkAlertSent(ctx, budget.BudgetID, now); err != nil {
		return true, fmt.Errorf("failed to record alert: %w", err)
	}

	s.metrics.IncrementCounter(MetricBudgetAlertSent, nil)
	s.auditLogger.LogBudgetAlertSent(ctx, budget.UserID, budget.BudgetID, decision.PercentageUsed.StringFixed(1))

	return true, nil
}

// CheckAllBudgets runs CheckBudget for every budget, a bounded number at a
// time. A failing budget is logged and counted; it never stops the others.
func (s *budgetAlertService) CheckAllBudgets(ctx context.Context, now time.Time) (*BudgetCheckSummary, error) {
	startTime := time.Now()

	budgets, err := s.budgetRepo.ListWithDefaultAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	summary := &BudgetCheckSummary{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)

	for _, budget := range budgets {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(budget models.BudgetWithAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			sent, err := s.CheckBudget(ctx, budget, now)

			mu.Lock()
			defer mu.Unlock()
			summary.Checked++
			if sent {
				summary.Sent++
			}
			if err != nil {
				summary.Failed++
				s.logger.ErrorContext(ctx, "budget check failed",
					slog.String("budget_id", budget.BudgetID.String()),
					slog.String("user_id", budget.UserID.String()),
					slog.String("error", err.Error()),
				)
			}
		}(budget)
	}

	wg.Wait()

	s.metrics.RecordProcessingTime(MetricBudgetCheckDuration, time.Since(startTime))
	s.logger.InfoContext(ctx, "budget check finished",
		slog.Int("checked", summary.Checked),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
	)

	return summary, ctx.Err()
}
