package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/repositories"

	"github.com/robfig/cron/v3"
)

const (
	queueMetricsSpec = "@every 1m"
	reclaimSpec      = "@every 1m"
	cleanupSpec      = "@hourly"
)

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}

// Scheduler drives the periodic jobs: the recurring transaction trigger, the
// budget alert check, queue gauges and retention cleanup. A run that is still
// going when its next tick fires is skipped.
type Scheduler struct {
	cron         *cron.Cron
	recurring    RecurringServiceInterface
	budgetAlerts BudgetAlertServiceInterface
	auditRepo    repositories.AuditLogRepositoryInterface
	cfg          config.SchedulerConfig
	logger       *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(
	recurring RecurringServiceInterface,
	budgetAlerts BudgetAlertServiceInterface,
	auditRepo repositories.AuditLogRepositoryInterface,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) (*Scheduler, error) {
	adapter := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location()),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		recurring:    recurring,
		budgetAlerts: budgetAlerts,
		auditRepo:    auditRepo,
		cfg:          cfg,
		logger:       logger,
		ctx:          context.Background(),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"recurring_trigger", cfg.RecurringCron, s.RunRecurringTrigger},
		{"budget_alerts", cfg.BudgetAlertCron, s.RunBudgetCheck},
		{"queue_metrics", queueMetricsSpec, s.RunQueueMetrics},
		{"reclaim_stale_jobs", reclaimSpec, s.RunReclaimStaleJobs},
		{"cleanup", cleanupSpec, s.RunCleanup},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		startTime := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Debug("scheduled job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(startTime)),
		)
	}
}

// Start begins firing jobs. Jobs see a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("recurring_cron", s.cfg.RecurringCron),
		slog.String("budget_alert_cron", s.cfg.BudgetAlertCron),
		slog.String("timezone", s.cfg.Timezone),
	)
}

// Stop stops scheduling, cancels running jobs and returns a context that is
// done once they have returned.
func (s *Scheduler) Stop() context.Context {
	done := s.cron.Stop()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	return done
}

func (s *Scheduler) RunRecurringTrigger(ctx context.Context) error {
	_, err := s.recurring.TriggerRecurringTransactions(ctx, time.Now())
	return err
}

func (s *Scheduler) RunBudgetCheck(ctx context.Context) error {
	_, err := s.budgetAlerts.CheckAllBudgets(ctx, time.Now())
	return err
}

func (s *Scheduler) RunQueueMetrics(ctx context.Context) error {
	_, err := s.recurring.GetQueueMetrics(ctx)
	return err
}

func (s *Scheduler) RunReclaimStaleJobs(ctx context.Context) error {
	_, err := s.recurring.ReclaimStaleJobs(ctx, time.Now().UTC())
	return err
}

// RunCleanup drops finished recurring jobs and audit rows past retention
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	now := time.Now()

	if _, err := s.recurring.CleanupCompletedJobs(ctx, now); err != nil {
		return err
	}

	if s.auditRepo == nil || s.cfg.AuditRetention <= 0 {
		return nil
	}

	deleted, err := s.auditRepo.DeleteOlderThan(ctx, now.Add(-s.cfg.AuditRetention))
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "cleaned up audit logs", slog.Int64("deleted", deleted))
	}
	return nil
}
