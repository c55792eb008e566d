package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"

	"github.com/google/uuid"
)

const (
	recurringCircuitService = "database"

	// outcomeTimeout bounds the job status write that follows a claim. That
	// write is detached from the worker context.
	outcomeTimeout = 10 * time.Second

	defaultJobStaleAfter = 10 * time.Minute
)

// RecurringService turns due recurring templates into concrete transactions.
// The trigger enqueues one job per due template; workers claim jobs,
// throttle them per user and materialize them. Delivery is at least once:
// the due re-check inside materialization absorbs duplicates.
type RecurringService struct {
	transactionRepo repositories.TransactionRepositoryInterface
	jobRepo         repositories.RecurringJobRepositoryInterface
	auditLogger     AuditLoggerInterface
	metrics         MetricsRecorderInterface
	circuitBreaker  CircuitBreakerInterface
	throttle        KeyedLimiterInterface
	cfg             config.SchedulerConfig
	workerSemaphore chan struct{}
	location        *time.Location
	now             func() time.Time
	logger          *slog.Logger
}

func NewRecurringService(
	transactionRepo repositories.TransactionRepositoryInterface,
	jobRepo repositories.RecurringJobRepositoryInterface,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	circuitBreaker CircuitBreakerInterface,
	throttle KeyedLimiterInterface,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) RecurringServiceInterface {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.JobMaxRetries < 1 {
		cfg.JobMaxRetries = models.DefaultRecurringJobMaxRetries
	}
	if cfg.JobStaleAfter <= 0 {
		cfg.JobStaleAfter = defaultJobStaleAfter
	}

	return &RecurringService{
		transactionRepo: transactionRepo,
		jobRepo:         jobRepo,
		auditLogger:     auditLogger,
		metrics:         metrics,
		circuitBreaker:  circuitBreaker,
		throttle:        throttle,
		cfg:             cfg,
		workerSemaphore: make(chan struct{}, cfg.Workers),
		location:        cfg.Location(),
		now:             time.Now,
		logger:          logger,
	}
}

// TriggerRecurringTransactions enqueues a job for every template due at now
// that does not already have one open. It returns the number enqueued.
func (s *RecurringService) TriggerRecurringTransactions(ctx context.Context, now time.Time) (int, error) {
	due, err := s.transactionRepo.FindDueRecurring(ctx, now, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to find due recurring transactions: %w", err)
	}

	enqueued, err := s.jobRepo.EnqueueBatch(ctx, due, s.cfg.JobMaxRetries, now)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue recurring jobs: %w", err)
	}

	s.metrics.IncrementCounter(MetricRecurringEnqueued, nil)
	s.logger.InfoContext(ctx, "recurring transactions triggered",
		slog.Int("due", len(due)),
		slog.Int("enqueued", enqueued),
	)

	return enqueued, nil
}

// clock is the current time in the scheduler time zone. Recurrence dates
// roll over on that calendar; queue bookkeeping stays in UTC.
func (s *RecurringService) clock() time.Time {
	return s.now().In(s.location)
}

// Materialize creates the concrete transaction for one due template.
// repositories.ErrNotDue means there was nothing to do.
func (s *RecurringService) Materialize(ctx context.Context, templateID, userID uuid.UUID, now time.Time) (*repositories.MaterializeResult, error) {
	result, err := s.transactionRepo.MaterializeRecurring(ctx, templateID, userID, now)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogRecurringMaterialized(ctx, userID, templateID, result.Created.ID, result.NewBalance.String())

	return result, nil
}

// StartProcessing polls for pending jobs and runs them on the worker pool
// until ctx is cancelled, then waits for in-flight jobs.
func (s *RecurringService) StartProcessing(ctx context.Context) {
	s.logger.Info("starting recurring transaction workers",
		slog.Int("workers", s.cfg.Workers),
		slog.Duration("poll_interval", s.cfg.PollInterval),
	)

	if _, err := s.ReclaimStaleJobs(ctx, s.now().UTC()); err != nil {
		s.logger.Error("failed to reclaim stale recurring jobs", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recurring workers shutting down, waiting for jobs to complete")
			wg.Wait()
			s.logger.Info("recurring workers stopped")
			return

		case <-ticker.C:
			jobs, err := s.jobRepo.FetchPending(ctx, s.now().UTC(), s.cfg.Workers*2)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("failed to fetch pending recurring jobs",
						slog.String("error", err.Error()),
					)
				}
				continue
			}

			for _, job := range jobs {
				wg.Add(1)
				go s.processJobAsync(ctx, job, &wg)
			}
		}
	}
}

func (s *RecurringService) processJobAsync(ctx context.Context, job *models.RecurringJob, wg *sync.WaitGroup) {
	defer wg.Done()

	s.workerSemaphore <- struct{}{}
	defer func() { <-s.workerSemaphore }()

	if err := s.ProcessJob(ctx, job); err != nil {
		s.logger.Error("failed to process recurring job",
			slog.String("job_id", job.ID.String()),
			slog.String("transaction_id", job.TransactionID.String()),
			slog.String("user_id", job.UserID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// ProcessJob runs one job: claim it, apply the per-user throttle, then
// materialize. A job another worker already claimed is left alone.
func (s *RecurringService) ProcessJob(ctx context.Context, job *models.RecurringJob) error {
	startTime := time.Now()

	if s.circuitBreaker.IsOpen() {
		s.metrics.RecordGauge(MetricCircuitBreakerState, float64(StateOpen), map[string]string{
			"service": recurringCircuitService,
		})
		return ErrCircuitBreakerOpen
	}

	claimed, err := s.jobRepo.Claim(ctx, job.ID)
	if err != nil {
		s.circuitBreaker.RecordFailure()
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if !claimed {
		return nil
	}

	// From here on the job is ours; its outcome is written even if ctx is
	// cancelled mid-flight.
	outcomeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
	defer cancel()

	userKey := job.UserID.String()
	if !s.throttle.Allow(userKey) {
		return s.reschedule(outcomeCtx, job, s.throttle.RetryAfter(userKey))
	}

	now := s.clock()
	result, err := s.Materialize(ctx, job.TransactionID, job.UserID, now)
	switch {
	case errors.Is(err, repositories.ErrNotDue), errors.Is(err, repositories.ErrTransactionNotFound):
		return s.skip(outcomeCtx, job, err)
	case err != nil:
		s.circuitBreaker.RecordFailure()
		return s.handleProcessingError(outcomeCtx, job, err)
	}

	if err := s.jobRepo.MarkCompleted(outcomeCtx, job.ID, models.RecurringJobStatusCompleted); err != nil {
		return err
	}

	s.circuitBreaker.RecordSuccess()
	s.metrics.RecordProcessingTime(MetricRecurringDuration, time.Since(startTime))
	s.metrics.IncrementCounter(MetricRecurringProcessed, nil)

	s.logger.InfoContext(ctx, "recurring transaction materialized",
		slog.String("job_id", job.ID.String()),
		slog.String("transaction_id", job.TransactionID.String()),
		slog.String("user_id", job.UserID.String()),
		slog.String("created_id", result.Created.ID.String()),
		slog.String("new_balance", result.NewBalance.String()),
	)

	return nil
}

func (s *RecurringService) reschedule(ctx context.Context, job *models.RecurringJob, delay time.Duration) error {
	if delay <= 0 {
		delay = time.Second
	}

	if err := s.jobRepo.Reschedule(ctx, job.ID, s.now().UTC().Add(delay)); err != nil {
		return err
	}

	s.metrics.IncrementCounter(MetricRecurringThrottled, nil)
	s.logger.DebugContext(ctx, "recurring job throttled",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", job.UserID.String()),
		slog.Duration("delay", delay),
	)

	return nil
}

func (s *RecurringService) skip(ctx context.Context, job *models.RecurringJob, reason error) error {
	if err := s.jobRepo.MarkCompleted(ctx, job.ID, models.RecurringJobStatusSkipped); err != nil {
		return err
	}

	s.circuitBreaker.RecordSuccess()
	s.metrics.IncrementCounter(MetricRecurringSkipped, nil)
	s.logger.InfoContext(ctx, "recurring job skipped",
		slog.String("job_id", job.ID.String()),
		slog.String("transaction_id", job.TransactionID.String()),
		slog.String("reason", reason.Error()),
	)

	return nil
}

func (s *RecurringService) handleProcessingError(ctx context.Context, job *models.RecurringJob, err error) error {
	if job.CanRetry() {
		backoffMs := int64(math.Pow(2, float64(job.RetryCount+1)) * 1000)

		s.auditLogger.LogRetryAttempt(ctx, job.ID, job.TransactionID, job.RetryCount+1, job.MaxRetries, backoffMs)

		if retryErr := s.jobRepo.Retry(ctx, job, err.Error(), s.now().UTC()); retryErr != nil {
			return fmt.Errorf("failed to schedule retry: %w", retryErr)
		}

		s.metrics.IncrementCounter(MetricRecurringRetry, nil)

		return err
	}

	if markErr := s.jobRepo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		return markErr
	}

	s.metrics.IncrementCounter(MetricRecurringFailed, nil)
	s.auditLogger.LogJobFailed(ctx, job.ID, job.TransactionID, err.Error(), job.RetryCount)

	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
}

// CleanupCompletedJobs deletes finished jobs older than the retention window
func (s *RecurringService) CleanupCompletedJobs(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.jobRepo.CleanupCompleted(ctx, now.Add(-s.cfg.JobRetention))
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "cleaned up recurring jobs", slog.Int64("deleted", deleted))
	}

	return deleted, nil
}

// ReclaimStaleJobs puts jobs that have sat in processing for longer than the
// stale window back to pending.
func (s *RecurringService) ReclaimStaleJobs(ctx context.Context, now time.Time) (int64, error) {
	reclaimed, err := s.jobRepo.ReclaimStale(ctx, now.Add(-s.cfg.JobStaleAfter), now)
	if err != nil {
		return 0, err
	}

	if reclaimed > 0 {
		s.logger.WarnContext(ctx, "reclaimed stale recurring jobs", slog.Int64("reclaimed", reclaimed))
	}

	return reclaimed, nil
}

// GetQueueMetrics returns job counts per status and exports them as gauges
func (s *RecurringService) GetQueueMetrics(ctx context.Context) (*dto.QueueMetrics, error) {
	counts, err := s.jobRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	for status, count := range counts {
		s.metrics.RecordGauge(MetricQueueDepth, float64(count), map[string]string{"status": status})
	}

	return &dto.QueueMetrics{
		PendingCount:    counts[models.RecurringJobStatusPending],
		ProcessingCount: counts[models.RecurringJobStatusProcessing],
		CompletedCount:  counts[models.RecurringJobStatusCompleted],
		SkippedCount:    counts[models.RecurringJobStatusSkipped],
		FailedCount:     counts[models.RecurringJobStatusFailed],
	}, nil
}
