package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"
	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RecurringServiceSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	ctx             context.Context
	transactionRepo *repository_mocks.MockTransactionRepositoryInterface
	jobRepo         *repository_mocks.MockRecurringJobRepositoryInterface
	breaker         *CircuitBreaker
	throttle        *KeyedLimiter
	service         *RecurringService
	now             time.Time
}

func (s *RecurringServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.transactionRepo = repository_mocks.NewMockTransactionRepositoryInterface(s.ctrl)
	s.jobRepo = repository_mocks.NewMockRecurringJobRepositoryInterface(s.ctrl)
	s.breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	s.throttle = NewKeyedLimiter(10, time.Minute, 10)

	cfg := config.SchedulerConfig{
		Workers:       2,
		PollInterval:  10 * time.Millisecond,
		JobMaxRetries: 3,
		JobRetention:  7 * 24 * time.Hour,
	}

	auditLogger, _ := newTestAuditLogger(s.ctrl)
	s.service = NewRecurringService(
		s.transactionRepo,
		s.jobRepo,
		auditLogger,
		newTestMetrics(),
		s.breaker,
		s.throttle,
		cfg,
		discardLogger(),
	).(*RecurringService)

	s.now = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	s.service.now = func() time.Time { return s.now }
}

func (s *RecurringServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRecurringServiceSuite(t *testing.T) {
	suite.Run(t, new(RecurringServiceSuite))
}

func (s *RecurringServiceSuite) job() *models.RecurringJob {
	return &models.RecurringJob{
		ID:            uuid.New(),
		TransactionID: uuid.New(),
		UserID:        uuid.New(),
		Status:        models.RecurringJobStatusPending,
		MaxRetries:    3,
		ScheduledAt:   s.now,
	}
}

func (s *RecurringServiceSuite) materialized(job *models.RecurringJob) *repositories.MaterializeResult {
	return &repositories.MaterializeResult{
		Template:   &models.Transaction{ID: job.TransactionID, UserID: job.UserID},
		Created:    &models.Transaction{ID: uuid.New(), UserID: job.UserID},
		NewBalance: decimal.NewFromInt(250),
	}
}

func (s *RecurringServiceSuite) TestTriggerRecurringTransactions_EnqueuesDueTemplates() {
	due := []models.Transaction{{ID: uuid.New()}, {ID: uuid.New()}}

	s.transactionRepo.EXPECT().FindDueRecurring(gomock.Any(), s.now, 0).Return(due, nil)
	s.jobRepo.EXPECT().EnqueueBatch(gomock.Any(), due, 3, s.now).Return(2, nil)

	enqueued, err := s.service.TriggerRecurringTransactions(s.ctx, s.now)

	s.Require().NoError(err)
	s.Equal(2, enqueued)
}

func (s *RecurringServiceSuite) TestTriggerRecurringTransactions_FindError() {
	s.transactionRepo.EXPECT().FindDueRecurring(gomock.Any(), s.now, 0).Return(nil, errors.New("connection reset"))

	_, err := s.service.TriggerRecurringTransactions(s.ctx, s.now)
	s.Error(err)
}

func (s *RecurringServiceSuite) TestProcessJob_Success() {
	job := s.job()

	gomock.InOrder(
		s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil),
		s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(s.materialized(job), nil),
		s.jobRepo.EXPECT().MarkCompleted(gomock.Any(), job.ID, models.RecurringJobStatusCompleted).Return(nil),
	)

	s.NoError(s.service.ProcessJob(s.ctx, job))
	s.Equal(StateClosed, s.breaker.GetState())
}

func (s *RecurringServiceSuite) TestProcessJob_AlreadyClaimed() {
	job := s.job()
	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(false, nil)

	s.NoError(s.service.ProcessJob(s.ctx, job))
}

func (s *RecurringServiceSuite) TestProcessJob_ThrottledJobIsRescheduled() {
	job := s.job()
	s.service.throttle = NewKeyedLimiter(1, time.Hour, 1)
	s.Require().True(s.service.throttle.Allow(job.UserID.String()))

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.jobRepo.EXPECT().Reschedule(gomock.Any(), job.ID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, scheduledAt time.Time) error {
			s.True(scheduledAt.After(s.now))
			return nil
		})

	s.NoError(s.service.ProcessJob(s.ctx, job))
}

func (s *RecurringServiceSuite) TestProcessJob_NotDueIsSkipped() {
	job := s.job()

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(nil, repositories.ErrNotDue)
	s.jobRepo.EXPECT().MarkCompleted(gomock.Any(), job.ID, models.RecurringJobStatusSkipped).Return(nil)

	s.NoError(s.service.ProcessJob(s.ctx, job))
}

func (s *RecurringServiceSuite) TestProcessJob_DeletedTemplateIsSkipped() {
	job := s.job()

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(nil, repositories.ErrTransactionNotFound)
	s.jobRepo.EXPECT().MarkCompleted(gomock.Any(), job.ID, models.RecurringJobStatusSkipped).Return(nil)

	s.NoError(s.service.ProcessJob(s.ctx, job))
}

func (s *RecurringServiceSuite) TestProcessJob_FailureIsRetried() {
	job := s.job()
	materializeErr := errors.New("serialization failure")

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(nil, materializeErr)
	s.jobRepo.EXPECT().Retry(gomock.Any(), job, materializeErr.Error(), s.now).Return(nil)

	err := s.service.ProcessJob(s.ctx, job)

	s.ErrorIs(err, materializeErr)
	s.NotErrorIs(err, ErrMaxRetriesExceeded)
	s.Equal(1, s.breaker.GetFailureCount())
}

func (s *RecurringServiceSuite) TestProcessJob_FailsAfterMaxRetries() {
	job := s.job()
	job.RetryCount = job.MaxRetries
	materializeErr := errors.New("serialization failure")

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(nil, materializeErr)
	s.jobRepo.EXPECT().MarkFailed(gomock.Any(), job.ID, materializeErr.Error()).Return(nil)

	err := s.service.ProcessJob(s.ctx, job)

	s.ErrorIs(err, ErrMaxRetriesExceeded)
	s.ErrorIs(err, materializeErr)
}

func (s *RecurringServiceSuite) TestProcessJob_OutcomeWrittenAfterCancellation() {
	job := s.job()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).DoAndReturn(
		func(context.Context, uuid.UUID) (bool, error) {
			cancel()
			return true, nil
		})
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).DoAndReturn(
		func(ctx context.Context, _, _ uuid.UUID, _ time.Time) (*repositories.MaterializeResult, error) {
			return nil, ctx.Err()
		})
	s.jobRepo.EXPECT().Retry(gomock.Any(), job, context.Canceled.Error(), s.now).DoAndReturn(
		func(ctx context.Context, _ *models.RecurringJob, _ string, _ time.Time) error {
			s.NoError(ctx.Err())
			return nil
		})

	err := s.service.ProcessJob(ctx, job)
	s.ErrorIs(err, context.Canceled)
}

func (s *RecurringServiceSuite) TestProcessJob_UsesSchedulerTimezone() {
	cfg := s.service.cfg
	cfg.Timezone = "America/New_York"
	auditLogger, _ := newTestAuditLogger(s.ctrl)
	service := NewRecurringService(
		s.transactionRepo, s.jobRepo, auditLogger, newTestMetrics(), s.breaker, s.throttle, cfg, discardLogger(),
	).(*RecurringService)
	// 02:00 UTC on the first is still the last day of the previous month in New York.
	service.now = func() time.Time { return time.Date(2024, time.June, 1, 2, 0, 0, 0, time.UTC) }
	job := s.job()

	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _ uuid.UUID, now time.Time) (*repositories.MaterializeResult, error) {
			s.Equal("America/New_York", now.Location().String())
			s.Equal(time.May, now.Month())
			s.Equal(31, now.Day())
			return nil, repositories.ErrNotDue
		})
	s.jobRepo.EXPECT().MarkCompleted(gomock.Any(), job.ID, models.RecurringJobStatusSkipped).Return(nil)

	s.NoError(service.ProcessJob(s.ctx, job))
}

func (s *RecurringServiceSuite) TestProcessJob_OpenCircuitLeavesJobPending() {
	s.service.circuitBreaker = NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour, HalfOpenMaxSucc: 1})
	s.service.circuitBreaker.RecordFailure()

	err := s.service.ProcessJob(s.ctx, s.job())
	s.ErrorIs(err, ErrCircuitBreakerOpen)
}

func (s *RecurringServiceSuite) TestStartProcessing_RunsFetchedJobs() {
	job := s.job()
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	reclaim := s.jobRepo.EXPECT().ReclaimStale(gomock.Any(), s.now.Add(-defaultJobStaleAfter), s.now).Return(int64(0), nil)
	first := s.jobRepo.EXPECT().FetchPending(gomock.Any(), s.now, 4).Return([]*models.RecurringJob{job}, nil).After(reclaim)
	s.jobRepo.EXPECT().FetchPending(gomock.Any(), s.now, 4).Return(nil, nil).After(first).AnyTimes()
	s.jobRepo.EXPECT().Claim(gomock.Any(), job.ID).Return(true, nil)
	s.transactionRepo.EXPECT().MaterializeRecurring(gomock.Any(), job.TransactionID, job.UserID, s.now).Return(s.materialized(job), nil)
	s.jobRepo.EXPECT().MarkCompleted(gomock.Any(), job.ID, models.RecurringJobStatusCompleted).DoAndReturn(
		func(context.Context, uuid.UUID, string) error {
			close(done)
			return nil
		})

	stopped := make(chan struct{})
	go func() {
		s.service.StartProcessing(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("job was not processed")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		s.Fail("workers did not stop")
	}
}

func (s *RecurringServiceSuite) TestCleanupCompletedJobs() {
	s.jobRepo.EXPECT().CleanupCompleted(gomock.Any(), s.now.Add(-7*24*time.Hour)).Return(int64(12), nil)

	deleted, err := s.service.CleanupCompletedJobs(s.ctx, s.now)

	s.Require().NoError(err)
	s.Equal(int64(12), deleted)
}

func (s *RecurringServiceSuite) TestReclaimStaleJobs() {
	s.service.cfg.JobStaleAfter = 15 * time.Minute
	s.jobRepo.EXPECT().ReclaimStale(gomock.Any(), s.now.Add(-15*time.Minute), s.now).Return(int64(2), nil)

	reclaimed, err := s.service.ReclaimStaleJobs(s.ctx, s.now)

	s.Require().NoError(err)
	s.Equal(int64(2), reclaimed)
}

func (s *RecurringServiceSuite) TestGetQueueMetrics() {
	s.jobRepo.EXPECT().CountByStatus(gomock.Any()).Return(map[string]int64{
		models.RecurringJobStatusPending:   4,
		models.RecurringJobStatusCompleted: 9,
		models.RecurringJobStatusFailed:    1,
	}, nil)

	metrics, err := s.service.GetQueueMetrics(s.ctx)

	s.Require().NoError(err)
	s.Equal(int64(4), metrics.PendingCount)
	s.Equal(int64(0), metrics.ProcessingCount)
	s.Equal(int64(9), metrics.CompletedCount)
	s.Equal(int64(1), metrics.FailedCount)
}
