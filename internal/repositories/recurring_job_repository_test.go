package repositories

import (
	"context"
	"testing"
	"time"

	"finance-tracker/internal/database"
	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RecurringJobRepositorySuite struct {
	suite.Suite
	db   *database.DB
	repo RecurringJobRepositoryInterface
	ctx  context.Context
	now  time.Time
}

func (s *RecurringJobRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewRecurringJobRepository(s.db.DB)
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *RecurringJobRepositorySuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func TestRecurringJobRepositorySuite(t *testing.T) {
	suite.Run(t, new(RecurringJobRepositorySuite))
}

func templates(n int) []models.Transaction {
	userID := uuid.New()
	out := make([]models.Transaction, n)
	for i := range out {
		out[i] = models.Transaction{ID: uuid.New(), UserID: userID}
	}
	return out
}

func (s *RecurringJobRepositorySuite) TestEnqueueBatch() {
	tmpls := templates(3)

	queued, err := s.repo.EnqueueBatch(s.ctx, tmpls, 3, s.now)
	s.NoError(err)
	s.Equal(3, queued)

	jobs, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.NoError(err)
	s.Len(jobs, 3)
	for _, job := range jobs {
		s.Equal(models.RecurringJobStatusPending, job.Status)
		s.Equal(3, job.MaxRetries)
	}
}

func (s *RecurringJobRepositorySuite) TestEnqueueBatch_SkipsOpenJobs() {
	tmpls := templates(2)

	_, err := s.repo.EnqueueBatch(s.ctx, tmpls[:1], 3, s.now)
	s.Require().NoError(err)

	queued, err := s.repo.EnqueueBatch(s.ctx, tmpls, 3, s.now)
	s.NoError(err)
	s.Equal(1, queued)

	queued, err = s.repo.EnqueueBatch(s.ctx, nil, 3, s.now)
	s.NoError(err)
	s.Zero(queued)
}

func (s *RecurringJobRepositorySuite) TestFetchPending_RespectsSchedule() {
	tmpls := templates(2)
	_, err := s.repo.EnqueueBatch(s.ctx, tmpls[:1], 3, s.now)
	s.Require().NoError(err)
	_, err = s.repo.EnqueueBatch(s.ctx, tmpls[1:], 3, s.now.Add(time.Hour))
	s.Require().NoError(err)

	jobs, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(tmpls[0].ID, jobs[0].TransactionID)
}

func (s *RecurringJobRepositorySuite) TestClaim_OnlyOnce() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(1), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 1)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)

	claimed, err := s.repo.Claim(s.ctx, jobs[0].ID)
	s.NoError(err)
	s.True(claimed)

	claimed, err = s.repo.Claim(s.ctx, jobs[0].ID)
	s.NoError(err)
	s.False(claimed)

	pending, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.NoError(err)
	s.Empty(pending)
}

func (s *RecurringJobRepositorySuite) TestRetry_BacksOff() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(1), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 1)
	s.Require().NoError(err)
	job := jobs[0]

	_, err = s.repo.Claim(s.ctx, job.ID)
	s.Require().NoError(err)

	s.NoError(s.repo.Retry(s.ctx, job, "database is locked", s.now))
	s.Equal(1, job.RetryCount)
	s.True(job.ScheduledAt.Equal(s.now.Add(2 * time.Second)))

	pending, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.NoError(err)
	s.Empty(pending)

	pending, err = s.repo.FetchPending(s.ctx, s.now.Add(2*time.Second), 10)
	s.NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("database is locked", pending[0].ErrorMessage)
}

func (s *RecurringJobRepositorySuite) TestCompleteFailAndCount() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(3), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(jobs, 3)

	s.NoError(s.repo.MarkCompleted(s.ctx, jobs[0].ID, models.RecurringJobStatusCompleted))
	s.NoError(s.repo.MarkCompleted(s.ctx, jobs[1].ID, models.RecurringJobStatusSkipped))
	s.NoError(s.repo.MarkFailed(s.ctx, jobs[2].ID, "boom"))

	counts, err := s.repo.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(int64(1), counts[models.RecurringJobStatusCompleted])
	s.Equal(int64(1), counts[models.RecurringJobStatusSkipped])
	s.Equal(int64(1), counts[models.RecurringJobStatusFailed])
	s.Equal(int64(0), counts[models.RecurringJobStatusPending])

	s.ErrorIs(s.repo.MarkFailed(s.ctx, uuid.New(), "boom"), ErrRecurringJobNotFound)
}

func (s *RecurringJobRepositorySuite) TestReschedule() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(1), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 1)
	s.Require().NoError(err)
	_, err = s.repo.Claim(s.ctx, jobs[0].ID)
	s.Require().NoError(err)

	later := s.now.Add(time.Minute)
	s.NoError(s.repo.Reschedule(s.ctx, jobs[0].ID, later))

	pending, err := s.repo.FetchPending(s.ctx, later, 10)
	s.NoError(err)
	s.Require().Len(pending, 1)
	s.Zero(pending[0].RetryCount)
}

func (s *RecurringJobRepositorySuite) TestCleanupCompleted() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(2), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.Require().NoError(err)

	s.NoError(s.repo.MarkCompleted(s.ctx, jobs[0].ID, models.RecurringJobStatusCompleted))

	deleted, err := s.repo.CleanupCompleted(s.ctx, time.Now().UTC().Add(time.Hour))
	s.NoError(err)
	s.Equal(int64(1), deleted)

	counts, err := s.repo.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(int64(1), counts[models.RecurringJobStatusPending])
}

func (s *RecurringJobRepositorySuite) TestReclaimStale() {
	_, err := s.repo.EnqueueBatch(s.ctx, templates(2), 3, s.now)
	s.Require().NoError(err)
	jobs, err := s.repo.FetchPending(s.ctx, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(jobs, 2)

	for _, job := range jobs {
		claimed, err := s.repo.Claim(s.ctx, job.ID)
		s.Require().NoError(err)
		s.Require().True(claimed)
	}

	stuckSince := time.Now().UTC().Add(-time.Hour)
	s.Require().NoError(s.db.Model(&models.RecurringJob{}).
		Where("id = ?", jobs[0].ID).
		UpdateColumn("updated_at", stuckSince).Error)

	now := time.Now().UTC()
	reclaimed, err := s.repo.ReclaimStale(s.ctx, now.Add(-10*time.Minute), now)
	s.NoError(err)
	s.Equal(int64(1), reclaimed)

	pending, err := s.repo.FetchPending(s.ctx, now, 10)
	s.NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(jobs[0].ID, pending[0].ID)

	counts, err := s.repo.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(int64(1), counts[models.RecurringJobStatusProcessing])
}

func (s *RecurringJobRepositorySuite) TestOpenJobIsUniquePerTemplate() {
	tmpls := templates(1)
	_, err := s.repo.EnqueueBatch(s.ctx, tmpls, 3, s.now)
	s.Require().NoError(err)

	duplicate := &models.RecurringJob{
		TransactionID: tmpls[0].ID,
		UserID:        tmpls[0].UserID,
		Status:        models.RecurringJobStatusPending,
		MaxRetries:    3,
		ScheduledAt:   s.now,
	}
	s.ErrorIs(s.db.Create(duplicate).Error, gorm.ErrDuplicatedKey)

	jobs, err := s.repo.FetchPending(s.ctx, s.now, 1)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Require().NoError(s.repo.MarkCompleted(s.ctx, jobs[0].ID, models.RecurringJobStatusCompleted))

	queued, err := s.repo.EnqueueBatch(s.ctx, tmpls, 3, s.now)
	s.NoError(err)
	s.Equal(1, queued)
}
