package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRecurringJobNotFound = errors.New("recurring job not found")

type recurringJobRepository struct {
	db *gorm.DB
}

func NewRecurringJobRepository(db *gorm.DB) RecurringJobRepositoryInterface {
	return &recurringJobRepository{db: db}
}

// EnqueueBatch inserts one pending job per template, skipping templates that
// already have a pending or processing job. It returns how many were queued.
// A concurrent trigger that wins the race for a template trips the unique
// open-job index; that insert is dropped and counts as already queued.
func (r *recurringJobRepository) EnqueueBatch(ctx context.Context, templates []models.Transaction, maxRetries int, scheduledAt time.Time) (int, error) {
	if len(templates) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(templates))
	for i := range templates {
		ids[i] = templates[i].ID
	}

	queued := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open []uuid.UUID
		if err := tx.Model(&models.RecurringJob{}).
			Where("transaction_id IN ? AND status IN ?", ids,
				[]string{models.RecurringJobStatusPending, models.RecurringJobStatusProcessing}).
			Pluck("transaction_id", &open).Error; err != nil {
			return fmt.Errorf("failed to check open jobs: %w", err)
		}

		skip := make(map[uuid.UUID]bool, len(open))
		for _, id := range open {
			skip[id] = true
		}

		jobs := make([]models.RecurringJob, 0, len(templates))
		for i := range templates {
			if skip[templates[i].ID] {
				continue
			}
			skip[templates[i].ID] = true
			jobs = append(jobs, models.RecurringJob{
				TransactionID: templates[i].ID,
				UserID:        templates[i].UserID,
				MaxRetries:    maxRetries,
				ScheduledAt:   scheduledAt,
			})
		}

		if len(jobs) == 0 {
			return nil
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(jobs, 100)
		if result.Error != nil {
			return fmt.Errorf("failed to enqueue recurring jobs: %w", result.Error)
		}
		queued = int(result.RowsAffected)
		return nil
	})
	return queued, err
}

func (r *recurringJobRepository) FetchPending(ctx context.Context, now time.Time, limit int) ([]*models.RecurringJob, error) {
	var jobs []*models.RecurringJob

	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.RecurringJobStatusPending, now).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	return jobs, nil
}

// Claim moves a pending job to processing. It reports false when another
// worker claimed it first.
func (r *recurringJobRepository) Claim(ctx context.Context, jobID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RecurringJob{}).
		Where("id = ? AND status = ?", jobID, models.RecurringJobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.RecurringJobStatusProcessing,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim job: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkCompleted closes the job with a terminal success status
// (completed or skipped).
func (r *recurringJobRepository) MarkCompleted(ctx context.Context, jobID uuid.UUID, status string) error {
	now := time.Now().UTC()
	return r.updateJob(ctx, jobID, map[string]interface{}{
		"status":       status,
		"processed_at": now,
		"updated_at":   now,
	}, "failed to mark job as completed")
}

func (r *recurringJobRepository) MarkFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	now := time.Now().UTC()
	return r.updateJob(ctx, jobID, map[string]interface{}{
		"status":        models.RecurringJobStatusFailed,
		"error_message": errorMessage,
		"processed_at":  now,
		"updated_at":    now,
	}, "failed to mark job as failed")
}

// Retry puts the job back to pending with its retry count bumped and the
// next attempt pushed out by exponential backoff.
func (r *recurringJobRepository) Retry(ctx context.Context, job *models.RecurringJob, errorMessage string, now time.Time) error {
	job.RetryCount++
	job.ScheduledAt = job.NextScheduledTime(now)
	job.Status = models.RecurringJobStatusPending
	job.ErrorMessage = errorMessage

	return r.updateJob(ctx, job.ID, map[string]interface{}{
		"status":        job.Status,
		"retry_count":   job.RetryCount,
		"scheduled_at":  job.ScheduledAt,
		"error_message": errorMessage,
		"updated_at":    now,
	}, "failed to schedule retry")
}

// Reschedule returns a job to pending without consuming a retry.
func (r *recurringJobRepository) Reschedule(ctx context.Context, jobID uuid.UUID, scheduledAt time.Time) error {
	return r.updateJob(ctx, jobID, map[string]interface{}{
		"status":       models.RecurringJobStatusPending,
		"scheduled_at": scheduledAt,
		"updated_at":   time.Now().UTC(),
	}, "failed to reschedule job")
}

// ReclaimStale returns jobs stuck in processing since before olderThan to
// pending so a crashed or interrupted worker does not strand the template.
func (r *recurringJobRepository) ReclaimStale(ctx context.Context, olderThan, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.RecurringJob{}).
		Where("status = ? AND updated_at < ?", models.RecurringJobStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":       models.RecurringJobStatusPending,
			"scheduled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *recurringJobRepository) updateJob(ctx context.Context, jobID uuid.UUID, updates map[string]interface{}, failure string) error {
	result := r.db.WithContext(ctx).Model(&models.RecurringJob{}).Where("id = ?", jobID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", failure, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecurringJobNotFound
	}
	return nil
}

func (r *recurringJobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	err := r.db.WithContext(ctx).Model(&models.RecurringJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := map[string]int64{
		models.RecurringJobStatusPending:    0,
		models.RecurringJobStatusProcessing: 0,
		models.RecurringJobStatusCompleted:  0,
		models.RecurringJobStatusSkipped:    0,
		models.RecurringJobStatusFailed:     0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CleanupCompleted deletes finished jobs processed before olderThan.
func (r *recurringJobRepository) CleanupCompleted(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND processed_at < ?",
			[]string{models.RecurringJobStatusCompleted, models.RecurringJobStatusSkipped}, olderThan).
		Delete(&models.RecurringJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup completed jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
