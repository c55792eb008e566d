package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RecurringJobStatusPending    = "pending"
	RecurringJobStatusProcessing = "processing"
	RecurringJobStatusCompleted  = "completed"
	RecurringJobStatusSkipped    = "skipped"
	RecurringJobStatusFailed     = "failed"

	DefaultRecurringJobMaxRetries = 3
)

// RecurringJob is one unit of fan-out work: materialize a single recurring
// template. Jobs are delivered at least once; the materializer's due check
// makes duplicate delivery harmless.
type RecurringJob struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_recurring_jobs_transaction" json:"transaction_id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_recurring_jobs_status,priority:1" json:"status"`
	RetryCount    int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries    int        `gorm:"not null;default:3" json:"max_retries"`
	ScheduledAt   time.Time  `gorm:"not null;index:idx_recurring_jobs_status,priority:2" json:"scheduled_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (*RecurringJob) TableName() string {
	return "recurring_jobs"
}

func (j *RecurringJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}

	if j.Status == "" {
		j.Status = RecurringJobStatusPending
	}

	if j.MaxRetries == 0 {
		j.MaxRetries = DefaultRecurringJobMaxRetries
	}

	now := time.Now().UTC()
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = now
	}
	return nil
}

// NextScheduledTime applies exponential backoff of 2^RetryCount seconds after now.
func (j *RecurringJob) NextScheduledTime(now time.Time) time.Time {
	backoffSeconds := 1 << uint(j.RetryCount)
	return now.Add(time.Duration(backoffSeconds) * time.Second)
}

func (j *RecurringJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}
