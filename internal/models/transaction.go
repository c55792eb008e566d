package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TransactionTypeIncome  = "INCOME"
	TransactionTypeExpense = "EXPENSE"

	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"

	RecurringDescriptionSuffix = "(Recurring)"
)

var (
	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrInvalidAmount            = errors.New("transaction amount must be positive")
	ErrRecurringIntervalMissing = errors.New("recurring interval is required for recurring transactions")
	ErrRecurringIntervalUnused  = errors.New("recurring interval is only allowed on recurring transactions")
	ErrOptimisticLockConflict   = errors.New("optimistic lock conflict: version mismatch")
)

// Transaction is either a concrete income/expense record or, when
// IsRecurring is set, a template that periodically spawns concrete records.
type Transaction struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	Type              string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Description       string          `gorm:"type:text" json:"description"`
	Date              time.Time       `gorm:"not null;index" json:"date"`
	Category          string          `gorm:"type:varchar(50);not null" json:"category"`
	ReceiptURL        string          `gorm:"type:text" json:"receipt_url,omitempty"`
	IsRecurring       bool            `gorm:"not null;default:false;index:idx_transactions_recurring_due,priority:1" json:"is_recurring"`
	RecurringInterval *string         `gorm:"type:varchar(10)" json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time      `gorm:"index:idx_transactions_recurring_due,priority:3" json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time      `json:"last_processed,omitempty"`
	Status            string          `gorm:"type:varchar(20);not null;default:'COMPLETED';index:idx_transactions_recurring_due,priority:2" json:"status"`
	Version           int             `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`

	Account Account `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook for Transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	if t.Status == "" {
		t.Status = TransactionStatusCompleted
	}

	if t.Version == 0 {
		t.Version = 1
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	return t.Validate()
}

// Validate validates the transaction fields
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return errors.New("user ID is required")
	}

	if t.AccountID == uuid.Nil {
		return errors.New("account ID is required")
	}

	if !IsValidTransactionType(t.Type) {
		return ErrInvalidTransactionType
	}

	if !IsValidTransactionStatus(t.Status) {
		return ErrInvalidTransactionStatus
	}

	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}

	if t.Category == "" {
		return errors.New("transaction category is required")
	}

	if len(t.Category) > 50 {
		return errors.New("category code too long")
	}

	return t.validateRecurrence()
}

// validateRecurrence enforces that an interval is set iff the transaction recurs.
func (t *Transaction) validateRecurrence() error {
	if !t.IsRecurring {
		if t.RecurringInterval != nil {
			return ErrRecurringIntervalUnused
		}
		return nil
	}

	if t.RecurringInterval == nil {
		return ErrRecurringIntervalMissing
	}

	if !IsValidRecurringInterval(*t.RecurringInterval) {
		return fmt.Errorf("%w: %q", ErrInvalidRecurringInterval, *t.RecurringInterval)
	}

	return nil
}

// IsCompleted returns true if the transaction is completed
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// Interval returns the recurrence interval or an empty string.
func (t *Transaction) Interval() string {
	if t.RecurringInterval == nil {
		return ""
	}
	return *t.RecurringInterval
}

// SignedAmount is the amount with the sign its type gives it.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return SignedAmount(t.Type, t.Amount)
}

// BalanceEffect is what the transaction does to its account balance.
// Recurring templates are never spent themselves, so their effect is zero.
func (t *Transaction) BalanceEffect() decimal.Decimal {
	if t.IsRecurring {
		return decimal.Zero
	}
	return t.SignedAmount()
}

// Materialize builds the concrete, non-recurring transaction a template
// spawns at the given instant.
func (t *Transaction) Materialize(now time.Time) *Transaction {
	return &Transaction{
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description + RecurringDescriptionSuffix,
		Date:        now,
		Category:    t.Category,
		IsRecurring: false,
		Status:      TransactionStatusCompleted,
	}
}

func (t *Transaction) TableName() string {
	return "transactions"
}

// IsValidTransactionType checks if the transaction type is valid
func IsValidTransactionType(transactionType string) bool {
	switch transactionType {
	case TransactionTypeIncome, TransactionTypeExpense:
		return true
	default:
		return false
	}
}

// IsValidTransactionStatus checks if the transaction status is valid
func IsValidTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	default:
		return false
	}
}
