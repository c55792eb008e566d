package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidBudgetAmount = errors.New("budget amount must be positive")

// Budget is a user's monthly spending target.
type Budget struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	return b.Validate()
}

func (b *Budget) Validate() error {
	if b.UserID == uuid.Nil {
		return errors.New("user ID is required")
	}

	if !b.Amount.IsPositive() {
		return ErrInvalidBudgetAmount
	}

	return nil
}

func (b *Budget) TableName() string {
	return "budgets"
}

// BudgetWithAccount is a budget joined with its owner and the owner's
// default account, the unit the alert job works on.
type BudgetWithAccount struct {
	BudgetID      uuid.UUID       `gorm:"column:budget_id"`
	UserID        uuid.UUID       `gorm:"column:user_id"`
	Amount        decimal.Decimal `gorm:"column:amount"`
	LastAlertSent *time.Time      `gorm:"column:last_alert_sent"`
	UserEmail     string          `gorm:"column:user_email"`
	UserName      string          `gorm:"column:user_name"`
	AccountID     uuid.UUID       `gorm:"column:account_id"`
	AccountName   string          `gorm:"column:account_name"`
	AccountType   string          `gorm:"column:account_type"`
}
