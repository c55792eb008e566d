package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	AccountTypeCurrent = "CURRENT"
	AccountTypeSavings = "SAVINGS"

	AccountNameMinLength = 3
	AccountNameMaxLength = 100
)

var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidAccountName = errors.New("account name must be between 3 and 100 characters")
	ErrInvalidBalance     = errors.New("balance cannot be negative")
)

// Account is a user-owned money container. Its balance only moves through
// the ledger increment in the account repository.
type Account struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	AccountType string          `gorm:"type:varchar(20);not null" json:"type"`
	Balance     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	IsDefault   bool            `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`

	User         User          `gorm:"foreignKey:UserID" json:"-"`
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"-"`
}

// BeforeCreate hook for Account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	return a.Validate()
}

// Validate validates the account fields
func (a *Account) Validate() error {
	if a.UserID == uuid.Nil {
		return errors.New("user ID is required")
	}

	name := strings.TrimSpace(a.Name)
	if len(name) < AccountNameMinLength || len(name) > AccountNameMaxLength {
		return ErrInvalidAccountName
	}

	if !IsValidAccountType(a.AccountType) {
		return ErrInvalidAccountType
	}

	if a.Balance.IsNegative() {
		return ErrInvalidBalance
	}

	return nil
}

func (a *Account) TableName() string {
	return "accounts"
}

// IsValidAccountType checks if the account type is valid
func IsValidAccountType(accountType string) bool {
	switch accountType {
	case AccountTypeCurrent, AccountTypeSavings:
		return true
	default:
		return false
	}
}
