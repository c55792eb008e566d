package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepositoryInterface {
	return &accountRepository{db: db}
}

// Create inserts the account. A user's first account is always the default;
// asking for a default on a later account clears the flag on the others in
// the same database transaction.
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Account{}).Where("user_id = ?", account.UserID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to count accounts: %w", err)
		}

		if existing == 0 {
			account.IsDefault = true
		}

		if account.IsDefault && existing > 0 {
			if err := unsetDefaults(tx, account.UserID); err != nil {
				return err
			}
		}

		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
}

func (r *accountRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts by user ID: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) GetDefaultForUser(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_default = ?", userID, true).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get default account: %w", err)
	}
	return &account, nil
}

// SetDefault makes accountID the user's only default account. Unset-all and
// set-one run in one database transaction, so no reader sees zero or two defaults.
func (r *accountRepository) SetDefault(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to get account: %w", err)
		}

		if err := unsetDefaults(tx, userID); err != nil {
			return err
		}

		if err := tx.Model(&models.Account{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{"is_default": true, "updated_at": time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("failed to set default account: %w", err)
		}

		account.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyDelta atomically adds delta to the balance and returns the new balance.
func (r *accountRepository) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyBalanceDelta(tx, accountID, delta); err != nil {
			return err
		}

		var err error
		balance, err = readBalance(tx, accountID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func unsetDefaults(tx *gorm.DB, userID uuid.UUID) error {
	err := tx.Model(&models.Account{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]interface{}{"is_default": false, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to unset default accounts: %w", err)
	}
	return nil
}

// applyBalanceDelta increments the balance in place. The row is never read
// and written back, so concurrent deltas on the same account cannot be lost.
func applyBalanceDelta(tx *gorm.DB, accountID uuid.UUID, delta decimal.Decimal) error {
	result := tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// applyBalanceDeltas applies per-account deltas in account id order so that
// two writers touching the same accounts always lock them in the same order.
func applyBalanceDeltas(tx *gorm.DB, deltas map[uuid.UUID]decimal.Decimal) error {
	accountIDs := make([]uuid.UUID, 0, len(deltas))
	for accountID := range deltas {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Slice(accountIDs, func(i, j int) bool {
		return bytes.Compare(accountIDs[i][:], accountIDs[j][:]) < 0
	})

	for _, accountID := range accountIDs {
		if deltas[accountID].IsZero() {
			continue
		}
		if err := applyBalanceDelta(tx, accountID, deltas[accountID]); err != nil {
			return err
		}
	}
	return nil
}

func readBalance(tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error) {
	var account models.Account
	if err := tx.Select("id", "balance").Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return account.Balance, nil
}
