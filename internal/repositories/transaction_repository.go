package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNotDue means the template was not due when re-checked inside the
	// materializing transaction, usually because another delivery won.
	ErrNotDue = errors.New("recurring transaction is not due")
)

const defaultListLimit = 20

// DeleteResult reports what a bulk delete removed and the net balance
// change it applied per account.
type DeleteResult struct {
	Deleted int
	Deltas  map[uuid.UUID]decimal.Decimal
}

// MaterializeResult is the outcome of one successful materialization.
type MaterializeResult struct {
	Template   *models.Transaction
	Created    *models.Transaction
	NewBalance decimal.Decimal
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &transactionRepository{db: db}
}

// CreateWithBalance inserts the transaction and applies its balance effect in
// one database transaction, returning the account's new balance.
func (r *transactionRepository) CreateWithBalance(ctx context.Context, transaction *models.Transaction) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		if err := applyBalanceDelta(tx, transaction.AccountID, transaction.BalanceEffect()); err != nil {
			return err
		}

		var err error
		balance, err = readBalance(tx, transaction.AccountID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// ReplaceAllWithBalance swaps the account's transaction history for
// transactions and sets the balance to their net effect, all in one database
// transaction.
func (r *transactionRepository) ReplaceAllWithBalance(ctx context.Context, accountID uuid.UUID, transactions []models.Transaction) (decimal.Decimal, error) {
	for i := range transactions {
		if transactions[i].AccountID != accountID {
			return decimal.Zero, fmt.Errorf("transaction %d belongs to another account", i)
		}
	}

	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Account{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"balance":    models.NetDeltas(transactions, false)[accountID],
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to reset balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		if err := tx.Where("account_id = ?", accountID).Delete(&models.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}

		if len(transactions) > 0 {
			if err := tx.CreateInBatches(transactions, 100).Error; err != nil {
				return fmt.Errorf("failed to create transactions: %w", err)
			}
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

func (r *transactionRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &transaction, nil
}

// List returns the user's transactions newest first, keyset-paginated on
// (date, id).
func (r *transactionRepository) List(ctx context.Context, userID uuid.UUID, filters models.TransactionFilters) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	if filters.AccountID != nil {
		query = query.Where("account_id = ?", *filters.AccountID)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.IsRecurring != nil {
		query = query.Where("is_recurring = ?", *filters.IsRecurring)
	}
	if filters.StartDate != nil {
		query = query.Where("date >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		query = query.Where("date <= ?", *filters.EndDate)
	}
	if filters.CursorDate != nil {
		query = query.Where("(date < ?) OR (date = ? AND id < ?)", *filters.CursorDate, *filters.CursorDate, filters.CursorID)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var transactions []models.Transaction
	if err := query.Order("date DESC, id DESC").Limit(limit).Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (r *transactionRepository) CountByAccount(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		AccountID uuid.UUID
		Count     int64
	}

	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("account_id, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("account_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.AccountID] = row.Count
	}
	return counts, nil
}

// UpdateWithBalance loads the transaction, lets apply mutate it, and writes it
// back together with the balance correction: the old effect is reversed and
// the new one applied, netted per account. The write is conditional on the
// version read, so a concurrent materialization or edit surfaces as
// models.ErrOptimisticLockConflict instead of being overwritten.
func (r *transactionRepository) UpdateWithBalance(ctx context.Context, id, userID uuid.UUID, apply func(*models.Transaction) error) (*models.Transaction, error) {
	var updated models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to get transaction: %w", err)
		}

		original := updated
		if err := apply(&updated); err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		if updated.AccountID != original.AccountID {
			var count int64
			if err := tx.Model(&models.Account{}).
				Where("id = ? AND user_id = ?", updated.AccountID, userID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check account: %w", err)
			}
			if count == 0 {
				return ErrAccountNotFound
			}
		}

		updated.UpdatedAt = time.Now().UTC()
		result := tx.Model(&models.Transaction{}).
			Where("id = ? AND version = ?", original.ID, original.Version).
			Updates(map[string]interface{}{
				"account_id":          updated.AccountID,
				"type":                updated.Type,
				"amount":              updated.Amount,
				"description":         updated.Description,
				"date":                updated.Date,
				"category":            updated.Category,
				"receipt_url":         updated.ReceiptURL,
				"is_recurring":        updated.IsRecurring,
				"recurring_interval":  updated.RecurringInterval,
				"next_recurring_date": updated.NextRecurringDate,
				"last_processed":      updated.LastProcessed,
				"version":             gorm.Expr("version + 1"),
				"updated_at":          updated.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrOptimisticLockConflict
		}
		updated.Version = original.Version + 1

		deltas := models.MergeDeltas(
			models.NetDeltas([]models.Transaction{original}, true),
			models.NetDeltas([]models.Transaction{updated}, false),
		)
		return applyBalanceDeltas(tx, deltas)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteWithBalances removes the user's transactions among ids and reverses
// their balance effects with one update per affected account. Nothing is
// changed when none of the ids match; deletion and balance updates commit or
// roll back together.
func (r *transactionRepository) DeleteWithBalances(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*DeleteResult, error) {
	if len(ids) == 0 {
		return nil, ErrTransactionNotFound
	}

	var result DeleteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transactions []models.Transaction
		if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&transactions).Error; err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		if len(transactions) == 0 {
			return ErrTransactionNotFound
		}

		found := make([]uuid.UUID, len(transactions))
		for i := range transactions {
			found[i] = transactions[i].ID
		}

		if err := tx.Where("user_id = ? AND id IN ?", userID, found).Delete(&models.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}

		result.Deleted = len(transactions)
		result.Deltas = models.NetDeltas(transactions, true)
		return applyBalanceDeltas(tx, result.Deltas)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FindDueRecurring selects completed recurring templates that never ran or
// whose next date has arrived. It has no side effects.
func (r *transactionRepository) FindDueRecurring(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("is_recurring = ? AND status = ?", true, models.TransactionStatusCompleted).
		Where("last_processed IS NULL OR next_recurring_date <= ?", now).
		Order("next_recurring_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to find due recurring transactions: %w", err)
	}
	return transactions, nil
}

// MaterializeRecurring spawns one concrete transaction from a due template.
// Inside a single database transaction it re-reads the template, re-checks
// that it is due, advances it with a version compare-and-swap, inserts the
// concrete transaction and applies its balance delta. A template that is no
// longer due, or whose advance loses the version race, yields ErrNotDue and
// changes nothing, so duplicate deliveries are harmless.
func (r *transactionRepository) MaterializeRecurring(ctx context.Context, templateID, userID uuid.UUID, now time.Time) (*MaterializeResult, error) {
	var result MaterializeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template models.Transaction
		if err := tx.Where("id = ? AND user_id = ?", templateID, userID).First(&template).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to get recurring transaction: %w", err)
		}

		if !template.IsCompleted() || !models.IsDue(&template, now) {
			return ErrNotDue
		}

		advance := map[string]interface{}{
			"last_processed": now,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		}
		if interval := template.Interval(); interval != "" {
			next, err := models.NextOccurrence(now, interval)
			if err != nil {
				return err
			}
			advance["next_recurring_date"] = next
			template.NextRecurringDate = &next
		}

		advanced := tx.Model(&models.Transaction{}).
			Where("id = ? AND version = ?", template.ID, template.Version).
			Updates(advance)
		if advanced.Error != nil {
			return fmt.Errorf("failed to advance recurring transaction: %w", advanced.Error)
		}
		if advanced.RowsAffected == 0 {
			return ErrNotDue
		}
		template.LastProcessed = &now
		template.Version++

		created := template.Materialize(now)
		if err := tx.Create(created).Error; err != nil {
			return fmt.Errorf("failed to create recurring instance: %w", err)
		}

		if err := applyBalanceDelta(tx, created.AccountID, created.BalanceEffect()); err != nil {
			return err
		}

		balance, err := readBalance(tx, created.AccountID)
		if err != nil {
			return err
		}

		result = MaterializeResult{Template: &template, Created: created, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SumExpenses totals concrete EXPENSE transactions on the account dated in
// [start, end).
func (r *transactionRepository) SumExpenses(ctx context.Context, accountID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("SUM(amount)").
		Where("account_id = ? AND type = ? AND is_recurring = ?", accountID, models.TransactionTypeExpense, false).
		Where("date >= ? AND date < ?", start, end).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
