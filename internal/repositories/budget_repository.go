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
	"gorm.io/gorm/clause"
)

var ErrBudgetNotFound = errors.New("budget not found")

type budgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *gorm.DB) BudgetRepositoryInterface {
	return &budgetRepository{db: db}
}

// Upsert creates the user's budget or replaces its amount.
func (r *budgetRepository) Upsert(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.Budget, error) {
	budget := &models.Budget{UserID: userID, Amount: amount}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"amount": amount, "updated_at": time.Now().UTC()}),
	}).Create(budget).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert budget: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

func (r *budgetRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Budget, error) {
	var budget models.Budget
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &budget, nil
}

// ListWithDefaultAccount joins every budget with its owner and the owner's
// default account. Budgets whose owner has no default account are skipped.
func (r *budgetRepository) ListWithDefaultAccount(ctx context.Context) ([]models.BudgetWithAccount, error) {
	var rows []models.BudgetWithAccount
	err := r.db.WithContext(ctx).
		Table("budgets").
		Select(`budgets.id AS budget_id, budgets.user_id, budgets.amount, budgets.last_alert_sent,
			users.email AS user_email, users.name AS user_name,
			accounts.id AS account_id, accounts.name AS account_name, accounts.account_type`).
		Joins("JOIN users ON users.id = budgets.user_id").
		Joins("JOIN accounts ON accounts.user_id = budgets.user_id AND accounts.is_default = ?", true).
		Order("budgets.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return rows, nil
}

func (r *budgetRepository) MarkAlertSent(ctx context.Context, budgetID uuid.UUID, sentAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Budget{}).
		Where("id = ?", budgetID).
		Updates(map[string]interface{}{"last_alert_sent": sentAt, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to mark budget alert sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBudgetNotFound
	}
	return nil
}
