package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func validTransaction() Transaction {
	return Transaction{
		UserID:    uuid.New(),
		AccountID: uuid.New(),
		Type:      TransactionTypeExpense,
		Amount:    decimal.RequireFromString("42.10"),
		Date:      time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Category:  CategoryGroceries,
		Status:    TransactionStatusCompleted,
	}
}

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{
			name:   "valid expense",
			mutate: func(*Transaction) {},
		},
		{
			name: "valid recurring income",
			mutate: func(tx *Transaction) {
				tx.Type = TransactionTypeIncome
				tx.IsRecurring = true
				tx.RecurringInterval = strPtr(RecurringIntervalMonthly)
			},
		},
		{
			name:    "zero amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.Zero },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			mutate:  func(tx *Transaction) { tx.Type = "TRANSFER" },
			wantErr: ErrInvalidTransactionType,
		},
		{
			name:    "recurring without interval",
			mutate:  func(tx *Transaction) { tx.IsRecurring = true },
			wantErr: ErrRecurringIntervalMissing,
		},
		{
			name:    "interval without recurring",
			mutate:  func(tx *Transaction) { tx.RecurringInterval = strPtr(RecurringIntervalDaily) },
			wantErr: ErrRecurringIntervalUnused,
		},
		{
			name: "unknown interval",
			mutate: func(tx *Transaction) {
				tx.IsRecurring = true
				tx.RecurringInterval = strPtr("HOURLY")
			},
			wantErr: ErrInvalidRecurringInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTransaction_BeforeCreateDefaults(t *testing.T) {
	tx := validTransaction()
	tx.Status = ""

	require.NoError(t, tx.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, TransactionStatusCompleted, tx.Status)
	assert.Equal(t, 1, tx.Version)
}

func TestTransaction_Materialize(t *testing.T) {
	template := validTransaction()
	template.Description = "Rent"
	template.IsRecurring = true
	template.RecurringInterval = strPtr(RecurringIntervalMonthly)

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	concrete := template.Materialize(now)

	assert.Equal(t, template.UserID, concrete.UserID)
	assert.Equal(t, template.AccountID, concrete.AccountID)
	assert.True(t, template.Amount.Equal(concrete.Amount))
	assert.Equal(t, template.Category, concrete.Category)
	assert.Equal(t, "Rent(Recurring)", concrete.Description)
	assert.Equal(t, now, concrete.Date)
	assert.False(t, concrete.IsRecurring)
	assert.Nil(t, concrete.RecurringInterval)
	assert.NoError(t, concrete.Validate())
}
