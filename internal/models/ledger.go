package models

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNonFiniteAmount = errors.New("amount must be a finite number")

// SignedAmount maps a non-negative amount to its balance effect: expenses
// reduce the balance, income increases it.
func SignedAmount(transactionType string, amount decimal.Decimal) decimal.Decimal {
	if transactionType == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// NetDeltas folds the balance effect of transactions into one delta per
// account. With reverse set the effects are negated, which is what removing
// the transactions does to the balances. Recurring templates contribute zero
// but still name their account.
func NetDeltas(transactions []Transaction, reverse bool) map[uuid.UUID]decimal.Decimal {
	deltas := make(map[uuid.UUID]decimal.Decimal)
	for i := range transactions {
		delta := transactions[i].BalanceEffect()
		if reverse {
			delta = delta.Neg()
		}
		deltas[transactions[i].AccountID] = deltas[transactions[i].AccountID].Add(delta)
	}
	return deltas
}

// MergeDeltas adds the deltas of b into a and returns a.
func MergeDeltas(a, b map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	for accountID, delta := range b {
		a[accountID] = a[accountID].Add(delta)
	}
	return a
}

// ParseAmount parses a decimal amount, rejecting NaN, infinities and empty input.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(strings.TrimLeft(raw, "+-")) {
	case "", "nan", "inf", "infinity":
		return decimal.Zero, ErrNonFiniteAmount
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// AmountFromFloat converts a float amount, rejecting NaN and infinities.
func AmountFromFloat(value float64) (decimal.Decimal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero, ErrNonFiniteAmount
	}
	return decimal.NewFromFloat(value).Round(2), nil
}
