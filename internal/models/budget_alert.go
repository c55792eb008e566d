package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultBudgetAlertThreshold is the percentage of the budget that triggers an alert.
const DefaultBudgetAlertThreshold = 80

var hundred = decimal.NewFromInt(100)

// BudgetStatus is a budget together with the month-to-date spending it is
// measured against. Budget is nil when the user has not set one.
type BudgetStatus struct {
	Budget          *Budget          `json:"budget"`
	AccountID       uuid.UUID        `json:"account_id"`
	CurrentExpenses decimal.Decimal  `json:"current_expenses"`
	PercentageUsed  *decimal.Decimal `json:"percentage_used,omitempty"`
}

// BudgetAlertDecision is the outcome of evaluating one budget at one instant.
type BudgetAlertDecision struct {
	Send           bool
	PercentageUsed decimal.Decimal
	Expenses       decimal.Decimal
	Amount         decimal.Decimal
}

// MonthWindow returns the calendar month containing now as the half-open
// interval [start, end) in now's location.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// PercentageUsed returns expenses as a percentage of amount. A zero or
// negative amount is treated as 1.
func PercentageUsed(expenses, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		amount = decimal.NewFromInt(1)
	}
	return expenses.Div(amount).Mul(hundred)
}

// AlertedBefore reports whether an alert may fire in now's month given the
// last one sent: never sent, or sent in a strictly earlier calendar month.
func AlertedBefore(lastAlertSent *time.Time, now time.Time) bool {
	if lastAlertSent == nil {
		return true
	}
	return monthIndex(lastAlertSent.In(now.Location())) < monthIndex(now)
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// EvaluateBudgetAlert decides whether the budget's owner should be alerted.
// Threshold is a whole percentage.
func EvaluateBudgetAlert(amount, expenses decimal.Decimal, lastAlertSent *time.Time, now time.Time, threshold int) BudgetAlertDecision {
	if threshold <= 0 {
		threshold = DefaultBudgetAlertThreshold
	}

	used := PercentageUsed(expenses, amount)
	return BudgetAlertDecision{
		Send:           used.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold))) && AlertedBefore(lastAlertSent, now),
		PercentageUsed: used,
		Expenses:       expenses,
		Amount:         amount,
	}
}
