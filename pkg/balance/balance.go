// Package balance computes a week's running balance from the prior balance and the week's
// income, expenses and withdrawal.
package balance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NegativeWeekPolicy decides what happens when a week's expenses exceed its income.
type NegativeWeekPolicy string

const (
	// PolicyBlock rejects the week with ErrNegativeWeek.
	PolicyBlock NegativeWeekPolicy = "block"
	// PolicyWarn accepts the week with a warning flag and no withdrawal.
	PolicyWarn NegativeWeekPolicy = "warn"
)

// ParsePolicy maps a configuration value to a policy. Unknown values fall back to PolicyBlock.
func ParsePolicy(value string) NegativeWeekPolicy {
	if NegativeWeekPolicy(strings.ToLower(strings.TrimSpace(value))) == PolicyWarn {
		return PolicyWarn
	}
	return PolicyBlock
}

var ErrNegativeWeek = errors.New("negative weekly result")

// MaxAmount is the largest single amount a week may carry.
var MaxAmount = decimal.New(1, 9)

// ValidationError reports a malformed or out of range amount.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Input struct {
	PriorBalance decimal.Decimal
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	Withdrawn    decimal.Decimal
}

type Result struct {
	PriorBalance decimal.Decimal
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	// WeekResult is Income - Expenses.
	WeekResult decimal.Decimal
	// Available is what can be withdrawn before this week's withdrawal is applied.
	Available    decimal.Decimal
	Withdrawn    decimal.Decimal
	NewBalance   decimal.Decimal
	NegativeWeek bool
}

// MaxWithdrawal is the largest withdrawal Compute accepts for the result's week.
func (r Result) MaxWithdrawal() decimal.Decimal {
	if r.NegativeWeek || !r.Available.IsPositive() {
		return decimal.Zero
	}
	return r.Available
}

// Compute applies the week to the prior balance.
//
// available = prior + income - expenses, withdrawn must be within [0, max(available, 0)]
// and the new balance is available - withdrawn. When income is below expenses the policy
// either rejects the week (ErrNegativeWeek, returned together with the computed result) or
// accepts it with withdrawal capped at zero.
func Compute(in Input, policy NegativeWeekPolicy) (Result, error) {
	if err := InRange("income", in.Income); err != nil {
		return Result{}, err
	}
	if err := InRange("expenses", in.Expenses); err != nil {
		return Result{}, err
	}
	if err := InRange("withdrawn", in.Withdrawn); err != nil {
		return Result{}, err
	}

	weekResult := in.Income.Sub(in.Expenses)
	available := in.PriorBalance.Add(weekResult)
	result := Result{
		PriorBalance: in.PriorBalance,
		Income:       in.Income,
		Expenses:     in.Expenses,
		WeekResult:   weekResult,
		Available:    available,
		Withdrawn:    in.Withdrawn,
		NewBalance:   available.Sub(in.Withdrawn),
		NegativeWeek: weekResult.IsNegative(),
	}

	if result.NegativeWeek && policy != PolicyWarn {
		return result, ErrNegativeWeek
	}
	if limit := result.MaxWithdrawal(); in.Withdrawn.GreaterThan(limit) {
		return result, &ValidationError{
			Field:  "withdrawn",
			Reason: fmt.Sprintf("%s exceeds available %s", in.Withdrawn.StringFixed(2), limit.StringFixed(2)),
		}
	}
	return result, nil
}

// Income sums the base allowance and the chores earnings.
func Income(base, chores decimal.Decimal) decimal.Decimal {
	return base.Add(chores)
}

// Expenses sums fixed costs and any extra weekly spending (discretionary, savings).
func Expenses(fixedCosts []decimal.Decimal, extra ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, c := range fixedCosts {
		total = total.Add(c)
	}
	for _, c := range extra {
		total = total.Add(c)
	}
	return total
}

// InRange checks that amount lies within [0, MaxAmount].
func InRange(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	if amount.GreaterThan(MaxAmount) {
		return &ValidationError{Field: field, Reason: "must not exceed " + MaxAmount.StringFixed(2)}
	}
	return nil
}
