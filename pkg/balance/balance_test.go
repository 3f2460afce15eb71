package balance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCompute(t *testing.T) {
	t.Run("first week without history", func(t *testing.T) {
		// given
		in := Input{PriorBalance: decimal.Zero, Income: d("5"), Expenses: d("4"), Withdrawn: decimal.Zero}

		// when
		result, err := Compute(in, PolicyBlock)

		// then
		require.NoError(t, err)
		assert.True(t, d("1").Equal(result.NewBalance), "got %s", result.NewBalance)
		assert.True(t, d("1").Equal(result.Available))
		assert.False(t, result.NegativeWeek)
	})

	t.Run("withdrawal above available is rejected", func(t *testing.T) {
		in := Input{PriorBalance: d("10"), Income: d("5"), Expenses: d("4"), Withdrawn: d("20")}

		result, err := Compute(in, PolicyBlock)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "withdrawn", validationErr.Field)
		assert.Contains(t, validationErr.Error(), "exceeds available 11.00")
		assert.True(t, d("11").Equal(result.Available))
	})

	t.Run("withdrawal of the whole available amount leaves zero", func(t *testing.T) {
		in := Input{PriorBalance: d("10"), Income: d("5"), Expenses: d("4"), Withdrawn: d("11")}

		result, err := Compute(in, PolicyBlock)

		require.NoError(t, err)
		assert.True(t, result.NewBalance.IsZero())
	})

	t.Run("decimal amounts", func(t *testing.T) {
		in := Input{PriorBalance: d("2.50"), Income: d("5.25"), Expenses: d("4"), Withdrawn: d("0.75")}

		result, err := Compute(in, PolicyBlock)

		require.NoError(t, err)
		assert.Equal(t, "3.00", result.NewBalance.StringFixed(2))
	})

	t.Run("negative amounts are rejected", func(t *testing.T) {
		inputs := map[string]Input{
			"income":    {Income: d("-1")},
			"expenses":  {Income: d("5"), Expenses: d("-1")},
			"withdrawn": {Income: d("5"), Withdrawn: d("-1")},
		}
		for field, in := range inputs {
			_, err := Compute(in, PolicyWarn)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr, field)
			assert.Equal(t, field, validationErr.Field)
		}
	})

	t.Run("amounts above the maximum are rejected", func(t *testing.T) {
		huge := MaxAmount.Add(d("0.01"))
		inputs := map[string]Input{
			"income":    {Income: huge},
			"expenses":  {Income: d("5"), Expenses: huge},
			"withdrawn": {Income: d("5"), Withdrawn: huge},
		}
		for field, in := range inputs {
			_, err := Compute(in, PolicyWarn)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr, field)
			assert.Equal(t, field, validationErr.Field)
			assert.Contains(t, validationErr.Reason, "must not exceed")
		}
	})

	t.Run("the maximum itself is accepted", func(t *testing.T) {
		result, err := Compute(Input{Income: MaxAmount}, PolicyBlock)

		require.NoError(t, err)
		assert.True(t, MaxAmount.Equal(result.NewBalance))
	})
}

func TestCompute_NegativeWeek(t *testing.T) {
	in := Input{PriorBalance: d("10"), Income: d("3"), Expenses: d("4")}

	t.Run("block policy rejects the week", func(t *testing.T) {
		result, err := Compute(in, PolicyBlock)

		require.ErrorIs(t, err, ErrNegativeWeek)
		assert.True(t, result.NegativeWeek)
		assert.True(t, d("-1").Equal(result.WeekResult))
	})

	t.Run("warn policy accepts the week without withdrawal", func(t *testing.T) {
		result, err := Compute(in, PolicyWarn)

		require.NoError(t, err)
		assert.True(t, result.NegativeWeek)
		assert.True(t, result.Withdrawn.IsZero())
		assert.True(t, d("9").Equal(result.NewBalance), "newBalance must be priorBalance-1, got %s", result.NewBalance)
	})

	t.Run("warn policy caps withdrawal at zero", func(t *testing.T) {
		withdrawing := in
		withdrawing.Withdrawn = d("1")

		_, err := Compute(withdrawing, PolicyWarn)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.False(t, errors.Is(err, ErrNegativeWeek))
	})
}

func TestCompute_BalanceProperty(t *testing.T) {
	values := []string{"0", "0.5", "1", "3", "7.25", "20"}
	for _, prior := range values {
		for _, income := range values {
			for _, expenses := range values {
				available := d(prior).Add(d(income)).Sub(d(expenses))
				for _, withdrawn := range values {
					w := d(withdrawn)
					if w.GreaterThan(available) {
						continue
					}
					in := Input{PriorBalance: d(prior), Income: d(income), Expenses: d(expenses), Withdrawn: w}

					result, err := Compute(in, PolicyWarn)
					if d(income).LessThan(d(expenses)) {
						if w.IsPositive() {
							require.Error(t, err)
							continue
						}
					}

					require.NoError(t, err, "%+v", in)
					expected := d(prior).Add(d(income)).Sub(d(expenses)).Sub(w)
					assert.True(t, expected.Equal(result.NewBalance), "%+v: got %s want %s", in, result.NewBalance, expected)
					assert.False(t, result.NewBalance.IsNegative(), "%+v", in)
				}
			}
		}
	}
}

func TestMaxWithdrawal(t *testing.T) {
	assert.True(t, Result{Available: d("-3")}.MaxWithdrawal().IsZero())
	assert.True(t, Result{Available: d("4"), NegativeWeek: true}.MaxWithdrawal().IsZero())
	assert.True(t, d("4").Equal(Result{Available: d("4")}.MaxWithdrawal()))
}

func TestIncomeAndExpenses(t *testing.T) {
	assert.True(t, d("7.5").Equal(Income(d("5"), d("2.5"))))
	assert.True(t, d("6").Equal(Expenses([]decimal.Decimal{d("3"), d("1")}, d("1.5"), d("0.5"))))
	assert.True(t, Expenses(nil).IsZero())
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyWarn, ParsePolicy(" WARN "))
	assert.Equal(t, PolicyBlock, ParsePolicy("block"))
	assert.Equal(t, PolicyBlock, ParsePolicy("something else"))
}
