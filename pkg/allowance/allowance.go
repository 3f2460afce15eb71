package allowance

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zakgeld/moni/pkg/balance"
	"github.com/zakgeld/moni/pkg/week"
)

// WeeklyRecord is one confirmed week of an owner's allowance ledger.
type WeeklyRecord struct {
	Owner          string
	WeekId         string
	Income         decimal.Decimal
	Expenses       decimal.Decimal
	Withdrawn      decimal.Decimal
	RunningBalance decimal.Decimal
	CreatedAt      time.Time
}

// Entry is what the user logs for a week. Missing amounts are zero and an empty WeekId
// means the current week.
type Entry struct {
	WeekId    string
	Chores    decimal.Decimal
	Spending  decimal.Decimal
	Savings   decimal.Decimal
	Withdrawn decimal.Decimal
}

// Preview is a computed but not yet stored week.
type Preview struct {
	Owner  string
	WeekId string
	balance.Result
}

func (p Preview) Record(createdAt time.Time) WeeklyRecord {
	return WeeklyRecord{
		Owner:          p.Owner,
		WeekId:         p.WeekId,
		Income:         p.Income,
		Expenses:       p.Expenses,
		Withdrawn:      p.Withdrawn,
		RunningBalance: p.NewBalance,
		CreatedAt:      createdAt,
	}
}

// SortRecords returns the records in chronological week order. Records with malformed week
// labels keep their stored order at the end.
func SortRecords(records []WeeklyRecord) []WeeklyRecord {
	sorted := slices.Clone(records)
	week.SortBy(sorted, func(r WeeklyRecord) string { return r.WeekId })
	return sorted
}

// MostRecent returns the record of the latest week. Among records for the same week the
// one stored last wins. Only when no label can be parsed is the last stored record used.
func MostRecent(records []WeeklyRecord) (WeeklyRecord, bool) {
	if len(records) == 0 {
		return WeeklyRecord{}, false
	}

	found := -1
	var latest week.Key
	for i, r := range records {
		key := week.SortKey(r.WeekId)
		if key.Malformed() {
			continue
		}
		if found < 0 || key.Compare(latest) >= 0 {
			found = i
			latest = key
		}
	}
	if found < 0 {
		return records[len(records)-1], true
	}
	return records[found], true
}

// ErrAmountOutOfRange is returned when an amount does not fit the stores' cent columns.
var ErrAmountOutOfRange = errors.New("amount out of range")

func toCents(amount decimal.Decimal) (int64, error) {
	cents := amount.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return cents.IntPart(), nil
}

// recordCents converts the record's amounts in column order.
func recordCents(record WeeklyRecord) ([]any, error) {
	amounts := []decimal.Decimal{record.Income, record.Expenses, record.Withdrawn, record.RunningBalance}
	cents := make([]any, 0, len(amounts))
	for _, amount := range amounts {
		c, err := toCents(amount)
		if err != nil {
			return nil, fmt.Errorf("record %s of %s: %w", record.WeekId, record.Owner, err)
		}
		cents = append(cents, c)
	}
	return cents, nil
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
