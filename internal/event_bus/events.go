package event_bus

import (
	"time"

	"github.com/shopspring/decimal"
)

const WeekConfirmedEvent EventType = "allowance.week.confirmed"

// WeekConfirmed is published after a weekly record has been appended to the record store.
type WeekConfirmed struct {
	Owner          string
	WeekId         string
	Income         decimal.Decimal
	Expenses       decimal.Decimal
	Withdrawn      decimal.Decimal
	RunningBalance decimal.Decimal
	// NegativeWeek marks a week accepted with a warning because expenses exceeded income.
	NegativeWeek bool
	CreatedAt    time.Time
}
