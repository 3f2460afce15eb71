package allowance

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/event_bus"
	"github.com/zakgeld/moni/internal/utils"
	"github.com/zakgeld/moni/pkg/balance"
	"github.com/zakgeld/moni/pkg/session"
	"github.com/zakgeld/moni/pkg/week"
)

var (
	ErrNoRecords            = errors.New("no weekly records")
	ErrWeekAlreadyConfirmed = errors.New("week already confirmed")
	ErrWeekOutOfOrder       = errors.New("week is before the most recent confirmed week")
)

// Settings are the household rules applied to every logged week.
type Settings struct {
	Amounts    config.AllowanceAmounts
	Policy     balance.NegativeWeekPolicy
	UniqueWeek bool
}

func SettingsFromConfig(cfg config.Allowance) (Settings, error) {
	amounts, err := cfg.Amounts()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Amounts:    amounts,
		Policy:     balance.ParsePolicy(cfg.NegativeWeek),
		UniqueWeek: cfg.UniqueWeek,
	}, nil
}

type Service interface {
	// Preview computes the week for the owner the session acts for and remembers it as
	// pending in the session. Nothing is stored.
	Preview(ctx context.Context, entry Entry) (Preview, error)
	// Confirm recomputes the week from the stored history and appends it.
	Confirm(ctx context.Context, entry Entry) (WeeklyRecord, error)
	// History returns the owner's records in chronological week order.
	History(ctx context.Context) ([]WeeklyRecord, error)
	Latest(ctx context.Context) (WeeklyRecord, error)
}

type ServiceImpl struct {
	repo     Repository
	sessions *session.Manager
	eventBus *event_bus.EventBus
	clock    utils.Clock
	settings Settings
}

func NewService(repo Repository, sessions *session.Manager, eventBus *event_bus.EventBus, clock utils.Clock, settings Settings) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		sessions: sessions,
		eventBus: eventBus,
		clock:    clock,
		settings: settings,
	}
}

func (s *ServiceImpl) Preview(ctx context.Context, entry Entry) (Preview, error) {
	current, err := session.Current(ctx)
	if err != nil {
		return Preview{}, err
	}

	preview, _, err := s.compute(ctx, current.ActingFor, entry)
	if err != nil {
		return preview, err
	}

	err = s.sessions.SetPending(current.Token, session.Pending{
		Owner:        preview.Owner,
		WeekId:       preview.WeekId,
		Income:       preview.Income,
		Expenses:     preview.Expenses,
		Withdrawn:    preview.Withdrawn,
		NewBalance:   preview.NewBalance,
		NegativeWeek: preview.NegativeWeek,
		PreviewedAt:  s.clock.Now(),
	})
	if err != nil {
		log.Warnf("failed to keep pending week in session: %v", err)
	}
	return preview, nil
}

func (s *ServiceImpl) Confirm(ctx context.Context, entry Entry) (WeeklyRecord, error) {
	current, err := session.Current(ctx)
	if err != nil {
		return WeeklyRecord{}, err
	}

	preview, records, err := s.compute(ctx, current.ActingFor, entry)
	if err != nil {
		return WeeklyRecord{}, err
	}

	if s.settings.UniqueWeek && containsWeek(records, preview.WeekId) {
		return WeeklyRecord{}, fmt.Errorf("%w: %s", ErrWeekAlreadyConfirmed, preview.WeekId)
	}

	record := preview.Record(s.clock.Now())
	if err := s.repo.AppendRecord(ctx, record); err != nil {
		return WeeklyRecord{}, err
	}
	log.Infof("confirmed %s for %s, balance %s", record.WeekId, record.Owner, record.RunningBalance.StringFixed(2))

	if err := s.sessions.ClearPending(current.Token); err != nil {
		log.Warnf("failed to clear pending week: %v", err)
	}

	// The record is already stored, so subscriber failures are logged and not returned.
	err = s.eventBus.Publish(event_bus.NewEvent(
		ctx,
		event_bus.WeekConfirmedEvent,
		event_bus.WeekConfirmed{
			Owner:          record.Owner,
			WeekId:         record.WeekId,
			Income:         record.Income,
			Expenses:       record.Expenses,
			Withdrawn:      record.Withdrawn,
			RunningBalance: record.RunningBalance,
			NegativeWeek:   preview.NegativeWeek,
			CreatedAt:      record.CreatedAt,
		},
	))
	if err != nil {
		log.Errorf("failed to publish week confirmed event: %v", err)
	}
	return record, nil
}

func (s *ServiceImpl) History(ctx context.Context) ([]WeeklyRecord, error) {
	current, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.QueryRecords(ctx, current.ActingFor)
	if err != nil {
		return nil, err
	}
	return SortRecords(records), nil
}

func (s *ServiceImpl) Latest(ctx context.Context) (WeeklyRecord, error) {
	current, err := session.Current(ctx)
	if err != nil {
		return WeeklyRecord{}, err
	}
	records, err := s.repo.QueryRecords(ctx, current.ActingFor)
	if err != nil {
		return WeeklyRecord{}, err
	}
	latest, ok := MostRecent(records)
	if !ok {
		return WeeklyRecord{}, ErrNoRecords
	}
	return latest, nil
}

// compute reads the owner's history and applies the entry on top of the most recent
// balance. The returned preview is filled even when the balance check fails.
func (s *ServiceImpl) compute(ctx context.Context, owner string, entry Entry) (Preview, []WeeklyRecord, error) {
	weekId, err := s.weekFor(entry)
	if err != nil {
		return Preview{}, nil, err
	}
	if err := entry.validate(); err != nil {
		return Preview{}, nil, err
	}

	records, err := s.repo.QueryRecords(ctx, owner)
	if err != nil {
		return Preview{}, nil, err
	}
	prior := decimal.Zero
	if latest, ok := MostRecent(records); ok {
		if err := checkOrder(weekId, latest); err != nil {
			return Preview{}, nil, err
		}
		prior = latest.RunningBalance
	}

	fixedCosts := make([]decimal.Decimal, 0, len(s.settings.Amounts.FixedCosts))
	for _, cost := range s.settings.Amounts.FixedCosts {
		fixedCosts = append(fixedCosts, cost.Amount)
	}

	result, err := balance.Compute(balance.Input{
		PriorBalance: prior,
		Income:       balance.Income(s.settings.Amounts.Base, entry.Chores.Round(2)),
		Expenses:     balance.Expenses(fixedCosts, entry.Spending.Round(2), entry.Savings.Round(2)),
		Withdrawn:    entry.Withdrawn.Round(2),
	}, s.settings.Policy)

	preview := Preview{Owner: owner, WeekId: weekId.Label(), Result: result}
	return preview, records, err
}

func (s *ServiceImpl) weekFor(entry Entry) (week.WeekId, error) {
	if entry.WeekId == "" {
		return week.FromDate(s.clock.Now()), nil
	}
	weekId, ok := week.ParseLabel(entry.WeekId)
	if !ok {
		return week.WeekId{}, &balance.ValidationError{Field: "weekId", Reason: `expected "Week {n} - {year}"`}
	}
	return weekId, nil
}

func (e Entry) validate() error {
	amounts := []struct {
		field  string
		amount decimal.Decimal
	}{
		{"chores", e.Chores},
		{"spending", e.Spending},
		{"savings", e.Savings},
		{"withdrawn", e.Withdrawn},
	}
	for _, a := range amounts {
		if err := balance.InRange(a.field, a.amount); err != nil {
			return err
		}
	}
	return nil
}

// checkOrder keeps the ledger chronological: a week earlier than the latest confirmed one
// would be seeded from a later balance. The same week is left to the uniqueness setting.
func checkOrder(weekId week.WeekId, latest WeeklyRecord) error {
	latestId, ok := week.ParseLabel(latest.WeekId)
	if !ok {
		return nil
	}
	if weekId.Before(latestId) {
		return fmt.Errorf("%w: %s is before %s", ErrWeekOutOfOrder, weekId.Label(), latestId.Label())
	}
	return nil
}

func containsWeek(records []WeeklyRecord, label string) bool {
	for _, r := range records {
		if weekId, ok := week.ParseLabel(r.WeekId); ok && weekId.Label() == label {
			return true
		}
	}
	return false
}
