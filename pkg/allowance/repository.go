package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// ErrStoreUnavailable wraps every failure to read or write the record store.
var ErrStoreUnavailable = errors.New("record store unavailable")

// Repository is an append-only store of weekly records.
type Repository interface {
	// QueryRecords returns all records of the owner in stored order.
	QueryRecords(ctx context.Context, owner string) ([]WeeklyRecord, error)
	AppendRecord(ctx context.Context, record WeeklyRecord) error
}

const recordColumns = `owner, week_id, income_cents, expenses_cents, withdrawn_cents, running_balance_cents`

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) QueryRecords(ctx context.Context, owner string) ([]WeeklyRecord, error) {
	query := `SELECT ` + recordColumns + `, created_at FROM weekly_record WHERE owner = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		log.Errorf("failed to query weekly records: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	records := make([]WeeklyRecord, 0)
	for rows.Next() {
		var record WeeklyRecord
		var income, expenses, withdrawn, runningBalance int64
		var createdAt time.Time
		err := rows.Scan(&record.Owner, &record.WeekId, &income, &expenses, &withdrawn, &runningBalance, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		record.Income = fromCents(income)
		record.Expenses = fromCents(expenses)
		record.Withdrawn = fromCents(withdrawn)
		record.RunningBalance = fromCents(runningBalance)
		record.CreatedAt = createdAt
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *RepositoryImpl) AppendRecord(ctx context.Context, record WeeklyRecord) error {
	query := `INSERT INTO weekly_record (` + recordColumns + `, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	cents, err := recordCents(record)
	if err != nil {
		log.Errorf("refusing to append weekly record: %v", err)
		return err
	}
	args := append([]any{record.Owner, record.WeekId}, cents...)
	_, err = r.db.Exec(ctx, query, append(args, record.CreatedAt)...)
	if err != nil {
		log.Errorf("failed to append weekly record: %v", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
