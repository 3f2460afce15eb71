package allowance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// SqliteRepo keeps weekly records in a local SQLite database.
type SqliteRepo struct {
	db *sql.DB
}

func NewSqliteRepo(db *sql.DB) *SqliteRepo {
	return &SqliteRepo{db: db}
}

func (r *SqliteRepo) QueryRecords(ctx context.Context, owner string) ([]WeeklyRecord, error) {
	query := `SELECT ` + recordColumns + `, created_at_ms FROM weekly_record WHERE owner = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		log.Errorf("failed to query weekly records: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	records := make([]WeeklyRecord, 0)
	for rows.Next() {
		var record WeeklyRecord
		var income, expenses, withdrawn, runningBalance, createdAtMs int64
		err := rows.Scan(&record.Owner, &record.WeekId, &income, &expenses, &withdrawn, &runningBalance, &createdAtMs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		record.Income = fromCents(income)
		record.Expenses = fromCents(expenses)
		record.Withdrawn = fromCents(withdrawn)
		record.RunningBalance = fromCents(runningBalance)
		record.CreatedAt = time.UnixMilli(createdAtMs)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *SqliteRepo) AppendRecord(ctx context.Context, record WeeklyRecord) error {
	query := `INSERT INTO weekly_record (` + recordColumns + `, created_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`
	cents, err := recordCents(record)
	if err != nil {
		log.Errorf("refusing to append weekly record: %v", err)
		return err
	}
	args := append([]any{record.Owner, record.WeekId}, cents...)
	_, err = r.db.ExecContext(ctx, query, append(args, record.CreatedAt.UnixMilli())...)
	if err != nil {
		log.Errorf("failed to append weekly record: %v", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
