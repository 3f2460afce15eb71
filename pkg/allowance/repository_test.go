package allowance

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/zakgeld/moni/internal/database"
	"github.com/zakgeld/moni/internal/test_utils"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	if test_utils.SkipPostgres() {
		os.Exit(m.Run())
	}
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupPostgresRepository(t *testing.T) (context.Context, Repository) {
	if pgContainer == nil {
		t.Skip("postgres container disabled in short mode")
	}
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewRepo(db)
}

func setupSqliteRepository(t *testing.T) (context.Context, Repository) {
	db, err := database.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return context.Background(), NewSqliteRepo(db)
}

func TestRepositories(t *testing.T) {
	repositories := map[string]func(t *testing.T) (context.Context, Repository){
		"postgres": setupPostgresRepository,
		"sqlite":   setupSqliteRepository,
	}
	for name, setup := range repositories {
		t.Run(name+" keeps stored order per owner", func(t *testing.T) {
			// given
			ctx, repo := setup(t)
			createdAt := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
			first := WeeklyRecord{Owner: "kid", WeekId: "Week 10 - 2025", Income: amount("6.5"), Expenses: amount("4"),
				Withdrawn: amount("0.25"), RunningBalance: amount("2.25"), CreatedAt: createdAt}
			second := WeeklyRecord{Owner: "kid", WeekId: "Week 9 - 2025", Income: amount("5"), Expenses: amount("4"),
				Withdrawn: amount("0"), RunningBalance: amount("3.25"), CreatedAt: createdAt.Add(time.Minute)}

			// when
			require.NoError(t, repo.AppendRecord(ctx, first))
			require.NoError(t, repo.AppendRecord(ctx, WeeklyRecord{Owner: "other", WeekId: "Week 10 - 2025", CreatedAt: createdAt}))
			require.NoError(t, repo.AppendRecord(ctx, second))
			records, err := repo.QueryRecords(ctx, "kid")

			// then
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "Week 10 - 2025", records[0].WeekId)
			assert.Equal(t, "Week 9 - 2025", records[1].WeekId)
			assert.True(t, records[0].Income.Equal(first.Income))
			assert.True(t, records[0].Withdrawn.Equal(first.Withdrawn))
			assert.True(t, records[1].RunningBalance.Equal(second.RunningBalance))
			assert.True(t, records[0].CreatedAt.Equal(createdAt))
		})

		t.Run(name+" refuses amounts that do not fit in cents", func(t *testing.T) {
			ctx, repo := setup(t)
			huge := amount("100000000000000000")

			err := repo.AppendRecord(ctx, WeeklyRecord{Owner: "kid", WeekId: "Week 10 - 2025", Income: huge, RunningBalance: huge})

			assert.ErrorIs(t, err, ErrAmountOutOfRange)
			assert.NotErrorIs(t, err, ErrStoreUnavailable)
			records, err := repo.QueryRecords(ctx, "kid")
			require.NoError(t, err)
			assert.Empty(t, records)
		})

		t.Run(name+" returns empty history for unknown owner", func(t *testing.T) {
			ctx, repo := setup(t)

			records, err := repo.QueryRecords(ctx, "nobody")

			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestSqliteRepo_Unavailable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	repo := NewSqliteRepo(db)

	_, err = repo.QueryRecords(context.Background(), "kid")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = repo.AppendRecord(context.Background(), WeeklyRecord{Owner: "kid"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
