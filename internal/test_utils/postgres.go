package test_utils

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/database"
)

const (
	dbName     = "moni"
	dbUser     = "test_moni"
	dbPassword = "test_moni"
)

func preparePostgresContainer() (*postgres.PostgresContainer, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return nil, err
	}
	return pgContainer, nil
}

// SkipPostgres reports whether container backed tests should be skipped (go test -short).
func SkipPostgres() bool {
	if !flag.Parsed() {
		flag.Parse()
	}
	return testing.Short()
}

// TestWithDB starts a Postgres container, creates the schema, applies all migrations and
// snapshots the result so tests can restore a clean database with container.Restore.
func TestWithDB() (*postgres.PostgresContainer, func() *pgxpool.Pool) {
	ctx := context.Background()

	container, err := preparePostgresContainer()
	if err != nil {
		log.Printf("Failed to start postgres container: %v", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")

	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Driver: config.DriverPostgres,
		Host:   host,
		Port:   port.Int(),
		User:   dbUser,
		Pass:   dbPassword,
		Name:   dbName,
		Schema: "moni",
	}

	pool, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	pool.Close()

	err = database.Migrate(cfg)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	err = container.Snapshot(ctx, postgres.WithSnapshotName("postgres-test-snapshot"))
	if err != nil {
		log.Fatalf("Failed to snapshot postgres container: %v", err)
	}

	return container, func() *pgxpool.Pool {
		db, err := database.Open(cfg)
		if err != nil {
			log.Fatalf("Failed to open database connection: %v", err)
		}
		return db
	}
}
