package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/database"
	"github.com/zakgeld/moni/pkg/allowance"
	"github.com/zakgeld/moni/pkg/sheets"
	"github.com/zakgeld/moni/pkg/user"
)

// Stores are the repositories selected by configuration. Accounts always live in the
// relational database; weekly records live in the database or in a spreadsheet.
type Stores struct {
	Users   user.Repo
	Records allowance.Repository
	// Sheets is set when the records backend is sheets or the mirror is enabled.
	Sheets *sheets.Client
	Close  func()
}

func OpenStores(ctx context.Context, cfg config.Application) (*Stores, error) {
	stores := &Stores{Close: func() {}}

	var dbRecords allowance.Repository
	switch cfg.Database.Driver {
	case config.DriverSqlite:
		db, err := database.OpenSqlite(cfg.Database.SqlitePath)
		if err != nil {
			return nil, err
		}
		stores.Users = user.NewSqliteUserRepo(db)
		dbRecords = allowance.NewSqliteRepo(db)
		stores.Close = func() { db.Close() }
	case config.DriverPostgres:
		pool, err := database.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(cfg.Database); err != nil {
			pool.Close()
			return nil, err
		}
		stores.Users = user.NewUserRepo(pool)
		dbRecords = allowance.NewRepo(pool)
		stores.Close = pool.Close
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Database.Driver)
	}
	log.Infof("Using %s database for accounts", cfg.Database.Driver)

	switch cfg.Store.Backend {
	case config.BackendDatabase:
		stores.Records = dbRecords
	case config.BackendSheets:
	default:
		stores.Close()
		return nil, fmt.Errorf("unsupported record store %q", cfg.Store.Backend)
	}

	if cfg.Store.Backend == config.BackendSheets || cfg.Sheets.Mirror {
		client, err := sheets.NewClient(ctx, cfg.Sheets)
		if err != nil {
			stores.Close()
			return nil, err
		}
		if err := client.EnsureHeader(ctx); err != nil {
			stores.Close()
			return nil, err
		}
		stores.Sheets = client
		if cfg.Store.Backend == config.BackendSheets {
			stores.Records = client
		}
	}
	log.Infof("Using %s record store", cfg.Store.Backend)
	return stores, nil
}
