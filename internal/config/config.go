package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Addr      string    `koanf:"addr"`
	Database  Database  `koanf:"db"`
	Store     Store     `koanf:"store"`
	Sheets    Sheets    `koanf:"sheets"`
	Allowance Allowance `koanf:"allowance"`
	Session   Session   `koanf:"session"`
}

type Database struct {
	// Driver is postgres or sqlite.
	Driver     string `koanf:"driver"`
	SqlitePath string `koanf:"sqlitepath"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	User       string `koanf:"user"`
	Pass       string `koanf:"pass"`
	Name       string `koanf:"name"`
	Schema     string `koanf:"schema"`
}

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"

	BackendDatabase = "database"
	BackendSheets   = "sheets"
)

// Store selects where weekly records are kept. Accounts always live in the database.
type Store struct {
	// Backend is database or sheets.
	Backend string `koanf:"backend"`
}

type Sheets struct {
	SpreadsheetId   string `koanf:"spreadsheetid"`
	SheetName       string `koanf:"sheetname"`
	CredentialsFile string `koanf:"credentialsfile"`
	CredentialsJson string `koanf:"credentialsjson"`
	// Mirror appends confirmed weeks to the spreadsheet when the backend is not sheets.
	Mirror bool `koanf:"mirror"`
}

type Allowance struct {
	// Amounts are decimal strings, e.g. "5" or "2.50".
	Base         string            `koanf:"base"`
	FixedCosts   map[string]string `koanf:"fixedcosts"`
	NegativeWeek string            `koanf:"negativeweek"`
	UniqueWeek   bool              `koanf:"uniqueweek"`
}

type Session struct {
	TTL time.Duration `koanf:"ttl"`
}

func defaults() Application {
	return Application{
		Addr: ":8181",
		Database: Database{
			Driver:     DriverPostgres,
			SqlitePath: "./data/moni.db",
			Host:       "localhost",
			Port:       5432,
			User:       "moni",
			Pass:       "",
			Name:       "moni",
			Schema:     "moni",
		},
		Store: Store{
			Backend: BackendDatabase,
		},
		Sheets: Sheets{
			SheetName: "Zakgeld",
		},
		Allowance: Allowance{
			Base:         "5",
			NegativeWeek: "block",
			UniqueWeek:   true,
		},
		Session: Session{
			TTL: 12 * time.Hour,
		},
	}
}

// defaultFixedCosts apply only when no layer sets allowance.fixedcosts. A layer that sets
// them replaces the whole map, so `fixedcosts: {}` means no fixed costs.
func defaultFixedCosts() map[string]string {
	return map[string]string{
		"rent": "3",
		"food": "1",
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "MONI_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "MONI_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if app.Allowance.FixedCosts == nil {
		app.Allowance.FixedCosts = defaultFixedCosts()
	}
	if _, err := app.Allowance.Amounts(); err != nil {
		return Application{}, err
	}

	return app, nil
}

// AllowanceAmounts holds the parsed weekly allowance settings.
type AllowanceAmounts struct {
	Base decimal.Decimal
	// FixedCosts are ordered by cost name.
	FixedCosts []FixedCost
}

type FixedCost struct {
	Name   string
	Amount decimal.Decimal
}

// Amounts parses the configured decimal strings, rounded to cents. Negative amounts are
// rejected.
func (a Allowance) Amounts() (AllowanceAmounts, error) {
	base, err := decimal.NewFromString(a.Base)
	if err != nil {
		return AllowanceAmounts{}, fmt.Errorf("invalid allowance base %q: %w", a.Base, err)
	}
	base = base.Round(2)
	if base.IsNegative() {
		return AllowanceAmounts{}, fmt.Errorf("allowance base must not be negative: %s", a.Base)
	}

	names := make([]string, 0, len(a.FixedCosts))
	for name := range a.FixedCosts {
		names = append(names, name)
	}
	sort.Strings(names)

	amounts := AllowanceAmounts{Base: base}
	for _, name := range names {
		amount, err := decimal.NewFromString(a.FixedCosts[name])
		if err != nil {
			return AllowanceAmounts{}, fmt.Errorf("invalid fixed cost %s %q: %w", name, a.FixedCosts[name], err)
		}
		if amount.IsNegative() {
			return AllowanceAmounts{}, fmt.Errorf("fixed cost %s must not be negative", name)
		}
		amounts.FixedCosts = append(amounts.FixedCosts, FixedCost{Name: name, Amount: amount.Round(2)})
	}
	return amounts, nil
}
