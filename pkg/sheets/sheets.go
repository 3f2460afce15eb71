// Package sheets keeps weekly allowance records in a Google spreadsheet, one row per week.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/event_bus"
	"github.com/zakgeld/moni/pkg/allowance"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var header = []any{"Owner", "Week", "Income", "Expenses", "Withdrawn", "Balance", "Created"}

// Client is an allowance.Repository backed by a single sheet. Column layout follows header.
type Client struct {
	svc           *gsheets.Service
	spreadsheetId string
	sheetName     string
}

var _ allowance.Repository = (*Client)(nil)

// NewClient authenticates with service account credentials from the inline JSON or the
// credentials file.
func NewClient(ctx context.Context, cfg config.Sheets) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetId) == "" {
		return nil, errors.New("missing sheets spreadsheet id")
	}

	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJson))
	if len(credentialsJSON) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("missing sheets credentials (set sheets.credentialsjson or sheets.credentialsfile)")
		}
		var err error
		credentialsJSON, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		err := fmt.Errorf("unable to create Sheets client: %v", err)
		log.Error(err)
		return nil, err
	}
	return NewWithService(svc, cfg.SpreadsheetId, cfg.SheetName), nil
}

// sheetRange builds an A1 range with the sheet name quoted, so names with spaces or
// punctuation are accepted. Quotes inside the name are doubled.
func sheetRange(sheetName, cells string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!" + cells
}

func NewWithService(svc *gsheets.Service, spreadsheetId, sheetName string) *Client {
	return &Client{svc: svc, spreadsheetId: spreadsheetId, sheetName: sheetName}
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := sheetRange(c.sheetName, "A1:G1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetId, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", allowance.ErrStoreUnavailable, rng, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetId, rng, &gsheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write header: %w", allowance.ErrStoreUnavailable, err)
	}
	log.Infof("Initialized sheet %s", c.sheetName)
	return nil
}

func (c *Client) QueryRecords(ctx context.Context, owner string) ([]allowance.WeeklyRecord, error) {
	rng := sheetRange(c.sheetName, "A2:G")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetId, rng).Context(ctx).Do()
	if err != nil {
		log.Errorf("failed to read %s: %v", rng, err)
		return nil, fmt.Errorf("%w: read %s: %w", allowance.ErrStoreUnavailable, rng, err)
	}

	records := make([]allowance.WeeklyRecord, 0)
	for i, row := range resp.Values {
		if len(row) == 0 || cell(row, 0) != owner {
			continue
		}
		record, err := parseRow(row)
		if err != nil {
			// Hand-edited rows that do not parse are skipped.
			log.Warnf("skipping sheet row %d: %v", i+2, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) AppendRecord(ctx context.Context, record allowance.WeeklyRecord) error {
	rng := sheetRange(c.sheetName, "A:G")
	row := []any{
		record.Owner,
		record.WeekId,
		record.Income.StringFixed(2),
		record.Expenses.StringFixed(2),
		record.Withdrawn.StringFixed(2),
		record.RunningBalance.StringFixed(2),
		record.CreatedAt.UTC().Format(time.RFC3339),
	}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetId, rng, &gsheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		log.Errorf("failed to append row to %s: %v", c.sheetName, err)
		return fmt.Errorf("%w: append to %s: %w", allowance.ErrStoreUnavailable, c.sheetName, err)
	}
	return nil
}

// Mirror appends every confirmed week to the spreadsheet. It is used when the primary
// record store is a database.
func (c *Client) Mirror(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.WeekConfirmedEvent, func(e event_bus.EventT[event_bus.WeekConfirmed]) error {
		return c.AppendRecord(e.Context(), allowance.WeeklyRecord{
			Owner:          e.Data.Owner,
			WeekId:         e.Data.WeekId,
			Income:         e.Data.Income,
			Expenses:       e.Data.Expenses,
			Withdrawn:      e.Data.Withdrawn,
			RunningBalance: e.Data.RunningBalance,
			CreatedAt:      e.Data.CreatedAt,
		})
	})
}

func parseRow(row []any) (allowance.WeeklyRecord, error) {
	amounts := make([]decimal.Decimal, 4)
	for i := range amounts {
		value := cell(row, i+2)
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return allowance.WeeklyRecord{}, fmt.Errorf("column %s: invalid amount %q", header[i+2], value)
		}
		amounts[i] = amount
	}
	record := allowance.WeeklyRecord{
		Owner:          cell(row, 0),
		WeekId:         cell(row, 1),
		Income:         amounts[0],
		Expenses:       amounts[1],
		Withdrawn:      amounts[2],
		RunningBalance: amounts[3],
	}
	if created := cell(row, 6); created != "" {
		if createdAt, err := time.Parse(time.RFC3339, created); err == nil {
			record.CreatedAt = createdAt
		}
	}
	return record, nil
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
