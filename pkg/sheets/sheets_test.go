package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/internal/event_bus"
	"github.com/zakgeld/moni/pkg/allowance"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu    sync.Mutex
	rows  [][]any
	fail  bool
	paths []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	if f.fail {
		http.Error(w, `{"error": {"code": 503, "message": "backend error"}}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body gsheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.rows = append(f.rows, body.Values...)
		_ = json.NewEncoder(w).Encode(gsheets.AppendValuesResponse{})
	case r.Method == http.MethodPut:
		var body gsheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.rows = append(body.Values, f.rows...)
		_ = json.NewEncoder(w).Encode(gsheets.UpdateValuesResponse{})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "A1:G1"):
		values := [][]any{}
		if len(f.rows) > 0 {
			values = f.rows[:1]
		}
		_ = json.NewEncoder(w).Encode(gsheets.ValueRange{Values: values})
	case r.Method == http.MethodGet:
		values := [][]any{}
		if len(f.rows) > 1 {
			values = f.rows[1:]
		}
		_ = json.NewEncoder(w).Encode(gsheets.ValueRange{Values: values})
	default:
		http.NotFound(w, r)
	}
}

func setupClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	return setupNamedClient(t, "Zakgeld")
}

func setupNamedClient(t *testing.T, sheetName string) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	svc, err := gsheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, "spreadsheet", sheetName), fake
}

func record(owner, weekId, balance string) allowance.WeeklyRecord {
	return allowance.WeeklyRecord{
		Owner:          owner,
		WeekId:         weekId,
		Income:         decimal.RequireFromString("5"),
		Expenses:       decimal.RequireFromString("4"),
		Withdrawn:      decimal.Zero,
		RunningBalance: decimal.RequireFromString(balance),
		CreatedAt:      time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestClient_AppendAndQuery(t *testing.T) {
	// given
	client, fake := setupClient(t)
	ctx := context.Background()
	require.NoError(t, client.EnsureHeader(ctx))
	require.NoError(t, client.EnsureHeader(ctx))

	// when
	require.NoError(t, client.AppendRecord(ctx, record("kid", "Week 1 - 2025", "1")))
	require.NoError(t, client.AppendRecord(ctx, record("other", "Week 1 - 2025", "7")))
	require.NoError(t, client.AppendRecord(ctx, record("kid", "Week 2 - 2025", "2.5")))
	records, err := client.QueryRecords(ctx, "kid")

	// then
	require.NoError(t, err)
	assert.Len(t, fake.rows, 4, "header written once")
	require.Len(t, records, 2)
	assert.Equal(t, "Week 2 - 2025", records[1].WeekId)
	assert.Equal(t, "2.50", records[1].RunningBalance.StringFixed(2))
	assert.True(t, records[0].CreatedAt.Equal(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)))
}

func TestClient_SkipsUnparseableRows(t *testing.T) {
	client, fake := setupClient(t)
	fake.rows = [][]any{
		header,
		{"kid", "Week 1 - 2025", "5.00", "4.00", "0.00", "1.00"},
		{"kid", "Week 2 - 2025", "five", "4.00", "0.00", "2.00"},
	}

	records, err := client.QueryRecords(context.Background(), "kid")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CreatedAt.IsZero())
}

func TestClient_Unavailable(t *testing.T) {
	client, fake := setupClient(t)
	fake.fail = true

	_, err := client.QueryRecords(context.Background(), "kid")
	assert.ErrorIs(t, err, allowance.ErrStoreUnavailable)

	err = client.AppendRecord(context.Background(), record("kid", "Week 1 - 2025", "1"))
	assert.ErrorIs(t, err, allowance.ErrStoreUnavailable)
}

func TestClient_Mirror(t *testing.T) {
	client, fake := setupClient(t)
	bus := event_bus.NewEventBus()
	unsubscribe := client.Mirror(bus)

	err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.WeekConfirmedEvent, event_bus.WeekConfirmed{
		Owner:          "kid",
		WeekId:         "Week 3 - 2025",
		Income:         decimal.RequireFromString("5"),
		Expenses:       decimal.RequireFromString("4"),
		RunningBalance: decimal.RequireFromString("3"),
	}))
	require.NoError(t, err)
	require.Len(t, fake.rows, 1)
	assert.Equal(t, "Week 3 - 2025", fake.rows[0][1])

	unsubscribe()
	require.NoError(t, bus.Publish(event_bus.NewEvent(context.Background(), event_bus.WeekConfirmedEvent, event_bus.WeekConfirmed{Owner: "kid"})))
	assert.Len(t, fake.rows, 1)
}

func TestNewClient_RequiresConfiguration(t *testing.T) {
	_, err := NewClient(context.Background(), configWith("", ""))
	assert.Error(t, err)

	_, err = NewClient(context.Background(), configWith("id", ""))
	assert.ErrorContains(t, err, "credentials")
}

func configWith(spreadsheetId, credentialsFile string) config.Sheets {
	return config.Sheets{SpreadsheetId: spreadsheetId, CredentialsFile: credentialsFile, SheetName: "Zakgeld"}
}

func TestSheetRange(t *testing.T) {
	assert.Equal(t, "'Zakgeld'!A2:G", sheetRange("Zakgeld", "A2:G"))
	assert.Equal(t, "'Zakgeld 2025'!A:G", sheetRange("Zakgeld 2025", "A:G"))
	assert.Equal(t, "'Max''s week'!A1:G1", sheetRange("Max's week", "A1:G1"))
}

func TestClient_SheetNameWithSpaces(t *testing.T) {
	client, fake := setupNamedClient(t, "Zakgeld 2025")
	ctx := context.Background()

	require.NoError(t, client.EnsureHeader(ctx))
	require.NoError(t, client.AppendRecord(ctx, record("kid", "Week 1 - 2025", "1")))
	records, err := client.QueryRecords(ctx, "kid")

	require.NoError(t, err)
	require.Len(t, records, 1)
	for _, path := range fake.paths {
		assert.Contains(t, path, "/values/'Zakgeld 2025'!")
	}
}
