package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"financas/internal/core"
	ports "financas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options selects the spreadsheet and the credentials used to reach it.
type Options struct {
	SpreadsheetID      string
	SummarySheet       string // base name; the month is appended
	AlertsSheet        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summaryBase   string
	alertsSheet   string
}

// Ensure interface conformance
var (
	_ ports.SummaryWriter = (*Client)(nil)
	_ ports.SummaryReader = (*Client)(nil)
	_ ports.AlertWriter   = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, id, opts), nil
}

func newClient(svc *gsheet.Service, id string, opts Options) *Client {
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = "Resumo"
	}
	alerts := strings.TrimSpace(opts.AlertsSheet)
	if alerts == "" {
		alerts = "Alertas"
	}
	return &Client{svc: svc, spreadsheetID: id, summaryBase: summary, alertsSheet: alerts}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, inlineJSON, file string) (*gsheet.Service, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		credentialsJSON = []byte(inlineJSON)
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// summarySheetName returns the tab holding month m, e.g. "Resumo 2026-01".
func (c *Client) summarySheetName(m core.Month) string {
	return fmt.Sprintf("%s %s", c.summaryBase, m)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet", "title", title)
	return nil
}

// WriteSummary replaces the month's tab with the current summary table.
func (c *Client) WriteSummary(ctx context.Context, s core.PartitionedSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := c.summarySheetName(s.Month)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}
	rng := quoteSheet(title) + "!A:F"
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}
	vr := &gsheet.ValueRange{Values: toValues(ports.SummaryRows(s))}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoteSheet(title)+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Summary exported to sheet", "sheet", title, "rows", len(vr.Values))
	return nil
}

// ReadSummary reads the category totals of a previously exported month.
func (c *Client) ReadSummary(ctx context.Context, m core.Month) ([]core.CategoryAmount, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.summarySheetName(m)) + "!A:F"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return ports.ParseSummary(toStrings(resp.Values))
}

// AppendAlerts adds one row per alert to the alerts log tab.
func (c *Client) AppendAlerts(ctx context.Context, alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, c.alertsSheet); err != nil {
		return err
	}
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, ports.AlertRow(a))
	}
	vr := &gsheet.ValueRange{Values: toValues(rows)}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteSheet(c.alertsSheet)+"!A:G", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append alerts: %w", err)
	}
	return nil
}
