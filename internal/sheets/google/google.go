package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "fingestor/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// lastColumn is the rightmost column written, matching ports.Header.
const lastColumn = "G"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var _ ports.TransactionMirror = (*Client)(nil)

// New creates a Sheets mirror on the given spreadsheet tab. Credentials
// come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheet), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) ready() error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return nil
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, n, lastColumn, n)
}

// idColumn reads column A, header included.
func (c *Client) idColumn(ctx context.Context) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, values [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) clear(ctx context.Context, rng string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// Upsert overwrites the row holding r.ID or appends a new one.
func (c *Client) Upsert(ctx context.Context, r ports.Row) error {
	if err := c.ready(); err != nil {
		return err
	}

	col, err := c.idColumn(ctx)
	if err != nil {
		return err
	}

	n := findRow(col, r.ID)
	if n == 0 {
		n = len(col) + 1
		if len(col) == 0 {
			if err := c.write(ctx, c.rowRange(1), [][]interface{}{headerValues()}); err != nil {
				return err
			}
			n = 2
		}
	}

	if err := c.write(ctx, c.rowRange(n), [][]interface{}{r.Values()}); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Mirrored transaction row", "id", r.ID, "row", n, "sheet", c.sheet)
	return nil
}

// Delete blanks the row holding id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.ready(); err != nil {
		return err
	}

	col, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	n := findRow(col, id)
	if n == 0 {
		slog.DebugContext(ctx, "Mirror row already absent", "id", id, "sheet", c.sheet)
		return nil
	}
	return c.clear(ctx, c.rowRange(n))
}

// ReplaceAll rewrites the whole tab: header first, then rows.
func (c *Client) ReplaceAll(ctx context.Context, rows []ports.Row) error {
	if err := c.ready(); err != nil {
		return err
	}

	if err := c.clear(ctx, fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)); err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, headerValues())
	for _, r := range rows {
		values = append(values, r.Values())
	}
	rng := fmt.Sprintf("%s!A1:%s%d", c.sheet, lastColumn, len(values))
	if err := c.write(ctx, rng, values); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Mirror sheet rewritten", "sheet", c.sheet, "rows", len(rows))
	return nil
}

// List reads every non-blank data row of the tab.
func (c *Client) List(ctx context.Context) ([]ports.Row, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("%s!A2:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values)
}
