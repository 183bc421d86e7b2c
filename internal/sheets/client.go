package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrSheetNotFound is returned when the configured tab does not exist in the spreadsheet.
var ErrSheetNotFound = errors.New("sheet tab not found")

// Client wraps the Google Sheets API for one tab of one spreadsheet
type Client struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

// ServiceAccountOption builds an authenticated client option from a service account key file.
func ServiceAccountOption(ctx context.Context, credentialsFile string) (option.ClientOption, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}

	return option.WithHTTPClient(config.Client(ctx)), nil
}

// NewClient creates a Sheets client for the given spreadsheet tab
func NewClient(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// a1 qualifies a range with the tab name, quoting it for A1 notation.
func (c *Client) a1(cells string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + cells
}

// EnsureHeader writes the header row when the first row differs from it.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A1:G1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if len(resp.Values) > 0 && headerMatches(resp.Values[0]) {
		return nil
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:G1"), &sheetsapi.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func headerMatches(values []interface{}) bool {
	if len(values) < len(Header) {
		return false
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[i])), h) {
			return false
		}
	}
	return true
}

// indexedRow is a row with its 1-based sheet row number
type indexedRow struct {
	Row
	number int
}

func (c *Client) readRows(ctx context.Context) ([]indexedRow, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:G")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	rows := make([]indexedRow, 0, len(resp.Values))
	for i, values := range resp.Values {
		if i == 0 && headerMatches(values) {
			continue
		}
		row := rowFromValues(values)
		if row.ID == "" {
			continue
		}
		rows = append(rows, indexedRow{Row: row, number: i + 1})
	}
	return rows, nil
}

// ListRows returns every keyed row below the header
func (c *Client) ListRows(ctx context.Context) ([]Row, error) {
	indexed, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(indexed))
	for i := range indexed {
		rows[i] = indexed[i].Row
	}
	return rows, nil
}

// UpsertRow overwrites the row with the same id, or appends one.
// Row numbers are re-read on every call since the realtor may edit the sheet.
func (c *Client) UpsertRow(ctx context.Context, row Row) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}

	vr := &sheetsapi.ValueRange{Values: [][]interface{}{row.values()}}

	for _, existing := range rows {
		if existing.ID != row.ID {
			continue
		}
		cells := fmt.Sprintf("A%d:G%d", existing.number, existing.number)
		_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, c.a1(cells), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update row %s: %w", row.ID, err)
		}
		return nil
	}

	_, err = c.service.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:G"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row %s: %w", row.ID, err)
	}
	return nil
}

// DeleteRow removes the row with the given id. A missing row is not an error.
func (c *Client) DeleteRow(ctx context.Context, id string) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}

	number := 0
	for _, existing := range rows {
		if existing.ID == id {
			number = existing.number
			break
		}
	}
	if number == 0 {
		return nil
	}

	sheetID, err := c.tabID(ctx)
	if err != nil {
		return err
	}

	_, err = c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(number - 1),
					EndIndex:   int64(number),
					// The first tab's id is 0, which omitempty would drop.
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete row %s: %w", id, err)
	}
	return nil
}

// tabID resolves and caches the numeric id of the configured tab.
func (c *Client) tabID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, c.sheetName)
}

// IsNotFound reports a 404 from the Sheets API.
func IsNotFound(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}
