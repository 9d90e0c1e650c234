package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"stephly/internal/core"
	"stephly/internal/log"
	ports "stephly/internal/sheets"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger

	mu      sync.Mutex
	sheetID *int64 // grid id of sheet, resolved on first delete
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets exporter authenticated as a service account. Extra
// client options are appended after the credentials; when cfg carries no
// credentials the options must provide authentication themselves.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	if creds == nil && len(opts) == 0 {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	var all []goption.ClientOption
	if creds != nil {
		all = append(all,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets exporter ready", "sheet", sheet)

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, logger: logger}, nil
}

// credentials returns inline JSON, else the file contents, else
// GOOGLE_APPLICATION_CREDENTIALS, else nil.
func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// findRow returns the 1-based row holding id, 0 when absent, plus the number
// of used rows in column A.
func (c *Client) findRow(ctx context.Context, id int64) (row, used int, err error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	want := strconv.FormatInt(id, 10)
	for i, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == want {
			return i + 1, len(resp.Values), nil
		}
	}
	return 0, len(resp.Values), nil
}

func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	if t.ID <= 0 {
		return fmt.Errorf("export transaction without id")
	}
	row, used, err := c.findRow(ctx, t.ID)
	if err != nil {
		return err
	}

	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", c.sheet, row, row)
		vr := &gsheet.ValueRange{Values: [][]any{ports.Row(t)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Updated sheet row", log.FieldTransactionID, t.ID, "row", row)
		return nil
	}

	values := [][]any{ports.Row(t)}
	if used == 0 {
		values = append([][]any{ports.Header}, values...)
	}
	rng := fmt.Sprintf("%s!A:G", c.sheet)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	c.logger.DebugContext(ctx, "Appended sheet row", log.FieldTransactionID, t.ID)
	return nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	row, _, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	gid, err := c.gridID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    gid,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	c.logger.DebugContext(ctx, "Deleted sheet row", log.FieldTransactionID, id, "row", row)
	return nil
}

// gridID resolves the numeric id of the export sheet.
func (c *Client) gridID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheet)
}
