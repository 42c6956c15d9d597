package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultRowCacheTTL = 5 * time.Minute
	valueInputOption   = "RAW"
)

// Options select the spreadsheet and credentials. When neither credential
// field is set GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// Column A is cached as id -> row so appends and removes skip a read.
	mu                 sync.Mutex
	rowIndex           map[string]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.TransactionMirror = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	creds, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheet)
	return &Client{
		svc:                svc,
		spreadsheetID:      opts.SpreadsheetID,
		sheet:              sheet,
		cacheValidDuration: defaultRowCacheTTL,
	}, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Append writes tx into the first row after the used range of column A.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", ports.ErrNoService
	}
	if tx.ID == "" {
		return "", errors.New("append row: missing transaction id")
	}

	index, count, err := c.rows(ctx)
	if err != nil {
		return "", err
	}
	if row, ok := index[tx.ID]; ok {
		return rowRange(c.sheet, row), nil
	}

	if count == 0 {
		// empty tab: the header takes row 1
		if err := c.writeRow(ctx, 1, ports.Header); err != nil {
			return "", err
		}
		count = 1
	}

	next := count + 1
	rng := rowRange(c.sheet, next)
	if err := c.writeRow(ctx, next, ports.Row(tx)); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.rowIndex != nil {
		c.rowIndex[tx.ID] = next
		c.cachedRowCount = next
	}
	c.mu.Unlock()
	return rng, nil
}

// Remove clears the row whose column A holds id. The row itself stays so
// later row numbers do not shift.
func (c *Client) Remove(ctx context.Context, id string) error {
	if c.svc == nil {
		return ports.ErrNoService
	}
	index, _, err := c.rows(ctx)
	if err != nil {
		return err
	}
	row, ok := index[id]
	if !ok {
		slog.InfoContext(ctx, "Row already absent from sheet", "transaction_id", id, "sheet", c.sheet)
		return nil
	}

	rng := rowRange(c.sheet, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	c.mu.Lock()
	delete(c.rowIndex, id)
	c.mu.Unlock()
	return nil
}

// writeRow stores cols verbatim. RAW input keeps titles such as "=1+1" or
// "007" from being reinterpreted by the spreadsheet.
func (c *Client) writeRow(ctx context.Context, row int, cols []string) error {
	rng := rowRange(c.sheet, row)
	vr := &gsheet.ValueRange{Values: [][]any{toValues(cols)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// rows returns the id index and used row count, reading column A when the
// cache has expired.
func (c *Client) rows(ctx context.Context) (map[string]int, int, error) {
	c.mu.Lock()
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		index, count := copyIndex(c.rowIndex), c.cachedRowCount
		c.mu.Unlock()
		return index, count, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	index := indexColumn(resp.Values)
	count := len(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.cachedRowCount = count
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return copyIndex(index), count, nil
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowIndex = nil
	c.cachedRowCount = 0
	c.cacheExpiresAt = time.Time{}
}

// indexColumn maps trimmed column-A values to 1-based row numbers. The first
// occurrence of an id wins; empty cells are skipped.
func indexColumn(values [][]interface{}) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" {
			continue
		}
		if _, seen := index[v]; !seen {
			index[v] = i + 1
		}
	}
	return index
}

func copyIndex(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
}

func toValues(cols []string) []any {
	out := make([]any, len(cols))
	for i, v := range cols {
		out[i] = v
	}
	return out
}
