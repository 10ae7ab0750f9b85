// Package sheets is a thin adapter over the Google Sheets API: ranged
// reads, row updates, batch updates, and appends. No business logic
// lives here.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// DefaultTimeout bounds every Sheets API call so a stuck call cannot
// hold the advisory lock indefinitely.
const DefaultTimeout = 30 * time.Second

// RangeUpdate is one range's worth of a batch write.
type RangeUpdate struct {
	Range  string
	Values [][]string
}

// Client wraps a Sheets service for one spreadsheet.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewClient builds a client for the given spreadsheet, authenticating
// with a service-account credentials file.
func NewClient(ctx context.Context, spreadsheetID, credentialsFile string, logger *slog.Logger) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: creating service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		timeout:       DefaultTimeout,
		logger:        logger,
	}, nil
}

// newCallBackoff bounds retries inside a single API call. Transient
// failures beyond this surface as errors and are retried on the next
// scheduled tick, never within the same pass.
func newCallBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 20 * time.Second
	return backoff.WithContext(bo, ctx)
}

// ReadHeader reads the header row of a range.
func (c *Client) ReadHeader(ctx context.Context, readRange string) ([]string, error) {
	rows, err := c.ReadRows(ctx, readRange)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ReadRows reads a rectangular range as strings. Values are requested
// unformatted so date cells arrive as numeric serials; the codec owns
// serial decoding.
func (c *Client) ReadRows(ctx context.Context, readRange string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp *gsheets.ValueRange
	op := func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, readRange).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).Do()
		return err
	}
	if err := backoff.Retry(op, newCallBackoff(ctx)); err != nil {
		return nil, fmt.Errorf("sheets: reading %s: %w", readRange, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		rows[i] = stringifyRow(raw)
	}
	return rows, nil
}

// UpdateRows overwrites one range with values.
func (c *Client) UpdateRows(ctx context.Context, writeRange string, values [][]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vr := &gsheets.ValueRange{Values: valuesToInterface(values)}
	op := func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
			ValueInputOption("RAW").
			Context(ctx).Do()
		return err
	}
	if err := backoff.Retry(op, newCallBackoff(ctx)); err != nil {
		return fmt.Errorf("sheets: updating %s: %w", writeRange, err)
	}
	return nil
}

// BatchUpdate writes several ranges in one round trip. The Sheets API is
// rate-limited per call, not per cell, so pushes are batched wherever
// possible.
func (c *Client) BatchUpdate(ctx context.Context, updates []RangeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data := make([]*gsheets.ValueRange, len(updates))
	for i, u := range updates {
		data[i] = &gsheets.ValueRange{Range: u.Range, Values: valuesToInterface(u.Values)}
	}
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}

	op := func() error {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	}
	if err := backoff.Retry(op, newCallBackoff(ctx)); err != nil {
		return fmt.Errorf("sheets: batch updating %d ranges: %w", len(updates), err)
	}
	return nil
}

// AppendRows appends values after the last data row of a range.
func (c *Client) AppendRows(ctx context.Context, appendRange string, values [][]string) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vr := &gsheets.ValueRange{Values: valuesToInterface(values)}
	op := func() error {
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, appendRange, vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	}
	if err := backoff.Retry(op, newCallBackoff(ctx)); err != nil {
		return fmt.Errorf("sheets: appending %d rows: %w", len(values), err)
	}
	return nil
}

// stringifyRow converts one API row to strings. Numbers are rendered
// without exponent notation so date serials survive as digit strings.
func stringifyRow(raw []interface{}) []string {
	row := make([]string, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case string:
			row[i] = t
		case float64:
			row[i] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			row[i] = strconv.FormatBool(t)
		case nil:
			row[i] = ""
		default:
			row[i] = fmt.Sprint(t)
		}
	}
	return row
}

func valuesToInterface(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}
