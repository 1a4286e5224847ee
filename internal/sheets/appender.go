// Package sheets appends consultation rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/wolfman30/pharmacy-intake-bridge/internal/consultation"
	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

// ValuesAPI is the subset of the Sheets values service used by Appender.
type ValuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) (*gsheets.ValueRange, error)
	Update(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error
	Append(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error
}

// NewValuesAPI authenticates with a service account. credentials may be the
// JSON document itself or a path to it.
func NewValuesAPI(ctx context.Context, credentials string) (ValuesAPI, error) {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil, errors.New("sheets: credentials required")
	}
	var opt option.ClientOption
	if strings.HasPrefix(credentials, "{") {
		opt = option.WithCredentialsJSON([]byte(credentials))
	} else {
		opt = option.WithCredentialsFile(credentials)
	}
	svc, err := gsheets.NewService(ctx, opt, option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &serviceValues{values: svc.Spreadsheets.Values}, nil
}

type serviceValues struct {
	values *gsheets.SpreadsheetsValuesService
}

func (s *serviceValues) Get(ctx context.Context, spreadsheetID, rng string) (*gsheets.ValueRange, error) {
	return s.values.Get(spreadsheetID, rng).Context(ctx).Do()
}

func (s *serviceValues) Update(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error {
	_, err := s.values.Update(spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Append(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error {
	_, err := s.values.Append(spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// Appender writes one row per consultation record.
type Appender struct {
	values        ValuesAPI
	spreadsheetID string
	tab           string
	logger        *logging.Logger

	mu           sync.Mutex
	headersReady bool
}

// NewAppender returns an Appender for the given spreadsheet and tab.
func NewAppender(values ValuesAPI, spreadsheetID, tab string, logger *logging.Logger) *Appender {
	if values == nil {
		panic("sheets: values api required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(tab) == "" {
		tab = "Sheet1"
	}
	return &Appender{values: values, spreadsheetID: spreadsheetID, tab: tab, logger: logger}
}

// ColumnName converts a 1-based column number to its A1 letter form.
func ColumnName(n int) string {
	if n <= 0 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func (a *Appender) rangeFor(fromRow string, toRow string) string {
	last := ColumnName(len(consultation.Headers()))
	return fmt.Sprintf("%s!A%s:%s%s", quoteTab(a.tab), fromRow, last, toRow)
}

func quoteTab(tab string) string {
	if strings.ContainsAny(tab, " '!") {
		return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	}
	return tab
}

// EnsureHeaders writes the header row when row 1 does not already match it.
func (a *Appender) EnsureHeaders(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.headersReady {
		return nil
	}

	headers := consultation.Headers()
	rng := a.rangeFor("1", "1")
	current, err := a.values.Get(ctx, a.spreadsheetID, rng)
	if err != nil {
		return fmt.Errorf("sheets: read header row: %w", err)
	}
	if headerMatches(current, headers) {
		a.headersReady = true
		return nil
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := a.values.Update(ctx, a.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{row}}); err != nil {
		return fmt.Errorf("sheets: write header row: %w", err)
	}
	a.logger.Info("sheets: header row written", "tab", a.tab, "columns", len(headers))
	a.headersReady = true
	return nil
}

func headerMatches(vr *gsheets.ValueRange, headers []string) bool {
	if vr == nil || len(vr.Values) == 0 || len(vr.Values[0]) != len(headers) {
		return false
	}
	for i, cell := range vr.Values[0] {
		if fmt.Sprint(cell) != headers[i] {
			return false
		}
	}
	return true
}

// Store appends rec as a new row. Header setup is retried on each call until
// it succeeds once.
func (a *Appender) Store(ctx context.Context, rec *consultation.Record) error {
	if rec == nil {
		return errors.New("sheets: record required")
	}
	if err := a.EnsureHeaders(ctx); err != nil {
		return err
	}
	cells := rec.Row()
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	if err := a.values.Append(ctx, a.spreadsheetID, a.rangeFor("2", "2"), &gsheets.ValueRange{Values: [][]interface{}{row}}); err != nil {
		return fmt.Errorf("sheets: append row: %w", err)
	}
	a.logger.Info("sheets: consultation row appended", "call_id", rec.CallMeta.CallID)
	return nil
}
