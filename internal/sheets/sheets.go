// Package sheets reads per-order profit margins from a Google Sheets
// spreadsheet through its CSV export.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sales-dashboard/internal/api"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
)

// ErrInvalidURL is returned for links that do not name a spreadsheet
var ErrInvalidURL = errors.New("sheets: invalid spreadsheet url")

const (
	exportBase = "https://docs.google.com/spreadsheets/d/"

	// order number in column D, margin in column T
	numberColumn = 3
	marginColumn = 19

	opMargins = "sheet_margins"
)

// ExportURL turns a spreadsheet link into the CSV export link of the same
// tab. The gid defaults to the first tab.
func ExportURL(sheetURL string) (string, error) {
	sheetURL = strings.TrimSpace(sheetURL)
	_, rest, ok := strings.Cut(sheetURL, "/d/")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, sheetURL)
	}
	id, _, _ := strings.Cut(rest, "/")
	id, _, _ = strings.Cut(id, "?")
	id, _, _ = strings.Cut(id, "#")
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, sheetURL)
	}

	gid := "0"
	if _, after, ok := strings.Cut(sheetURL, "gid="); ok {
		after, _, _ = strings.Cut(after, "&")
		after, _, _ = strings.Cut(after, "#")
		if after != "" {
			gid = after
		}
	}
	return exportBase + id + "/export?format=csv&gid=" + gid, nil
}

// Source downloads and parses the margin sheet on every call
type Source struct {
	http *api.Client
}

var _ interfaces.MarginSource = (*Source)(nil)

// New builds the margin source. rt may be nil.
func New(timeout time.Duration, rt http.RoundTripper) *Source {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Source{http: api.NewClient(api.WithTimeout(timeout), api.WithTransport(rt), api.WithLogging(true))}
}

// Margins maps order number to margin text. Rows too short to reach the
// margin column and rows without an order number are skipped.
func (s *Source) Margins(ctx context.Context, sheetURL string) (map[string]string, error) {
	exportURL, err := ExportURL(sheetURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.http.GET(ctx, exportURL)
	if err != nil {
		metrics.RecordUpstreamCall(opMargins, metrics.OutcomeError, time.Since(start).Seconds())
		return nil, fmt.Errorf("download margin sheet: %w", err)
	}

	margins, err := Parse(bytes.NewReader(resp.Body))
	if err != nil {
		metrics.RecordUpstreamCall(opMargins, metrics.OutcomeError, time.Since(start).Seconds())
		return nil, fmt.Errorf("parse margin sheet: %w", err)
	}
	metrics.RecordUpstreamCall(opMargins, metrics.OutcomeOK, time.Since(start).Seconds())

	logger.Debug(ctx, "Margin sheet loaded", "rows", len(margins))
	return margins, nil
}

// Parse reads the CSV export. The first row is a header.
func Parse(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	margins := make(map[string]string)
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if row == 0 || len(rec) <= marginColumn {
			continue
		}
		number := strings.TrimSpace(rec[numberColumn])
		if number == "" {
			continue
		}
		margins[number] = strings.TrimSpace(rec[marginColumn])
	}
	return margins, nil
}
