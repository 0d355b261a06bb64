package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "edit link with gid",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit#gid=987",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=987",
		},
		{
			name: "gid followed by more params",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit?gid=55&usp=sharing",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=55",
		},
		{
			name: "no gid",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
		},
		{
			name: "bare id",
			in:   "  https://docs.google.com/spreadsheets/d/abc123  ",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExportURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportURLInvalid(t *testing.T) {
	for _, in := range []string{"", "https://example.com/sheet", "https://docs.google.com/spreadsheets/d/"} {
		_, err := ExportURL(in)
		assert.ErrorIs(t, err, ErrInvalidURL, in)
	}
}

// row is a 20-column record with the number in D and margin in T
func row(number, margin string) []string {
	cols := make([]string, 20)
	cols[3] = number
	cols[19] = margin
	return cols
}

// sheet encodes records the way the export does, quoting fields that
// carry commas
func sheet(t *testing.T, records ...[]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(records))
	return buf.String()
}

func TestParse(t *testing.T) {
	body := sheet(t,
		row("NUMERO", "MARGEM"),
		row(" 1001 ", " 12,5% "),
		row("1002", "8%"),
		row("", "99%"),
		[]string{"a", "b", "c", "1003"},
	)
	require.Contains(t, body, `" 12,5% "`)

	got, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1001": "12,5%", "1002": "8%"}, got)
}

func TestParseQuotedLiteral(t *testing.T) {
	body := ",,,NUMERO" + strings.Repeat(",", 16) + "MARGEM\n" +
		`,,,2001` + strings.Repeat(",", 16) + `"7,25%"` + "\n"

	got, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2001": "7,25%"}, got)
}

func TestMarginsDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spreadsheets/d/xyz/export", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Write([]byte(sheet(t, row("n", "m"), row("77", "30,5%"))))
	}))
	defer srv.Close()

	// the export link always points at Google; route it to the test server
	s := New(0, rewriteTo(srv))

	got, err := s.Margins(context.Background(), "https://docs.google.com/spreadsheets/d/xyz/edit")
	require.NoError(t, err)
	assert.Equal(t, "30,5%", got["77"])
}

func TestMarginsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := New(0, rewriteTo(srv))

	_, err := s.Margins(context.Background(), "https://docs.google.com/spreadsheets/d/xyz/edit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download margin sheet")
}

type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func rewriteTo(srv *httptest.Server) http.RoundTripper {
	target, _ := url.Parse(srv.URL)
	return rewriteTransport{target: target}
}
