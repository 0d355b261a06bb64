package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
pagination:
  max_pages: 5
catalog:
  vendors:
    - id: "1"
      name: "ANA"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Pagination.MaxPages)
	assert.Equal(t, 100, cfg.Pagination.PageSize)
	assert.Equal(t, 20, cfg.Pagination.ProductMaxPages)
	assert.Equal(t, 50, cfg.Pagination.DailyPageSize)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, 12, cfg.Catalog.CancelledStatus)
	require.NotNil(t, cfg.Daily.FetchDetails)
	assert.True(t, *cfg.Daily.FetchDetails)

	c := cfg.BuildCatalog()
	name, ok := c.VendorName("1")
	assert.True(t, ok)
	assert.Equal(t, "ANA", name)
	assert.Equal(t, "ATENDIDO", c.StatusLabel(intPtr(9)))
}

func intPtr(n int) *int { return &n }

func TestLoadConfigKeepsExplicitFalse(t *testing.T) {
	path := writeFile(t, "config.yaml", "daily:\n  fetch_details: false\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, *cfg.Daily.FetchDetails)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Pagination.PageSize = 500
	cfg.Timezone = "Mars/Olympus"
	cfg.Catalog.Vendors = append(cfg.Catalog.Vendors, cfg.Catalog.Vendors[0])
	cfg.Tracing.SampleRatio = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "pagination.page_size")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "tracing.sample_ratio")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.NotNil(t, Default().Location())
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "bling:\n  base_url: \"not a url\"\n")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sheet_config.json")
	s := NewSettings(path)

	assert.Empty(t, s.SheetURL())
	assert.Error(t, s.SetSheetURL("   "))

	require.NoError(t, s.SetSheetURL(" https://docs.google.com/spreadsheets/d/abc/edit "))
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc/edit", s.SheetURL())

	// a fresh handle reads the persisted file
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc/edit", NewSettings(path).SheetURL())
}

func TestSettingsCorruptFile(t *testing.T) {
	path := writeFile(t, "sheet_config.json", "{not json")
	s := NewSettings(path)

	assert.Empty(t, s.SheetURL())
	require.NoError(t, s.SetSheetURL("https://docs.google.com/spreadsheets/d/x"))
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/x", s.SheetURL())
}
