package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
	// the business timezone must resolve on hosts without a tz database
	_ "time/tzdata"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"sales-dashboard/internal/catalog"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server struct {
		Addr                string `yaml:"addr"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	} `yaml:"server"`
	Bling struct {
		BaseURL        string  `yaml:"base_url"`
		AuthURL        string  `yaml:"auth_url"`
		TokenURL       string  `yaml:"token_url"`
		RedirectURI    string  `yaml:"redirect_uri"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
		Retry          struct {
			MaxAttempts   int `yaml:"max_attempts"`
			InitialWaitMs int `yaml:"initial_wait_ms"`
			MaxWaitMs     int `yaml:"max_wait_ms"`
		} `yaml:"retry"`
	} `yaml:"bling"`
	Pagination struct {
		PageSize        int `yaml:"page_size"`
		MaxPages        int `yaml:"max_pages"`
		ProductMaxPages int `yaml:"product_max_pages"`
		DailyPageSize   int `yaml:"daily_page_size"`
		DailyMaxPages   int `yaml:"daily_max_pages"`
	} `yaml:"pagination"`
	Daily struct {
		SpanDays     int   `yaml:"span_days"`
		MaxDays      int   `yaml:"max_days"`
		FetchDetails *bool `yaml:"fetch_details"`
	} `yaml:"daily"`
	Timezone string `yaml:"timezone"`
	Catalog  struct {
		CancelledStatus int               `yaml:"cancelled_status"`
		Statuses        map[int]string    `yaml:"statuses"`
		Vendors         []catalog.Vendor  `yaml:"vendors"`
		PaymentMethods  map[string]string `yaml:"payment_methods"`
	} `yaml:"catalog"`
	Sheets struct {
		SettingsFile   string `yaml:"settings_file"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"sheets"`
	// Tracing applies when LOG_TRACING_ENABLED and LOG_TRACE_SAMPLE_RATIO
	// are unset
	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
}

// Default returns a config with every default applied
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5050"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 120
	}
	if c.Bling.BaseURL == "" {
		c.Bling.BaseURL = "https://api.bling.com.br/Api/v3"
	}
	if c.Bling.AuthURL == "" {
		c.Bling.AuthURL = "https://www.bling.com.br/b/Api/v3/oauth/authorize"
	}
	if c.Bling.TokenURL == "" {
		c.Bling.TokenURL = "https://www.bling.com.br/b/Api/v3/oauth/token"
	}
	if c.Bling.TimeoutSeconds == 0 {
		c.Bling.TimeoutSeconds = 60
	}
	if c.Bling.RatePerSecond == 0 {
		c.Bling.RatePerSecond = 3
	}
	if c.Bling.Burst == 0 {
		c.Bling.Burst = 1
	}
	if c.Bling.Retry.MaxAttempts == 0 {
		c.Bling.Retry.MaxAttempts = 3
	}
	if c.Bling.Retry.InitialWaitMs == 0 {
		c.Bling.Retry.InitialWaitMs = 500
	}
	if c.Bling.Retry.MaxWaitMs == 0 {
		c.Bling.Retry.MaxWaitMs = 4000
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = 100
	}
	if c.Pagination.MaxPages == 0 {
		c.Pagination.MaxPages = 12
	}
	if c.Pagination.ProductMaxPages == 0 {
		c.Pagination.ProductMaxPages = 20
	}
	if c.Pagination.DailyPageSize == 0 {
		c.Pagination.DailyPageSize = 50
	}
	if c.Pagination.DailyMaxPages == 0 {
		c.Pagination.DailyMaxPages = 4
	}
	if c.Daily.SpanDays == 0 {
		c.Daily.SpanDays = 2
	}
	if c.Daily.MaxDays == 0 {
		c.Daily.MaxDays = 3
	}
	if c.Daily.FetchDetails == nil {
		enabled := true
		c.Daily.FetchDetails = &enabled
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.Catalog.CancelledStatus == 0 {
		c.Catalog.CancelledStatus = catalog.DefaultCancelledStatus
	}
	if len(c.Catalog.Statuses) == 0 {
		c.Catalog.Statuses = catalog.DefaultStatuses()
	}
	if len(c.Catalog.Vendors) == 0 {
		c.Catalog.Vendors = catalog.DefaultVendors()
	}
	if len(c.Catalog.PaymentMethods) == 0 {
		c.Catalog.PaymentMethods = catalog.DefaultPaymentMethods()
	}
	if c.Sheets.SettingsFile == "" {
		c.Sheets.SettingsFile = "sheet_config.json"
	}
	if c.Sheets.TimeoutSeconds == 0 {
		c.Sheets.TimeoutSeconds = 20
	}
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := url.ParseRequestURI(c.Bling.BaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("bling.base_url: %w", err))
	}
	if _, err := url.ParseRequestURI(c.Bling.TokenURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("bling.token_url: %w", err))
	}
	if c.Bling.RatePerSecond < 0 {
		result = multierror.Append(result, fmt.Errorf("bling.rate_per_second must be >= 0, got %.2f", c.Bling.RatePerSecond))
	}
	if c.Pagination.PageSize < 1 || c.Pagination.PageSize > 100 {
		result = multierror.Append(result, fmt.Errorf("pagination.page_size must be between 1-100, got %d", c.Pagination.PageSize))
	}
	if c.Pagination.DailyPageSize < 1 || c.Pagination.DailyPageSize > 100 {
		result = multierror.Append(result, fmt.Errorf("pagination.daily_page_size must be between 1-100, got %d", c.Pagination.DailyPageSize))
	}
	if c.Pagination.MaxPages < 1 || c.Pagination.ProductMaxPages < 1 || c.Pagination.DailyMaxPages < 1 {
		result = multierror.Append(result, errors.New("pagination page ceilings must be positive"))
	}
	if c.Daily.MaxDays < 1 {
		result = multierror.Append(result, fmt.Errorf("daily.max_days must be positive, got %d", c.Daily.MaxDays))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		result = multierror.Append(result, fmt.Errorf("tracing.sample_ratio must be between 0-1, got %.2f", c.Tracing.SampleRatio))
	}
	if c.Daily.SpanDays < 0 {
		result = multierror.Append(result, fmt.Errorf("daily.span_days must be >= 0, got %d", c.Daily.SpanDays))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("timezone: %w", err))
	}
	seen := make(map[string]bool, len(c.Catalog.Vendors))
	for _, v := range c.Catalog.Vendors {
		if v.ID == "" || v.Name == "" {
			result = multierror.Append(result, fmt.Errorf("catalog.vendors: id and name are required, got %+v", v))
			continue
		}
		if seen[v.ID] {
			result = multierror.Append(result, fmt.Errorf("catalog.vendors: duplicate id %s", v.ID))
		}
		seen[v.ID] = true
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Location returns the business timezone, falling back to a fixed UTC-3
// zone when the tz database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// BuildCatalog converts the catalog section into lookup tables
func (c *Config) BuildCatalog() *catalog.Catalog {
	return catalog.New(c.Catalog.Statuses, c.Catalog.Vendors, c.Catalog.PaymentMethods, c.Catalog.CancelledStatus)
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
