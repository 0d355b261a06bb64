package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/bling"
	"sales-dashboard/internal/bling/blingobs"
	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/dashboard"
	"sales-dashboard/internal/dashboard/dashboardobs"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/sheets"
	"sales-dashboard/internal/store"
	"sales-dashboard/internal/trace"
)

const version = "1.0.0"

// initializeSystem loads the environment and sets up logging and metrics
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics.Register()
	return nil
}

// initializeTracing starts the tracer. The environment wins over the
// tracing section of the config.
func initializeTracing(ctx context.Context, cfg *store.Config) {
	var opts []trace.Option
	if os.Getenv("LOG_TRACING_ENABLED") == "" {
		opts = append(opts, trace.WithEnabled(cfg.Tracing.Enabled))
	}
	if os.Getenv("LOG_TRACE_SAMPLE_RATIO") == "" && cfg.Tracing.SampleRatio > 0 {
		opts = append(opts, trace.WithSampleRatio(cfg.Tracing.SampleRatio))
	}
	if err := trace.Init(version, opts...); err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize tracer", err)
	}
}

// upstreamTransport is the connection pool shared by the Bling and sheet
// clients
func upstreamTransport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 4
	t.IdleConnTimeout = 90 * time.Second
	return t
}

// loadConfig reads DASHBOARD_CONFIG, falling back to config.yaml and then
// to the built-in defaults when neither file exists
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("DASHBOARD_CONFIG")
	if path == "" {
		path = "config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warn(ctx, "No config.yaml found, using defaults")
			return store.Default(), nil
		}
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	if addr := os.Getenv("DASHBOARD_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	return cfg, nil
}

// initializeAuth builds the OAuth token holder from the client credentials
// and any token pair supplied through the environment
func initializeAuth(ctx context.Context, cfg *store.Config, rt http.RoundTripper) *bling.OAuth {
	initial := bling.Token{
		AccessToken:  os.Getenv("BLING_ACCESS_TOKEN"),
		RefreshToken: os.Getenv("BLING_REFRESH_TOKEN"),
	}
	if v := os.Getenv("BLING_TOKEN_EXPIRES_IN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			initial.ExpiresIn = n
		}
	}
	redirect := cfg.Bling.RedirectURI
	if v := os.Getenv("BLING_REDIRECT_URI"); v != "" {
		redirect = v
	}

	clientID := os.Getenv("BLING_CLIENT_ID")
	if clientID == "" {
		logger.Warn(ctx, "BLING_CLIENT_ID not set - token refresh and login will fail")
	}
	if initial.AccessToken == "" && initial.RefreshToken == "" {
		logger.Info(ctx, "No Bling token in environment - authorize through /auth/login")
	}

	return bling.NewOAuth(bling.OAuthConfig{
		AuthURL:      cfg.Bling.AuthURL,
		TokenURL:     cfg.Bling.TokenURL,
		ClientID:     clientID,
		ClientSecret: os.Getenv("BLING_CLIENT_SECRET"),
		RedirectURI:  redirect,
		Timeout:      time.Duration(cfg.Bling.TimeoutSeconds) * time.Second,
		Transport:    rt,
	}, initial)
}

// initializeSource builds the Bling order source with observability
func initializeSource(cfg *store.Config, tokens interfaces.TokenSource, rt http.RoundTripper) interfaces.OrderSource {
	bc := bling.ConfigFrom(cfg)
	bc.Transport = rt
	return blingobs.Wrap(bling.New(bc, tokens))
}

// initializeDashboard wires the caches, margin source and settings into the
// dashboard service and wraps it with observability
func initializeDashboard(cfg *store.Config, source interfaces.OrderSource, settings *store.Settings, rt http.RoundTripper) interfaces.Dashboard {
	svc := dashboard.New(dashboard.ConfigFrom(cfg), dashboard.Deps{
		Source:    source,
		Catalog:   cfg.BuildCatalog(),
		Location:  cfg.Location(),
		Margins:   sheets.New(time.Duration(cfg.Sheets.TimeoutSeconds)*time.Second, rt),
		Settings:  settings,
		Panels:    cache.NewPanels(),
		Snapshots: cache.NewSnapshots(),
	})
	return dashboardobs.Wrap(svc)
}

// initializeHTTP builds the HTTP server for the API
func initializeHTTP(cfg *store.Config, d interfaces.Dashboard, settings *store.Settings, auth server.Authorizer) *http.Server {
	api := server.New(d, settings, auth, cfg.Location())
	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
}
