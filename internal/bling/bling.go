// Package bling is the order source backed by the Bling v3 sales-order API.
package bling

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"sales-dashboard/internal/api"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/store"
	"sales-dashboard/internal/types"
)

// ErrUnauthorized is returned when no valid token can be obtained
var ErrUnauthorized = errors.New("bling: unauthorized")

const (
	ordersPath = "/pedidos/vendas"

	opListOrders = "list_orders"
	opGetOrder   = "get_order"
)

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Retry         api.RetryConfig
	// Transport is shared with the other upstream clients; nil uses the
	// default
	Transport http.RoundTripper
}

// ConfigFrom maps the bling section of the process config
func ConfigFrom(cfg *store.Config) Config {
	return Config{
		BaseURL:       cfg.Bling.BaseURL,
		Timeout:       time.Duration(cfg.Bling.TimeoutSeconds) * time.Second,
		RatePerSecond: cfg.Bling.RatePerSecond,
		Burst:         cfg.Bling.Burst,
		Retry: api.RetryConfig{
			MaxAttempts: cfg.Bling.Retry.MaxAttempts,
			InitialWait: time.Duration(cfg.Bling.Retry.InitialWaitMs) * time.Millisecond,
			MaxWait:     time.Duration(cfg.Bling.Retry.MaxWaitMs) * time.Millisecond,
		},
	}
}

// Client lists and fetches sales orders. Calls are rate limited and
// retried; a 401 triggers one token refresh.
type Client struct {
	http    *api.Client
	tokens  interfaces.TokenSource
	limiter *rate.Limiter
	retry   api.RetryConfig
}

var _ interfaces.OrderSource = (*Client)(nil)

func New(cfg Config, tokens interfaces.TokenSource) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		http: api.NewClient(
			api.WithBaseURL(cfg.BaseURL),
			api.WithTimeout(cfg.Timeout),
			api.WithTransport(cfg.Transport),
			api.WithLogging(true),
		),
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		retry:   cfg.Retry,
	}
}

type listEnvelope struct {
	Data []types.RawRecord `json:"data"`
}

type detailEnvelope struct {
	Data types.RawRecord `json:"data"`
}

// ListOrders fetches one page of orders emitted within r. A zero range is
// not sent, which lists every order.
func (c *Client) ListOrders(ctx context.Context, r types.DateRange, status string, page, pageSize int) ([]types.RawRecord, error) {
	q := url.Values{}
	q.Set("pagina", strconv.Itoa(page))
	q.Set("limite", strconv.Itoa(pageSize))
	if !r.IsZero() {
		q.Set("dataEmissao[ini]", r.FromISO())
		q.Set("dataEmissao[fim]", r.ToISO())
	}
	if status != "" {
		q.Set("situacao", status)
	}

	start := time.Now()
	resp, err := c.get(ctx, ordersPath, q)
	if err != nil {
		metrics.RecordUpstreamCall(opListOrders, metrics.OutcomeError, time.Since(start).Seconds())
		return nil, fmt.Errorf("list orders page %d: %w", page, err)
	}

	var env listEnvelope
	if err := resp.ParseJSON(&env); err != nil {
		metrics.RecordUpstreamCall(opListOrders, metrics.OutcomeError, time.Since(start).Seconds())
		return nil, fmt.Errorf("list orders page %d: %w", page, err)
	}
	metrics.RecordUpstreamCall(opListOrders, metrics.OutcomeOK, time.Since(start).Seconds())
	return env.Data, nil
}

// GetOrder fetches the full record of one order. Any failure is reported
// as absence.
func (c *Client) GetOrder(ctx context.Context, id string) (types.RawRecord, bool) {
	start := time.Now()
	resp, err := c.get(ctx, ordersPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		outcome := metrics.OutcomeError
		if api.StatusCode(err) == http.StatusNotFound {
			outcome = metrics.OutcomeNotFound
		}
		metrics.RecordUpstreamCall(opGetOrder, outcome, time.Since(start).Seconds())
		logger.Debug(ctx, "Order detail unavailable", "order_id", id, "error", err.Error())
		return nil, false
	}

	var env detailEnvelope
	if err := resp.ParseJSON(&env); err != nil || env.Data == nil {
		metrics.RecordUpstreamCall(opGetOrder, metrics.OutcomeError, time.Since(start).Seconds())
		logger.Debug(ctx, "Order detail payload unusable", "order_id", id)
		return nil, false
	}
	metrics.RecordUpstreamCall(opGetOrder, metrics.OutcomeOK, time.Since(start).Seconds())
	return env.Data, true
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*api.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, path, q, token)
	if api.StatusCode(err) != http.StatusUnauthorized {
		return resp, err
	}

	logger.Warn(ctx, "Bling rejected token, refreshing", "path", path)
	token, err = c.tokens.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	resp, err = c.do(ctx, path, q, token)
	if api.StatusCode(err) == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, path string, q url.Values, token string) (*api.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req := api.NewRequest(http.MethodGet, path).
		WithContext(ctx).
		WithQuery(q).
		WithHeader("Accept", "application/json").
		WithHeader("Authorization", "Bearer "+token)
	retry := c.retry
	return c.http.DoWithRetry(req, &retry)
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}
