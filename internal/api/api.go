// Package api is the small HTTP client shared by the upstream integrations.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sales-dashboard/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "sales-dashboard/1.0"
	maxErrorBody   = 512
)

// StatusError is returned for responses with a status code >= 400
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the delay requested by a 429 or 503 response, zero when
	// none was sent
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// StatusCode extracts the HTTP status of a failed request, 0 when the error
// did not come from a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Retryable reports whether a failed request is worth repeating:
// transport errors, 429 and 5xx responses.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := StatusCode(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}

func retryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// parseRetryAfter reads the delay-seconds form of Retry-After
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	useLogging bool
}

func (c *Client) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !c.useLogging {
		return
	}
	switch level {
	case slog.LevelDebug:
		logger.Debug(ctx, msg, args...)
	case slog.LevelWarn:
		logger.Warn(ctx, msg, args...)
	default:
		logger.Error(ctx, msg, args...)
	}
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL prefixes every relative request URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogging enables request/response debug logs
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// WithTransport sends requests through rt, letting clients with different
// timeouts share one connection pool. A nil rt keeps the default.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		if rt != nil {
			c.httpClient.Transport = rt
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    map[string]string{"User-Agent": userAgent},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request is one call, optionally carrying a form-urlencoded body
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Form    url.Values
	Headers map[string]string
	ctx     context.Context
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// WithForm sets a form-urlencoded body
func (r *Request) WithForm(form url.Values) *Request {
	r.Form = form
	return r
}

func (r *Request) WithQuery(q url.Values) *Request {
	r.Query = q
	return r
}

func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (c *Client) target(req *Request) string {
	target := req.URL
	if c.baseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + target
	}
	if len(req.Query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + req.Query.Encode()
}

func (r *Request) body() (io.Reader, string) {
	if r.Form == nil {
		return nil, ""
	}
	return strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded"
}

// Do executes the request once. Responses with status >= 400 are returned
// as *StatusError.
func (c *Client) Do(req *Request) (*Response, error) {
	target := c.target(req)

	body, contentType := req.body()
	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(req.ctx, slog.LevelError, "HTTP request failed", "method", req.Method, "url", target, "error", err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log(req.ctx, slog.LevelDebug, "HTTP call",
		"method", req.Method,
		"url", target,
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(respBody),
	)

	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Body:       string(respBody),
			RetryAfter: parseRetryAfter(httpResp.Header.Get("Retry-After")),
		}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}, nil
}

func (c *Client) GET(ctx context.Context, url string) (*Response, error) {
	return c.Do(NewRequest(http.MethodGet, url).WithContext(ctx))
}

// ParseJSON decodes the body keeping numbers as json.Number so large ids
// survive intact
func (r *Response) ParseJSON(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     4 * time.Second,
	}
}

// DoWithRetry executes a request, repeating retryable failures with
// exponential backoff. A Retry-After delay from the server is honoured up
// to MaxWait. Non-retryable errors are returned immediately.
func (c *Client) DoWithRetry(req *Request, config *RetryConfig) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wait := config.InitialWait
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !Retryable(err) || attempt == attempts {
			break
		}

		delay := wait
		if ra := retryAfter(err); ra > delay {
			delay = ra
		}
		if config.MaxWait > 0 && delay > config.MaxWait {
			delay = config.MaxWait
		}
		c.log(req.ctx, slog.LevelWarn, "Request failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"wait_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		select {
		case <-req.ctx.Done():
			return nil, fmt.Errorf("retry aborted: %w", req.ctx.Err())
		case <-time.After(delay):
		}
		wait *= 2
	}

	if !Retryable(lastErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
