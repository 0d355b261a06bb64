package bling

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"sales-dashboard/internal/api"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
)

// Token is the OAuth token payload returned by the token endpoint
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type OAuthConfig struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration
	Transport    http.RoundTripper
}

// OAuth holds the current token pair in memory and renews it through the
// refresh_token grant.
type OAuth struct {
	cfg  OAuthConfig
	http *api.Client

	mu       sync.Mutex
	token    Token
	obtained time.Time
}

var _ interfaces.TokenSource = (*OAuth)(nil)

func NewOAuth(cfg OAuthConfig, initial Token) *OAuth {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	o := &OAuth{
		cfg:  cfg,
		http: api.NewClient(api.WithTimeout(cfg.Timeout), api.WithTransport(cfg.Transport), api.WithLogging(true)),
	}
	if initial.AccessToken != "" || initial.RefreshToken != "" {
		o.token = initial
		o.obtained = time.Now()
	}
	return o
}

// AuthURL is the consent page the user is sent to
func (o *OAuth) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", o.cfg.ClientID)
	q.Set("state", state)
	if o.cfg.RedirectURI != "" {
		q.Set("redirect_uri", o.cfg.RedirectURI)
	}
	return o.cfg.AuthURL + "?" + q.Encode()
}

// Connected reports whether an access token is held
func (o *OAuth) Connected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token.AccessToken != ""
}

// Exchange trades an authorization code for a token pair
func (o *OAuth) Exchange(ctx context.Context, code string) error {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if o.cfg.RedirectURI != "" {
		form.Set("redirect_uri", o.cfg.RedirectURI)
	}
	tok, err := o.post(ctx, form)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	o.mu.Lock()
	o.token, o.obtained = tok, time.Now()
	o.mu.Unlock()

	logger.Info(ctx, "Bling authorization completed", "expires_in", tok.ExpiresIn)
	return nil
}

// Token returns the current access token, refreshing it first when it is
// about to expire.
func (o *OAuth) Token(ctx context.Context) (string, error) {
	o.mu.Lock()
	tok, obtained := o.token, o.obtained
	o.mu.Unlock()

	if tok.AccessToken == "" {
		if tok.RefreshToken == "" {
			return "", ErrUnauthorized
		}
		return o.Refresh(ctx)
	}
	if tok.ExpiresIn > 0 && time.Since(obtained) > time.Duration(tok.ExpiresIn)*time.Second-5*time.Minute && tok.RefreshToken != "" {
		return o.Refresh(ctx)
	}
	return tok.AccessToken, nil
}

// Refresh renews the access token with the stored refresh token
func (o *OAuth) Refresh(ctx context.Context) (string, error) {
	o.mu.Lock()
	refresh := o.token.RefreshToken
	o.mu.Unlock()

	if refresh == "" {
		return "", ErrUnauthorized
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)
	tok, err := o.post(ctx, form)
	if err != nil {
		logger.ErrorWithErr(ctx, "Token refresh failed", err)
		return "", fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refresh
	}

	o.mu.Lock()
	o.token, o.obtained = tok, time.Now()
	o.mu.Unlock()

	logger.Info(ctx, "Bling token refreshed", "expires_in", tok.ExpiresIn)
	return tok.AccessToken, nil
}

func (o *OAuth) post(ctx context.Context, form url.Values) (Token, error) {
	req := api.NewRequest(http.MethodPost, o.cfg.TokenURL).
		WithContext(ctx).
		WithForm(form).
		WithHeader("Accept", "application/json").
		WithHeader("Authorization", "Basic "+basicAuth(o.cfg.ClientID, o.cfg.ClientSecret))

	resp, err := o.http.Do(req)
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := resp.ParseJSON(&tok); err != nil {
		return Token{}, err
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return Token{}, fmt.Errorf("token endpoint returned no access_token")
	}
	return tok, nil
}

// staticToken serves a fixed bearer token
type staticToken string

// StaticToken returns a TokenSource that always yields token and cannot be
// refreshed.
func StaticToken(token string) interfaces.TokenSource {
	return staticToken(token)
}

func (s staticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrUnauthorized
	}
	return string(s), nil
}

func (s staticToken) Refresh(context.Context) (string, error) {
	return "", ErrUnauthorized
}
