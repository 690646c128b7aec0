// internal/oauth/client.go
package oauth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"learnalchemy/pkg/config"
	"learnalchemy/pkg/metrics"
)

const defaultTimeout = 15 * time.Second

// TokenSet is the provider token endpoint response. ExpiresIn is the
// access token lifetime in seconds from the moment of issue.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Client exchanges and refreshes token pairs against the tenant-specific
// provider token endpoint. It performs no retries; both grants are safe
// for the caller to resubmit.
type Client struct {
	httpClient *http.Client
	log        *zap.SugaredLogger

	clientID     string
	clientSecret string
	domain       string // provider domain interpolated per subdomain
	userAgent    string
	tokenURL     func(subdomain string) string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTokenURL overrides how the tenant token endpoint is derived
// (tests point this at a local server).
func WithTokenURL(f func(subdomain string) string) Option {
	return func(c *Client) { c.tokenURL = f }
}

// NewClient builds a token exchange client from the app-level OAuth
// credentials in cfg.
func NewClient(cfg config.Config, log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		log:          log,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		domain:       cfg.ProviderDomain,
		userAgent:    cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenURL returns the tenant-specific token endpoint. The URL is derived
// from the subdomain on every call, never from a static base.
func (c *Client) TokenURL(subdomain string) string {
	if c.tokenURL != nil {
		return c.tokenURL(subdomain)
	}
	return fmt.Sprintf("https://%s.%s/oauth2/token", subdomain, c.domain)
}

// Exchange trades an authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code, subdomain string) (TokenSet, error) {
	body := map[string]string{"grant_type": "authorization_code", "code": code}
	ts, status, respBody, err := c.doTokenRequest(ctx, subdomain, body)
	if err == nil && status != 0 {
		err = &ExchangeError{Status: status, Body: respBody}
	}
	metrics.Observe(metrics.TokenExchanges, err)
	if err != nil {
		c.log.Errorw("token exchange failed", "subdomain", subdomain, "err", err)
		return TokenSet{}, err
	}
	c.log.Infow("token exchange ok", "subdomain", subdomain)
	return ts, nil
}

// Refresh trades a refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context, refreshToken, subdomain string) (TokenSet, error) {
	body := map[string]string{"grant_type": "refresh_token", "refresh_token": refreshToken}
	ts, status, respBody, err := c.doTokenRequest(ctx, subdomain, body)
	if err == nil && status != 0 {
		err = &RefreshError{Status: status, Body: respBody}
	}
	metrics.Observe(metrics.TokenRefreshes, err)
	if err != nil {
		c.log.Errorw("token refresh failed", "subdomain", subdomain, "err", err)
		return TokenSet{}, err
	}
	return ts, nil
}

// doTokenRequest posts a JSON grant to the tenant token endpoint with the
// static app Basic-Auth header. A non-success response is reported via the
// returned status/body (status 0 means success).
func (c *Client) doTokenRequest(ctx context.Context, subdomain string, grant map[string]string) (TokenSet, int, string, error) {
	payload, err := json.Marshal(grant)
	if err != nil {
		return TokenSet{}, 0, "", fmt.Errorf("encode grant: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL(subdomain), bytes.NewReader(payload))
	if err != nil {
		return TokenSet{}, 0, "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.basicAuth())
	// The provider rejects requests without a User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenSet{}, 0, "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenSet{}, 0, "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenSet{}, resp.StatusCode, string(raw), nil
	}
	var ts TokenSet
	if err := json.Unmarshal(raw, &ts); err != nil {
		return TokenSet{}, 0, "", fmt.Errorf("parse token response: %w", err)
	}
	return ts, 0, "", nil
}

func (c *Client) basicAuth() string {
	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	return "Basic " + creds
}
