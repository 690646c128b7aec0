// internal/graphql/client.go
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"learnalchemy/internal/auth"
	"learnalchemy/pkg/config"
	"learnalchemy/pkg/metrics"
)

// RemoteError reports a failed query against the provider GraphQL
// endpoint: either a non-success HTTP status or a GraphQL-level errors
// array, reduced to its first message.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("graphql request failed: status %d: %s", e.Status, e.Message)
	}
	return "graphql error: " + e.Message
}

// envelope is the standard GraphQL response wrapper. The data payload is
// opaque to this service and passed through untouched.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// TokenSource hands out a valid access token for a tenant. Satisfied by
// *auth.Manager.
type TokenSource interface {
	ValidToken(ctx context.Context, subdomain string) (string, error)
}

var _ TokenSource = (*auth.Manager)(nil)

// Client issues queries against the shared provider GraphQL endpoint on
// behalf of a tenant, scoping each request with the tenant header and a
// bearer token obtained from the session manager.
type Client struct {
	httpClient   *http.Client
	log          *zap.SugaredLogger
	mgr          TokenSource
	endpoint     string
	tenantHeader string
}

// NewClient builds the gateway client. The endpoint is fixed and shared
// across tenants; only headers vary per request.
func NewClient(cfg config.Config, mgr TokenSource, log *zap.SugaredLogger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          log,
		mgr:          mgr,
		endpoint:     cfg.GraphQLEndpoint,
		tenantHeader: cfg.TenantHeader,
	}
}

// Query runs one GraphQL document for the tenant and returns the raw data
// payload. Session errors (auth.ErrNoSession, auth.ErrSessionExpired)
// pass through unwrapped so the boundary can map them to 401.
func (c *Client) Query(ctx context.Context, subdomain, query string, variables map[string]any) (json.RawMessage, error) {
	data, err := c.query(ctx, subdomain, query, variables)
	metrics.Observe(metrics.GraphQLRequests, err)
	return data, err
}

func (c *Client) query(ctx context.Context, subdomain, query string, variables map[string]any) (json.RawMessage, error) {
	token, err := c.mgr.ValidToken(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(c.tenantHeader, subdomain)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Errorw("graphql endpoint error", "subdomain", subdomain, "status", resp.StatusCode)
		return nil, &RemoteError{Status: resp.StatusCode, Message: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse graphql response: %w", err)
	}
	if len(env.Errors) > 0 {
		return nil, &RemoteError{Message: env.Errors[0].Message}
	}
	return env.Data, nil
}
