package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"learnalchemy/internal/auth"
	"learnalchemy/internal/graphql"
	"learnalchemy/internal/oauth"
	"learnalchemy/internal/queries"
	"learnalchemy/pkg/config"
	"learnalchemy/pkg/sessions"
)

// fixture wires the whole stack against fake provider endpoints.
type fixture struct {
	app      *App
	handler  http.Handler
	store    sessions.Store
	states   StateStore
	tokenSrv *httptest.Server
	gqlSrv   *httptest.Server
}

func newFixture(t *testing.T, tokenHandler, gqlHandler http.HandlerFunc) *fixture {
	t.Helper()
	if tokenHandler == nil {
		tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected token request", http.StatusTeapot)
		}
	}
	if gqlHandler == nil {
		gqlHandler = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unexpected graphql request", http.StatusTeapot)
		}
	}
	tokenSrv := httptest.NewServer(tokenHandler)
	t.Cleanup(tokenSrv.Close)
	gqlSrv := httptest.NewServer(gqlHandler)
	t.Cleanup(gqlSrv.Close)

	cfg := config.Config{
		Env:             "dev",
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RedirectURI:     "https://app.example.com/callback",
		ProviderDomain:  "provider.test",
		GraphQLEndpoint: gqlSrv.URL,
		TenantHeader:    "X-Thinkific-Subdomain",
		UserAgent:       "LearnAlchemy/1.0",
		StateTTL:        time.Minute,
	}
	log := zap.NewNop().Sugar()
	store := sessions.NewMemoryStore(log)
	states := NewMemoryStateStore(cfg.StateTTL)
	exchanger := oauth.NewClient(cfg, log,
		oauth.WithTokenURL(func(subdomain string) string { return tokenSrv.URL + "/oauth2/token" }))
	mgr := auth.NewManager(store, exchanger, log)
	gw := graphql.NewClient(cfg, mgr, log)
	reg, err := queries.Load()
	require.NoError(t, err)
	app := New(log, cfg, mgr, gw, reg, states)

	return &fixture{app: app, handler: app.Handler(), store: store, states: states, tokenSrv: tokenSrv, gqlSrv: gqlSrv}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func tokenEndpoint(t *testing.T, access, refresh string, expiresIn int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": refresh,
			"expires_in":    expiresIn,
			"token_type":    "bearer",
		})
	}
}

func TestAuthorizeRedirect(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/authorize?subdomain=school1", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "https", loc.Scheme)
	assert.Equal(t, "school1.provider.test", loc.Host)
	assert.Equal(t, "/oauth2/authorize", loc.Path)

	q := loc.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "query", q.Get("response_mode"))
	require.NotEmpty(t, q.Get("state"))
	assert.True(t, f.states.Consume(context.Background(), q.Get("state")), "state should be stored")
}

func TestAuthorizeMissingSubdomain(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/authorize", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeUnconfigured(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.app.cfg.ClientID = ""
	rec := f.do(httptest.NewRequest(http.MethodGet, "/authorize?subdomain=school1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallbackSuccess(t *testing.T) {
	f := newFixture(t, tokenEndpoint(t, "AT1", "RT1", 7200), nil)

	before := time.Now()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc&subdomain=school1", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "subdomain", cookie.Name)
	assert.Equal(t, "school1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "dev env leaves the cookie insecure")
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	s, err := f.store.Find(context.Background(), "school1")
	require.NoError(t, err)
	assert.Equal(t, "AT1", s.AccessToken)
	assert.Equal(t, "RT1", s.RefreshToken)
	assert.WithinDuration(t, before.Add(7200*time.Second), s.ExpiresAt, 5*time.Second)
}

func TestCallbackErrorParam(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/login?error=access_denied", rec.Header().Get("Location"))
}

func TestCallbackMissingParams(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?subdomain=school1", nil))
	assert.Equal(t, "https://app.example.com/login?error=missing_code", rec.Header().Get("Location"))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, "https://app.example.com/login?error=missing_subdomain", rec.Header().Get("Location"))
}

func TestCallbackUnknownState(t *testing.T) {
	f := newFixture(t, tokenEndpoint(t, "AT1", "RT1", 7200), nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc&subdomain=school1&state=bogus", nil))
	assert.Equal(t, "https://app.example.com/login?error=invalid_state", rec.Header().Get("Location"))
}

func TestCallbackValidStateAccepted(t *testing.T) {
	f := newFixture(t, tokenEndpoint(t, "AT1", "RT1", 7200), nil)
	state, err := f.states.Issue(context.Background())
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc&subdomain=school1&state="+state, nil))
	assert.Equal(t, "https://app.example.com/dashboard", rec.Header().Get("Location"))
}

func TestCallbackExchangeFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc&subdomain=school1", nil))
	assert.Equal(t, "https://app.example.com/login?error=auth_failed", rec.Header().Get("Location"))

	_, err := f.store.Find(context.Background(), "school1")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestUninstallPing(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/uninstall", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUninstallDeletesSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	body := strings.NewReader(`{"subdomain":"school1","event":"app.uninstall","timestamp":"2024-01-01T00:00:00Z"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/uninstall", body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	_, err := f.store.Find(context.Background(), "school1")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestUninstallInvalidPayload(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/uninstall", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/uninstall", strings.NewReader(`{"event":"app.uninstall"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphQLProxyNoSubdomain(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ site { name } }"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGraphQLProxyInvalidBody(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraphQLProxyWithCookie(t *testing.T) {
	var gotTenant, gotAuth string
	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Thinkific-Subdomain")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"site":{"name":"School One"}}}`))
	})
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ site { name } }"}`))
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "school1", gotTenant)
	assert.Equal(t, "Bearer AT1", gotAuth)
	assert.JSONEq(t, `{"data":{"site":{"name":"School One"}}}`, rec.Body.String())
}

func TestGraphQLProxyBodySubdomainOverridesCookie(t *testing.T) {
	var gotTenant string
	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Thinkific-Subdomain")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school2", AccessToken: "AT2", RefreshToken: "RT2", ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ site { name } }","subdomain":"school2"}`))
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "school2", gotTenant)
}

func TestGraphQLProxyExpiredSessionMapsTo401(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusUnauthorized)
	}, nil)
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ site { name } }"}`))
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec := f.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGraphQLProxyRemoteErrorMapsTo500(t *testing.T) {
	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	})
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ site { name } }"}`))
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec := f.do(req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}

func TestSessionInfo(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour),
	}))
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec = f.do(req)
	assert.JSONEq(t, `{"authenticated":true,"subdomain":"school1"}`, rec.Body.String())
}

func TestSiteSummary(t *testing.T) {
	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"site":{"id":"42","name":"School One","subdomain":"school1","url":"https://school1.example.com"}}}`))
	})
	require.NoError(t, f.store.Upsert(context.Background(), sessions.Session{
		Subdomain: "school1", AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard/site", nil)
	req.AddCookie(&http.Cookie{Name: "subdomain", Value: "school1"})
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"site":{"id":"42","name":"School One","subdomain":"school1","url":"https://school1.example.com"}}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
