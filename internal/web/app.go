// internal/web/app.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"learnalchemy/internal/auth"
	"learnalchemy/internal/graphql"
	"learnalchemy/internal/queries"
	"learnalchemy/pkg/config"
	"learnalchemy/pkg/middleware"
)

const cookieName = "subdomain"

// Gateway is the slice of the GraphQL client the handlers need.
type Gateway interface {
	Query(ctx context.Context, subdomain, query string, variables map[string]any) (json.RawMessage, error)
}

// App is the HTTP application container: shared deps and config only,
// request-scoped work goes through context.
type App struct {
	log    *zap.SugaredLogger
	cfg    config.Config
	mgr    *auth.Manager
	gw     Gateway
	reg    *queries.Registry
	states StateStore
}

var _ Gateway = (*graphql.Client)(nil)

// New constructs the App.
func New(log *zap.SugaredLogger, cfg config.Config, mgr *auth.Manager, gw Gateway, reg *queries.Registry, states StateStore) *App {
	return &App{log: log, cfg: cfg, mgr: mgr, gw: gw, reg: reg, states: states}
}

// Handler builds the router with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.Tracing("learnalchemy-gateway"))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/authorize", a.authorize)
	r.Get("/callback", a.callback)
	r.Get("/uninstall", a.uninstallPing)
	r.Post("/uninstall", a.uninstall)
	r.Post("/graphql", a.graphqlProxy)
	r.Get("/session", a.sessionInfo)
	r.Get("/dashboard/site", a.siteSummary)

	return r
}

// baseURL derives the public-facing origin for browser redirects from the
// configured redirect URI, falling back to the request host in dev.
func (a *App) baseURL(r *http.Request) string {
	if a.cfg.RedirectURI != "" {
		if u, err := url.Parse(a.cfg.RedirectURI); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
