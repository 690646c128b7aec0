// internal/web/handlers_graphql.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"learnalchemy/internal/auth"
	"learnalchemy/internal/graphql"
)

// graphqlRequest is the validated proxy request body. Subdomain overrides
// the cookie-derived tenant when present.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
	Subdomain string         `json:"subdomain,omitempty"`
}

// graphqlProxy executes an arbitrary query against the provider API with
// the tenant's credentials.
func (a *App) graphqlProxy(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]any{"error": "invalid request body"}, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, map[string]any{"error": "invalid request body"}, http.StatusBadRequest)
		return
	}

	subdomain := req.Subdomain
	if subdomain == "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			subdomain = cookie.Value
		}
	}
	if subdomain == "" {
		writeJSON(w, map[string]any{"error": "no subdomain found, please log in"}, http.StatusUnauthorized)
		return
	}

	a.log.Infow("executing query", "subdomain", subdomain)
	data, err := a.gw.Query(r.Context(), subdomain, req.Query, req.Variables)
	if err != nil {
		a.writeQueryError(w, subdomain, err)
		return
	}
	writeJSON(w, map[string]any{"data": data}, http.StatusOK)
}

// siteSummary runs the registered site query and returns a flat
// projection of the response for the dashboard card.
func (a *App) siteSummary(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")
	if subdomain == "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			subdomain = cookie.Value
		}
	}
	if subdomain == "" {
		writeJSON(w, map[string]any{"error": "no subdomain found, please log in"}, http.StatusUnauthorized)
		return
	}

	spec, ok := a.reg.Get("site_info")
	if !ok {
		writeJSON(w, map[string]any{"error": "query not registered"}, http.StatusInternalServerError)
		return
	}
	raw, err := a.gw.Query(r.Context(), subdomain, spec.Document, nil)
	if err != nil {
		a.writeQueryError(w, subdomain, err)
		return
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		writeJSON(w, map[string]any{"error": "upstream query failed"}, http.StatusInternalServerError)
		return
	}
	site, err := spec.Project(data)
	if err != nil {
		a.log.Errorw("site projection failed", "subdomain", subdomain, "err", err)
		writeJSON(w, map[string]any{"error": "upstream query failed"}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"site": site}, http.StatusOK)
}

// writeQueryError maps gateway failures to the API error envelope:
// session problems become 401, everything else a sanitized 500.
func (a *App) writeQueryError(w http.ResponseWriter, subdomain string, err error) {
	a.log.Errorw("query failed", "subdomain", subdomain, "err", err)
	if errors.Is(err, auth.ErrNoSession) || errors.Is(err, auth.ErrSessionExpired) {
		writeJSON(w, map[string]any{"error": err.Error()}, http.StatusUnauthorized)
		return
	}
	var remote *graphql.RemoteError
	if errors.As(err, &remote) && remote.Status == 0 {
		// GraphQL-level error: the first message is safe to surface.
		writeJSON(w, map[string]any{"error": remote.Message}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"error": "upstream query failed"}, http.StatusInternalServerError)
}
