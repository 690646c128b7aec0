// internal/web/handlers_auth.go
package web

import (
	"net/http"
	"net/url"
	"time"
)

const cookieMaxAge = 30 * 24 * time.Hour

// authorize kicks off the install flow: it mints a CSRF state and sends
// the browser to the tenant-specific authorization page.
func (a *App) authorize(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")
	if subdomain == "" {
		writeJSON(w, map[string]any{"error": "missing subdomain parameter"}, http.StatusBadRequest)
		return
	}
	if !a.cfg.Configured() {
		a.log.Errorw("oauth app credentials not configured")
		writeJSON(w, map[string]any{"error": "oauth not configured"}, http.StatusInternalServerError)
		return
	}

	state, err := a.states.Issue(r.Context())
	if err != nil {
		a.log.Errorw("issue state", "err", err)
		writeJSON(w, map[string]any{"error": "authorization unavailable"}, http.StatusInternalServerError)
		return
	}

	authURL := url.URL{
		Scheme: "https",
		Host:   subdomain + "." + a.cfg.ProviderDomain,
		Path:   "/oauth2/authorize",
	}
	q := authURL.Query()
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("response_mode", "query")
	q.Set("state", state)
	authURL.RawQuery = q.Encode()

	a.log.Infow("redirecting to authorization", "subdomain", subdomain)
	http.Redirect(w, r, authURL.String(), http.StatusFound)
}

// callback lands the browser after the provider consent screen. Every
// failure path redirects back to the login page with a short error code;
// success sets the tenant cookie and heads to the dashboard.
func (a *App) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := a.baseURL(r)

	if errCode := q.Get("error"); errCode != "" {
		a.log.Warnw("oauth error on callback", "error", errCode)
		a.loginRedirect(w, r, base, errCode)
		return
	}
	code := q.Get("code")
	if code == "" {
		a.loginRedirect(w, r, base, "missing_code")
		return
	}
	subdomain := q.Get("subdomain")
	if subdomain == "" {
		a.loginRedirect(w, r, base, "missing_subdomain")
		return
	}
	// The provider does not echo state on install callbacks, so only
	// validate it when present.
	if state := q.Get("state"); state != "" && !a.states.Consume(r.Context(), state) {
		a.log.Warnw("unknown or reused state", "subdomain", subdomain)
		a.loginRedirect(w, r, base, "invalid_state")
		return
	}

	if err := a.mgr.Establish(r.Context(), code, subdomain); err != nil {
		a.log.Errorw("callback failed", "subdomain", subdomain, "err", err)
		a.loginRedirect(w, r, base, "auth_failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    subdomain,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, base+"/dashboard", http.StatusFound)
}

func (a *App) loginRedirect(w http.ResponseWriter, r *http.Request, base, code string) {
	http.Redirect(w, r, base+"/login?error="+url.QueryEscape(code), http.StatusFound)
}

// sessionInfo is a read-only gating check for the UI: it never triggers
// a token refresh.
func (a *App) sessionInfo(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, map[string]any{"authenticated": false}, http.StatusOK)
		return
	}
	ok := a.mgr.HasValidSession(r.Context(), cookie.Value)
	writeJSON(w, map[string]any{"authenticated": ok, "subdomain": cookie.Value}, http.StatusOK)
}
