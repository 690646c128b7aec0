// internal/web/handlers_webhook.go
package web

import (
	"encoding/json"
	"net/http"
	"strings"
)

// uninstallPayload is the validated shape of the provider uninstall
// webhook. Only the subdomain matters; event and timestamp are carried
// for logging.
type uninstallPayload struct {
	Subdomain string `json:"subdomain"`
	Event     string `json:"event,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// uninstall handles the provider webhook fired when a tenant removes the
// app. The session row is dropped; replays are harmless.
func (a *App) uninstall(w http.ResponseWriter, r *http.Request) {
	var p uninstallPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		a.log.Warnw("uninstall: bad json", "err", err)
		writeJSON(w, map[string]any{"error": "invalid payload"}, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(p.Subdomain) == "" {
		a.log.Warnw("uninstall: missing subdomain")
		writeJSON(w, map[string]any{"error": "invalid payload"}, http.StatusBadRequest)
		return
	}

	a.log.Infow("processing uninstall", "subdomain", p.Subdomain, "event", p.Event)
	if err := a.mgr.Revoke(r.Context(), p.Subdomain); err != nil {
		a.log.Errorw("uninstall failed", "subdomain", p.Subdomain, "err", err)
		writeJSON(w, map[string]any{"error": "failed to process uninstall"}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true}, http.StatusOK)
}

// uninstallPing answers the provider's webhook verification probe.
func (a *App) uninstallPing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"}, http.StatusOK)
}
