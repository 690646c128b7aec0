package auth

import "errors"

var (
	// ErrNoSession means the tenant never installed the app, or the
	// session was revoked. The caller must send the user through the
	// authorize flow.
	ErrNoSession = errors.New("no session found for subdomain")

	// ErrSessionExpired means the stored token pair is past its lifetime
	// and the provider rejected the refresh. Re-authorization is required.
	ErrSessionExpired = errors.New("session expired and could not be refreshed")
)
