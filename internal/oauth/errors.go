package oauth

import "fmt"

// ExchangeError reports a non-success response from the provider token
// endpoint during an authorization-code exchange. Status and Body are kept
// for operator diagnostics and must not be echoed to end users.
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.Status, e.Body)
}

// RefreshError reports a non-success response during a refresh-token grant.
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: status %d: %s", e.Status, e.Body)
}
