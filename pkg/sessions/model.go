package sessions

import "time"

// Session holds the OAuth token pair issued to one tenant site,
// keyed by its subdomain. The access/refresh pair is replaced as a
// unit on every write; ExpiresAt is always computed from expires_in
// at the moment tokens were received.
type Session struct {
	Subdomain    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
