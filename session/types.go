package session

import (
	"fmt"
	"net/url"
)

// User is the authenticated account's identity record. It only changes
// through an explicit profile update.
type User struct {
	ID            int    `json:"id"`
	DisplayName   string `json:"name"`
	Email         string `json:"email"`
	PreferredName string `json:"preferred_name,omitempty"`
}

// Building is one property the account has access to. The selected building
// determines request routing through its subdomain-derived host.
type Building struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Subdomain   string `json:"subdomain"`
}

// APIBaseURL derives the building-specific API base URL by substituting the
// building's subdomain into the configured host pattern.
func (b Building) APIBaseURL(pattern string) (*url.URL, error) {
	if b.Subdomain == "" {
		return nil, fmt.Errorf("building %q has no subdomain", b.Name)
	}
	u, err := url.Parse(fmt.Sprintf(pattern, b.Subdomain))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("building %q: derived URL is not absolute", b.Name)
	}
	return u, nil
}

// AuthResult is the transient outcome of a login attempt. It is never
// persisted.
type AuthResult struct {
	Success bool
	User    *User
	Err     error
}

// AuthState is the session lifecycle state published on the auth stream.
type AuthState int

const (
	// Unauthenticated means no valid session exists.
	Unauthenticated AuthState = iota

	// Authenticating means a login attempt is in flight.
	Authenticating

	// NeedsBuildingSelection means login succeeded but the account has
	// access to multiple buildings and none is selected yet.
	NeedsBuildingSelection

	// Authenticated means a session exists and a building is selected.
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case NeedsBuildingSelection:
		return "needs_building_selection"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}
