package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry extracts the exp claim from an access token without verifying
// the signature. The client never holds the signing key; expiry here is only
// a fast-path hint, the server remains authoritative.
//
// A token that cannot be parsed or carries no expiry reports ok == false and
// must be validated against the server.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenExpired reports whether the token's embedded expiry has passed.
// Unparseable tokens are not considered expired; the server decides.
func tokenExpired(token string, now time.Time) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return now.After(exp)
}
