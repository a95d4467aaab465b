// Package apierr defines the closed error taxonomy surfaced by the request
// pipeline and everything above it.
//
// The transport pipeline is the single point that converts raw transport
// failures into these types; the API client, session manager, and UI only
// ever observe typed errors. Check for a specific kind with errors.As:
//
//	var authErr *apierr.AuthError
//	if errors.As(err, &authErr) {
//	    // credentials rejected — prompt for login
//	}
//
// Every type carries enough context to produce a short human-readable
// message; UserMessage performs that mapping with a generic retry-suggesting
// fallback for anything unrecognised.
package apierr
