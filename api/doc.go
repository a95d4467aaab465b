// Package api is the typed client façade: one method per backend operation,
// each delegating to the request pipeline and unwrapping the response
// envelope into a domain type.
//
// The backend wraps payloads in single-field objects (user, building,
// payload, data, alias, aliases). A response missing its expected field is a
// typed *apierr.APIError, so callers can recover instead of crashing on a
// malformed body. Transport-level failures arrive already normalised by the
// pipeline; this package adds no error handling of its own beyond envelope
// shape.
package api
