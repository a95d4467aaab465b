// Package transport implements the HTTP request pipeline every API call
// flows through.
//
// A Pipeline is an ordered chain of stages wrapped around a terminal dialer.
// From the outside in:
//
//	logging  - request IDs and debug entries (only when enabled)
//	metrics  - one telemetry sample per logical request
//	retry    - transient failures re-attempted on a fixed backoff schedule
//	normalize - raw transport errors and non-2xx responses mapped to the
//	            typed taxonomy in package apierr
//	building - relative paths resolved against the selected building's host
//	auth     - bearer token injection and one refresh-and-replay on 401
//	dialer   - the actual net/http round trip
//
// Stages below normalize return raw errors and responses; stages above it
// only ever see 2xx responses or taxonomy errors. Callers therefore never
// branch on status codes.
//
// The pipeline depends on the session layer only through the
// CredentialSource and SessionHooks interfaces, attached with Bind after
// both sides are constructed.
package transport
