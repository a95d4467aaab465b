// Package session owns authentication state: the current user, tokens, and
// selected building.
//
// Manager is the single source of truth. All transitions (login, building
// selection, token refresh, logout, invalidation) go through it; it persists
// tokens and snapshots in the encrypted credential store and broadcasts
// every change on replay-last streams so UI layers can observe without
// polling.
//
// The manager also backs the transport pipeline: it supplies the bearer
// token and building routing base through transport.CredentialSource, and
// the pipeline drives refresh-on-401 and forced invalidation through
// transport.SessionHooks. Concurrent refresh attempts are coalesced into a
// single server exchange because refresh tokens may be single-use.
package session
