// Package capability models building feature toggles.
//
// A building's capability set splits into enabled capabilities (with
// ordering, link, and live badge data) and available capabilities (offered
// but switched off). BuildTiles produces the single normalised list the home
// screen renders, with available capabilities sorted after every enabled one.
package capability
