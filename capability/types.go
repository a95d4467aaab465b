package capability

import "encoding/json"

// availableSortOrder is the sentinel sort order for capabilities a building
// could enable but has not. It must exceed any real sort order so available
// capabilities always render after enabled ones.
const availableSortOrder = 999

// Capability is the field set shared by every capability variant: a feature
// or module a building may enable (messaging, bookings, access control, ...).
type Capability struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// Enabled is a capability the building has switched on. It extends the base
// fields with presentation ordering, the building-specific link, and a free
// form badge payload (unread counts, alerts) refreshed by the live feed.
type Enabled struct {
	Capability

	SortOrder int             `json:"sort_order"`
	LinkID    string          `json:"link_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Available is a capability the building could enable but has not.
// It carries no ordering, link, or badge data.
type Available struct {
	Capability
}

// Set is the capability envelope returned for a building: what is switched
// on and what could be.
type Set struct {
	Enabled   []Enabled   `json:"enabled"`
	Available []Available `json:"available"`
}
