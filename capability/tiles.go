package capability

import (
	"encoding/json"
	"sort"
)

// Tile is the normalised projection consumed by the home screen grid:
// one entry per capability regardless of variant.
type Tile struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Icon        string          `json:"icon,omitempty"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	SortOrder   int             `json:"sort_order"`
	LinkID      string          `json:"link_id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// BuildTiles merges enabled and available capabilities into a single sorted
// tile list. Enabled capabilities keep their server-assigned sort order;
// available ones take a sentinel order higher than any real order so they
// sort last. Ties break on key for a stable layout.
func BuildTiles(enabled []Enabled, available []Available) []Tile {
	tiles := make([]Tile, 0, len(enabled)+len(available))

	for _, e := range enabled {
		tiles = append(tiles, Tile{
			Key:         e.Key,
			Name:        e.Name,
			Icon:        e.Icon,
			Description: e.Description,
			Enabled:     true,
			SortOrder:   e.SortOrder,
			LinkID:      e.LinkID,
			Data:        e.Data,
		})
	}

	for _, a := range available {
		tiles = append(tiles, Tile{
			Key:         a.Key,
			Name:        a.Name,
			Icon:        a.Icon,
			Description: a.Description,
			SortOrder:   availableSortOrder,
		})
	}

	sort.SliceStable(tiles, func(i, j int) bool {
		if tiles[i].SortOrder != tiles[j].SortOrder {
			return tiles[i].SortOrder < tiles[j].SortOrder
		}
		return tiles[i].Key < tiles[j].Key
	})

	return tiles
}

// Tiles returns the set's merged, sorted tile projection.
func (s Set) Tiles() []Tile {
	return BuildTiles(s.Enabled, s.Available)
}
