package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/automatedlife/mobile-core/session"
)

// Buildings lists the buildings the account has access to.
func (c *Client) Buildings(ctx context.Context) ([]session.Building, error) {
	var buildings []session.Building
	if err := c.getJSON(ctx, "/buildings", "buildings.list", "payload", &buildings); err != nil {
		return nil, err
	}
	return buildings, nil
}

// Building fetches a single building's full record.
func (c *Client) Building(ctx context.Context, id int) (*session.Building, error) {
	var building session.Building
	path := fmt.Sprintf("/buildings/%d", id)
	if err := c.getJSON(ctx, path, "buildings.get", "building", &building); err != nil {
		return nil, err
	}
	return &building, nil
}

// UpdateBranding replaces a building's white-label settings.
func (c *Client) UpdateBranding(ctx context.Context, buildingID int, branding Branding) (*Branding, error) {
	var updated Branding
	path := fmt.Sprintf("/buildings/%d/branding", buildingID)
	err := c.sendJSON(ctx, http.MethodPut, path, "buildings.branding", branding, "payload", &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
