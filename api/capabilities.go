package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/capability"
)

// Capabilities fetches a building's capability set: what is enabled and what
// could be.
func (c *Client) Capabilities(ctx context.Context, buildingID int) (*capability.Set, error) {
	var set capability.Set
	path := fmt.Sprintf("/buildings/%d/capabilities", buildingID)
	if err := c.getJSON(ctx, path, "capabilities.list", "data", &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// SetCapabilityEnabled switches a building capability on or off.
func (c *Client) SetCapabilityEnabled(ctx context.Context, buildingID int, key string, enabled bool) error {
	if key == "" {
		return &apierr.CapabilityError{Key: key, Message: "capability key is required"}
	}
	path := fmt.Sprintf("/buildings/%d/capabilities/%s", buildingID, key)
	body := map[string]bool{"enabled": enabled}
	if err := c.sendJSON(ctx, http.MethodPatch, path, "capabilities.toggle", body, "", nil); err != nil {
		return &apierr.CapabilityError{Key: key, Message: "toggle rejected", Err: err}
	}
	return nil
}

// TestCapability asks the server to exercise a capability's integration
// end to end (e.g. fire a test notification) and reports the outcome.
func (c *Client) TestCapability(ctx context.Context, buildingID int, key string) error {
	if key == "" {
		return &apierr.CapabilityError{Key: key, Message: "capability key is required"}
	}
	path := fmt.Sprintf("/buildings/%d/capabilities/%s/test", buildingID, key)
	if err := c.sendJSON(ctx, http.MethodPost, path, "capabilities.test", struct{}{}, "", nil); err != nil {
		return &apierr.CapabilityError{Key: key, Message: "test failed", Err: err}
	}
	return nil
}
