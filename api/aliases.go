package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/automatedlife/mobile-core/transport"
)

// Aliases lists the account's contact aliases.
func (c *Client) Aliases(ctx context.Context) ([]Alias, error) {
	var aliases []Alias
	if err := c.getJSON(ctx, "/me/aliases", "aliases.list", "aliases", &aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}

// CreateAlias adds a contact alias and returns it with its server-assigned ID.
func (c *Client) CreateAlias(ctx context.Context, kind, value string) (*Alias, error) {
	var alias Alias
	body := map[string]string{"kind": kind, "value": value}
	err := c.sendJSON(ctx, http.MethodPost, "/me/aliases", "aliases.create", body, "alias", &alias)
	if err != nil {
		return nil, err
	}
	return &alias, nil
}

// UpdateAlias changes an alias's value.
func (c *Client) UpdateAlias(ctx context.Context, id int, value string) (*Alias, error) {
	var alias Alias
	path := fmt.Sprintf("/me/aliases/%d", id)
	body := map[string]string{"value": value}
	err := c.sendJSON(ctx, http.MethodPut, path, "aliases.update", body, "alias", &alias)
	if err != nil {
		return nil, err
	}
	return &alias, nil
}

// DeleteAlias removes an alias.
func (c *Client) DeleteAlias(ctx context.Context, id int) error {
	path := fmt.Sprintf("/me/aliases/%d", id)
	req := transport.NewRequest(http.MethodDelete, path).Named("aliases.delete")
	_, err := c.transport.Do(ctx, req)
	return err
}

// SetPrimaryAlias marks an alias as the primary contact for its kind.
func (c *Client) SetPrimaryAlias(ctx context.Context, id int) (*Alias, error) {
	var alias Alias
	path := fmt.Sprintf("/me/aliases/%d/primary", id)
	err := c.sendJSON(ctx, http.MethodPut, path, "aliases.primary", struct{}{}, "alias", &alias)
	if err != nil {
		return nil, err
	}
	return &alias, nil
}
