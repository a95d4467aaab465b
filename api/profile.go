package api

import (
	"context"
	"net/http"

	"github.com/automatedlife/mobile-core/session"
)

// Profile fetches the authenticated user's record.
func (c *Client) Profile(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.getJSON(ctx, "/me", "profile.get", "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the given field changes and returns the updated
// record as the server now sees it.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*session.User, error) {
	var user session.User
	err := c.sendJSON(ctx, http.MethodPut, "/me", "profile.update", update, "user", &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword updates the account password. Rejections (wrong current
// password, weak new password) surface as *apierr.ValidationError.
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.sendJSON(ctx, http.MethodPut, "/auth/password", "profile.password", change, "", nil)
}
