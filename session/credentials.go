package session

import (
	"context"

	"github.com/automatedlife/mobile-core/apierr"
	"github.com/automatedlife/mobile-core/store"
)

// Credential store keys. The store encrypts values, not keys, so these are
// stable plain identifiers.
const (
	keyAccessToken      = "auth_token"
	keyRefreshToken     = "refresh_token"
	keyUser             = "current_user"
	keySelectedBuilding = "selected_building"
	keyBuildings        = "buildings"
	keyBiometricEnabled = "biometric_enabled"
	keyRememberedEmail  = "remembered_email"
)

// credentials is the typed persistence layer over the raw store. Reads treat
// corrupt or absent entries as absence; writes surface StorageError because
// a token that only lives in memory breaks the store/state invariant.
type credentials struct {
	store store.Store
}

func (c *credentials) writeToken(ctx context.Context, key, token string) error {
	if err := c.store.Write(ctx, key, token); err != nil {
		return &apierr.StorageError{Op: "write " + key, Err: err}
	}
	return nil
}

func (c *credentials) readToken(ctx context.Context, key string) string {
	token, err := store.GetString(ctx, c.store, key)
	if err != nil {
		return ""
	}
	return token
}

func (c *credentials) writeUser(ctx context.Context, u *User) error {
	if err := store.PutJSON(ctx, c.store, keyUser, u); err != nil {
		return &apierr.StorageError{Op: "write user", Err: err}
	}
	return nil
}

func (c *credentials) readUser(ctx context.Context) *User {
	u, err := store.GetJSON[User](ctx, c.store, keyUser)
	if err != nil {
		return nil
	}
	return u
}

func (c *credentials) writeSelectedBuilding(ctx context.Context, b *Building) error {
	if err := store.PutJSON(ctx, c.store, keySelectedBuilding, b); err != nil {
		return &apierr.StorageError{Op: "write selected building", Err: err}
	}
	return nil
}

func (c *credentials) readSelectedBuilding(ctx context.Context) *Building {
	b, err := store.GetJSON[Building](ctx, c.store, keySelectedBuilding)
	if err != nil {
		return nil
	}
	return b
}

func (c *credentials) writeBuildings(ctx context.Context, list []Building) error {
	if err := store.PutJSON(ctx, c.store, keyBuildings, list); err != nil {
		return &apierr.StorageError{Op: "write buildings", Err: err}
	}
	return nil
}

func (c *credentials) readBuildings(ctx context.Context) []Building {
	list, err := store.GetJSON[[]Building](ctx, c.store, keyBuildings)
	if err != nil || list == nil {
		return nil
	}
	return *list
}

// clearSession removes session entries but keeps UX preferences (biometric
// flag, remembered email) and the store's own metadata.
func (c *credentials) clearSession(ctx context.Context) {
	for _, key := range []string{
		keyAccessToken, keyRefreshToken, keyUser, keySelectedBuilding, keyBuildings,
	} {
		// Best effort: logout must not fail on store errors.
		_ = c.store.Delete(ctx, key)
	}
}
