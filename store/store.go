package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store is durable, encrypted-at-rest, keyed string storage.
//
// All point operations are independently atomic; no cross-key
// transactionality is provided or assumed. Implementations must be safe for
// concurrent use.
type Store interface {
	// Write stores value under key, replacing any previous value.
	Write(ctx context.Context, key, value string) error

	// Read returns the value for key, or ErrNotFound if absent.
	Read(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every stored value.
	DeleteAll(ctx context.Context) error
}

// PutJSON serialises v and writes it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return s.Write(ctx, key, string(data))
}

// GetJSON reads key and decodes it into a T.
//
// A value that fails to decode is treated as absent: the corrupt entry is
// deleted and ErrNotFound is returned. Parse errors never reach the caller.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// Self-healing: drop the corrupt entry so the next read is clean.
		_ = s.Delete(ctx, key) //nolint:errcheck // best-effort cleanup
		return nil, ErrNotFound
	}
	return &v, nil
}

// GetString reads a plain string value, returning "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	raw, err := s.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

// PutBool writes a boolean flag.
func PutBool(ctx context.Context, s Store, key string, v bool) error {
	if v {
		return s.Write(ctx, key, "true")
	}
	return s.Write(ctx, key, "false")
}

// GetBool reads a boolean flag, returning false when absent or unparseable.
func GetBool(ctx context.Context, s Store, key string) (bool, error) {
	raw, err := s.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}
