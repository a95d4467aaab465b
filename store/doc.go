// Package store provides the secure credential store for the mobile core.
//
// This package manages:
//   - Durable, encrypted-at-rest key-value persistence (SQLite + secretbox)
//   - Key derivation from a platform-provided device secret (scrypt)
//   - Typed JSON helpers with self-healing reads
//
// # Architecture
//
// The Store interface exposes atomic point operations only. Higher layers
// (the session manager) serialise domain snapshots — user, selected
// building, building list — through PutJSON/GetJSON before delegating to the
// primitive store. A value that fails to decode or decrypt is deleted and
// reported absent; parse errors never surface to callers.
//
// # Security Considerations
//
//   - The device secret comes from the platform keystore and is never
//     persisted; only a random salt is stored next to the data.
//   - Every value is sealed with NaCl secretbox; the database file alone is
//     not readable.
//   - The database file is created with 0600 permissions.
//
// # Usage
//
//	s, err := store.Open(store.Config{Path: cfg.Storage.Path}, deviceSecret)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.Write(ctx, "auth_token", token); err != nil { ... }
//	token, err := s.Read(ctx, "auth_token") // store.ErrNotFound when absent
package store
