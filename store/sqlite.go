package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// saltSize is the size of the per-store scrypt salt.
	saltSize = 16

	// nonceSize is the secretbox nonce length prepended to each sealed value.
	nonceSize = 24

	// keySize is the secretbox key length.
	keySize = 32

	// scrypt cost parameters (N, r, p). Interactive-grade: the store is
	// opened once per process on a phone-class device.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Config contains credential store configuration options.
// These map to the storage section of the config file.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// SQLiteStore implements Store on a single-file SQLite database with every
// value sealed under a key derived from a caller-supplied device secret.
//
// The shell obtains the device secret from the platform keystore and hands
// it to Open; the raw secret is never persisted. A random per-store salt is
// generated on first open and kept alongside the data, so copying the
// database file without the device secret yields nothing readable.
type SQLiteStore struct {
	db   *sql.DB
	path string
	key  [keySize]byte

	mu     sync.Mutex
	closed bool
}

// Open creates or opens a credential store at cfg.Path.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file with busy timeout and optional WAL mode
//  3. Sets file permissions (0600) and verifies the connection
//  4. Creates the schema and loads (or generates) the key-derivation salt
//  5. Derives the sealing key from the device secret via scrypt
func Open(cfg Config, deviceSecret []byte) (*SQLiteStore, error) {
	if len(deviceSecret) == 0 {
		return nil, fmt.Errorf("%w: device secret is empty", ErrOpenFailed)
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %w", ErrOpenFailed, err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("%w: verifying connection: %w", ErrOpenFailed, err)
	}

	// Owner read/write only. Ignore error - file might not exist yet on
	// first run, will be set after first write.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, err
	}

	salt, err := s.loadOrCreateSalt(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, err
	}

	derived, err := scrypt.Key(deviceSecret, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("%w: deriving key: %w", ErrOpenFailed, err)
	}
	copy(s.key[:], derived)

	return s, nil
}

// migrate creates the store schema if it does not exist.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS credentials (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE IF NOT EXISTS store_meta (
			name  TEXT PRIMARY KEY,
			value BLOB NOT NULL
		) STRICT;
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: creating schema: %w", ErrOpenFailed, err)
	}
	return nil
}

// loadOrCreateSalt returns the persisted key-derivation salt, generating it
// (and a stable install ID for diagnostics) on first open.
func (s *SQLiteStore) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	var salt []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE name = 'salt'").Scan(&salt)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reading salt: %w", ErrOpenFailed, err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: generating salt: %w", ErrOpenFailed, err)
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO store_meta (name, value) VALUES ('salt', ?)", salt); err != nil {
		return nil, fmt.Errorf("%w: storing salt: %w", ErrOpenFailed, err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO store_meta (name, value) VALUES ('install_id', ?)",
		[]byte(uuid.NewString())); err != nil {
		return nil, fmt.Errorf("%w: storing install id: %w", ErrOpenFailed, err)
	}

	return salt, nil
}

// InstallID returns the stable per-install identifier generated on first
// open. It is not secret and may be attached to diagnostics.
func (s *SQLiteStore) InstallID(ctx context.Context) (string, error) {
	var id []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE name = 'install_id'").Scan(&id)
	if err != nil {
		return "", fmt.Errorf("reading install id: %w", err)
	}
	return string(id), nil
}

// seal encrypts a plaintext value. The random nonce is prepended.
func (s *SQLiteStore) seal(value string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key), nil
}

// unseal decrypts a sealed value. ok is false for truncated or tampered blobs.
func (s *SQLiteStore) unseal(sealed []byte) (string, bool) {
	if len(sealed) < nonceSize {
		return "", false
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", false
	}
	return string(plain), true
}

// Write stores value under key, replacing any previous value.
func (s *SQLiteStore) Write(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	sealed, err := s.seal(value)
	if err != nil {
		return fmt.Errorf("sealing %q: %w", key, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, sealed, now)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Read returns the value for key, or ErrNotFound if absent.
// Values that fail to unseal are deleted and reported absent.
func (s *SQLiteStore) Read(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM credentials WHERE key = ?", key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}

	plain, ok := s.unseal(sealed)
	if !ok {
		// Self-healing: an undecryptable entry is useless, drop it.
		_ = s.Delete(ctx, key) //nolint:errcheck // best-effort cleanup
		return "", ErrNotFound
	}
	return plain, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// DeleteAll removes every stored value. The salt and install ID survive so
// the same device secret keeps working after logout.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return fmt.Errorf("deleting all credentials: %w", err)
	}
	return nil
}

// HealthCheck verifies the store is accessible and functioning.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the store. Further operations return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
