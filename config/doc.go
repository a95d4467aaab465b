// Package config provides configuration management for the mobile core.
//
// Configuration is loaded from a YAML file with environment variable
// overrides, or constructed entirely from defaults when the embedding shell
// ships no file:
//
//	cfg, err := config.Load("configs/mobilecore.yaml")
//	// or
//	cfg := config.Default()
//
// # Sections
//
//   - api: base URL, tenant host pattern, request timeout, retry schedule
//   - storage: credential database location and SQLite tuning
//   - events: live building event feed (MQTT broker, auth, reconnect)
//   - telemetry: optional request-diagnostics shipping
//   - logging: level, format, destination
//
// Environment overrides use the MOBILECORE_ prefix, e.g.
// MOBILECORE_API_BASE_URL or MOBILECORE_STORAGE_PATH. Validation runs after
// all overrides are applied so a bad override fails fast at startup.
package config
