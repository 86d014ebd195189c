// Package config loads the server configuration from YAML. Missing fields
// are filled with defaults before validation, and secrets (database DSN,
// broker credentials, API key) are referenced by environment variable name
// rather than stored in the file.
package config
