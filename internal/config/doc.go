// Package config loads, normalizes, and validates MediaVault configuration.
// Values come from a TOML file with environment-variable overrides applied
// during normalization; all path fields are expanded to absolute paths before
// the config is handed to any component.
package config
