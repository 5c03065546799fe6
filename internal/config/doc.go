// Package config loads and validates modwatch configuration.
//
// Configuration lives in a TOML file, by default at
// ~/.config/modwatch/config.toml. Load applies defaults for any missing
// values, normalizes paths, and validates the result before returning it.
// CreateSample writes an annotated starter file for new installations.
package config
