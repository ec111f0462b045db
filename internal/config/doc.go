// Package config loads, normalizes, and validates the TOML configuration
// that drives the normalization pipeline, device sync, and run journal.
//
// Load resolves the file from an explicit path, ~/.config/tonearm/config.toml,
// or ./tonearm.toml, in that order, falling back to defaults when no file
// exists. All path fields are tilde-expanded and made absolute before
// validation so downstream packages never see relative paths.
package config
