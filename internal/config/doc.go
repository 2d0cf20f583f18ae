// Package config loads, validates, and defaults the TOML configuration for
// the custody toolkit. Path fields are tilde-expanded and normalized to
// absolute paths at load time so callers never consult process state.
package config
