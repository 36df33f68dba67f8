// Package config loads denoisefx configuration from a TOML file with
// DENOISEFX_* environment overrides.
package config
