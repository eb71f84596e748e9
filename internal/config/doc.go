// Package config loads and validates the ratewatch YAML configuration and
// watches it for changes. Missing fields are filled with defaults before
// validation; a failed hot-reload keeps the previous configuration active.
package config
