// Package config loads, normalizes, and validates wildcam configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies WILDCAM_* environment overrides.
// The Config type centralizes every knob the daemon, dashboard, and CLI need:
// broker address, capture timings, classifier backend, notification topic,
// and the cooldown between runs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
