// Package config loads, normalizes, and validates resplice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RESPLICE_FFMPEG. The Config type centralizes every knob the CLI and the
// retime pipeline need: matcher weights, plan policies, ffmpeg execution
// settings, and the history/log locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
