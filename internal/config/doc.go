// Package config loads, normalizes, and validates the stagepilot TOML
// configuration. All duration-like settings are stored as integers in the
// unit named by the field; accessor methods convert them to time.Duration
// so the rest of the codebase never repeats the conversion.
package config
