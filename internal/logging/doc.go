// Package logging assembles structured slog loggers and formatting helpers
// used across stagepilot components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attr helpers so components emit data with a consistent
// shape (component, event_type, error_hint). The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
