// Package logging defines the Logger interface plus slog-backed and no-op
// implementations used throughout the engine.
package logging
