// Package logging wires log/slog with a compact console handler and a JSON
// handler, plus helpers that derive structured fields (run id, phase, track)
// from context so every component logs with consistent keys.
package logging
