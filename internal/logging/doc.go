// Package logging wires log/slog with the handlers and attribute helpers
// used across autodub. Console output is a compact single-line format for
// interactive use; JSON output is intended for service deployments.
package logging
