// Package logging assembles structured slog loggers and attribute helpers used
// across framefuse components.
//
// It owns the console/JSON handler selection, centralizes level and output
// plumbing, and exposes helpers so components tag log lines with a consistent
// component and job id shape. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
