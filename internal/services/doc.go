// Package services defines shared utilities consumed by the job orchestrator
// and external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     (invalid input, invalid state, timeout, encoding failure, ...).
//   - Thin abstractions that make command execution and progress streaming
//     from external tools testable (see the ffmpeg subpackage).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// stays uniform across the system.
package services
