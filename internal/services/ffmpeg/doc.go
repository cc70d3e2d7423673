// Package ffmpeg runs external encoder processes on behalf of the job
// pipeline.
//
// The Runner merges a child's stdout and stderr into one line stream so
// callers can scrape progress, enforces a wall-clock deadline with a forced
// kill, and guarantees exactly one terminal outcome per invocation: success,
// non-zero exit, or timeout. Children carry a parent-death signal so a daemon
// crash cannot leave an encoder running.
//
// Prefer this package over ad-hoc exec.Command usage when interacting with
// the encoder so deadline and output semantics stay uniform.
package ffmpeg
