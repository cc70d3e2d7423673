// Package jobs orchestrates the encode job lifecycle.
//
// The Manager owns the path from upload to artifact: it registers PNG frame
// sets into per-job work directories, claims the single allowed
// uploaded-to-processing transition, and runs each encode on a background
// pipeline that renames frames into a numbered sequence, supervises the
// planned ffmpeg invocation(s), reports progress, and records the terminal
// outcome.
//
// The Reaper reclaims storage on two triggers sharing one delayed queue:
// periodic TTL sweeps and per-job removals scheduled after a successful
// artifact download.
package jobs
