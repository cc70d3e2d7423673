// Package encoder plans ffmpeg invocations for alpha-preserving encodes.
//
// It owns the codec policy table (container, pixel format, speed settings),
// builds the argument vectors the process runner executes, and parses the
// frame counter out of ffmpeg's stats lines so the orchestrator can report
// progress. It never runs anything itself.
package encoder
