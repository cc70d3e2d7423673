// Package daemon hosts the long-running framefuse process: it enforces
// single-instance execution with a lock file, runs the storage reaper, and
// serves the HTTP API that drives the job lifecycle.
package daemon
