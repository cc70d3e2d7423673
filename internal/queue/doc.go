// Package queue persists encode jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, the
// atomic uploaded-to-processing gate, monotonic progress writes, terminal
// transitions, and expiry queries for the reaper. Jobs capture frame lists,
// progress, and artifact metadata so the orchestrator and API can coordinate
// without additional state.
//
// The database is transient per-process storage, not an archive: Open removes
// any file a previous run left behind, so job state never survives a restart.
//
// Treat this package as the single source of truth for job lifecycle
// semantics; when you add statuses or fields, update schema.sql.
package queue
