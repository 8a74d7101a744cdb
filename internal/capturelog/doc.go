// Package capturelog persists the outcome of every capture run in a SQLite
// database.
//
// Each run that reaches the persist stage writes exactly one row to the
// captures table: the completion timestamp, the classification label (or
// "False Positive"), the confidence, the video path, and whatever telemetry the
// trigger carried. Missing telemetry is stored as NULL.
//
// The store runs in WAL mode with a busy timeout and retries writes that hit
// SQLITE_BUSY, so the dashboard can read while the pipeline writes.
package capturelog
