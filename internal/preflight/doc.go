// Package preflight provides readiness checks for the binaries, paths, and
// services wildcam depends on.
//
// The daemon runs the model artifact check before it starts taking triggers
// and logs the dependency snapshot; the CLI "wildcam status" command renders
// every check. Checks never mutate state: a missing capture database is
// reported, not created.
package preflight
