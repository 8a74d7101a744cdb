// Package daemon coordinates the long-running wildcam process.
//
// It ties the trigger worker, the MQTT subscriber that feeds it, and the
// optional embedded dashboard into a single lifecycle, with flock-based
// locking to prevent two instances from driving the same camera.
//
// Keep orchestration here: capture, classification, and persistence live in
// their own packages while the daemon owns startup, shutdown, and status.
package daemon
