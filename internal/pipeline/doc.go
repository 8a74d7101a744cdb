// Package pipeline turns an admitted trigger into a recorded capture.
//
// Gate is the single-flight admission check: an atomic compare-and-swap from
// idle to busy, with no queue behind it. Worker owns the one goroutine that
// runs captures; it takes payloads from Submit, runs the Pipeline, waits out
// the cooldown measured from the end of the run, and only then releases the
// gate, whether the run succeeded or was aborted.
//
// Pipeline.Execute runs capture, extract, classify, persist and notify in
// order. Capture and extract failures abandon the run before anything is
// written. Persist and notify failures are logged and the run carries on, so
// a database hiccup still lets the notification go out.
package pipeline
