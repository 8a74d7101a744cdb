// Package classifier decides whether a still frame shows an animal.
//
// A Backend produces raw detections, either by running a detector executable
// per frame or by uploading the frame to an HTTP detection service. Select
// reduces the detections to one Result: the highest-confidence label in the
// configured animal set, title-cased, or "False Positive" when none match.
//
// Classify never returns an error. Backend failures are logged and yield the
// empty result so that every run still reaches the capture log.
package classifier
