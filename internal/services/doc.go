// Package services defines shared utilities consumed by the capture pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so every stage reports
//     failures the same way and callers can test them with errors.Is.
package services
