package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// Run-level failures. Capture and extract failures abort a run before
	// anything is persisted; persist and notify failures are logged and the
	// run carries on.
	ErrCaptureFailed = errors.New("capture failed")
	ErrExtractFailed = errors.New("extract failed")
	ErrPersistFailed = errors.New("persist failed")
	ErrNotifyFailed  = errors.New("notify failed")

	// ErrMalformedTrigger marks a trigger payload that could not be decoded.
	// Such triggers never reach the admission gate.
	ErrMalformedTrigger = errors.New("malformed trigger")

	// ErrStoreInit marks a capture log that could not be opened. Fatal at startup.
	ErrStoreInit = errors.New("store init failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, suitable for the
// event_type field of structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCaptureFailed):
		return "capture_failed"
	case errors.Is(err, ErrExtractFailed):
		return "extract_failed"
	case errors.Is(err, ErrPersistFailed):
		return "persist_failed"
	case errors.Is(err, ErrNotifyFailed):
		return "notify_failed"
	case errors.Is(err, ErrMalformedTrigger):
		return "malformed_trigger"
	case errors.Is(err, ErrStoreInit):
		return "store_init_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "external_tool_error"
	default:
		return "error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
