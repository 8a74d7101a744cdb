package capturelog

import (
	"path/filepath"
	"time"
)

// TimestampLayout is the local-time layout stored in the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// FalsePositiveLabel is recorded when no animal was detected in a run.
const FalsePositiveLabel = "False Positive"

// Event is one row of the capture log. Telemetry fields are nil when the
// trigger did not carry them and are stored as NULL.
type Event struct {
	ID             int64    `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	VideoPath      string   `json:"video_path"`
	Temp           *float64 `json:"temp"`
	Humidity       *float64 `json:"humidity"`
	Battery        *int64   `json:"battery"`
	LightState     *int64   `json:"light_state"`
}

// IsFalsePositive reports whether the event records a run without an animal.
func (e Event) IsFalsePositive() bool {
	return e.Classification == FalsePositiveLabel
}

// VideoName returns the basename of the stored video path.
func (e Event) VideoName() string {
	if e.VideoPath == "" {
		return ""
	}
	return filepath.Base(e.VideoPath)
}

// FormatTimestamp renders t in the layout stored by the log.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// Stats summarizes the capture log.
type Stats struct {
	Total          int            `json:"total"`
	Animals        int            `json:"animals"`
	FalsePositives int            `json:"false_positives"`
	ByLabel        map[string]int `json:"by_label"`
	LastTimestamp  string         `json:"last_timestamp,omitempty"`
}

// DatabaseHealth captures diagnostic information about the capture database.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalRows        int      `json:"total_rows"`
	Error            string   `json:"error,omitempty"`
}
