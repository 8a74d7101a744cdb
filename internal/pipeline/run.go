package pipeline

import (
	"sync"
	"time"

	"wildcam/internal/classifier"
	"wildcam/internal/trigger"
)

// RunIDLayout formats run identifiers; artifact names embed them.
const RunIDLayout = "20060102_150405"

// Run is the state of one admitted trigger as it moves through the stages.
type Run struct {
	ID             string
	CorrelationID  string
	Payload        trigger.Payload
	Received       time.Time
	VideoPath      string
	FramePath      string
	Classification *classifier.Result
}

// RunIDSource hands out second-resolution run identifiers that strictly
// increase, so two runs inside the same second never share artifact names.
type RunIDSource struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewRunIDSource builds a source on the given clock; nil means time.Now.
func NewRunIDSource(now func() time.Time) *RunIDSource {
	if now == nil {
		now = time.Now
	}
	return &RunIDSource{now: now}
}

// Next returns the next identifier.
func (s *RunIDSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().In(time.Local).Truncate(time.Second)
	if !s.last.IsZero() && !t.After(s.last) {
		t = s.last.Add(time.Second)
	}
	s.last = t
	return t.Format(RunIDLayout)
}
