package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"wildcam/internal/logging"
	"wildcam/internal/services"
	"wildcam/internal/trigger"
)

// Executor runs one admitted trigger. *Pipeline implements it.
type Executor interface {
	Execute(ctx context.Context, payload trigger.Payload) Outcome
}

// Stats are the worker's counters since start.
type Stats struct {
	Received  uint64 `json:"received"`
	Admitted  uint64 `json:"admitted"`
	Dropped   uint64 `json:"dropped"`
	Malformed uint64 `json:"malformed"`
	Completed uint64 `json:"completed"`
	Aborted   uint64 `json:"aborted"`
	State     string `json:"state"`

	LastRunID    string    `json:"last_run_id,omitempty"`
	LastStage    Stage     `json:"last_stage,omitempty"`
	LastLabel    string    `json:"last_label,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	LastFinished time.Time `json:"last_finished,omitzero"`
}

type job struct {
	payload       trigger.Payload
	correlationID string
}

// Worker owns the single goroutine that executes runs. Triggers reach it
// through Submit, which hands over at most one payload at a time; the gate
// stays busy through the run and the cooldown that follows it.
type Worker struct {
	gate     *Gate
	exec     Executor
	cooldown time.Duration
	jobs     chan job
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewWorker wires a worker around gate and exec.
func NewWorker(gate *Gate, exec Executor, cooldown time.Duration, logger *slog.Logger) *Worker {
	if gate == nil {
		gate = &Gate{}
	}
	return &Worker{
		gate:     gate,
		exec:     exec,
		cooldown: cooldown,
		jobs:     make(chan job, 1),
		logger:   logging.NewComponentLogger(logger, "worker"),
	}
}

// HandleMessage decodes a raw trigger and submits it. Malformed triggers are
// counted and logged without touching the gate.
func (w *Worker) HandleMessage(ctx context.Context, raw []byte) {
	payload, err := trigger.Decode(raw)
	if err != nil {
		w.mu.Lock()
		w.stats.Malformed++
		w.mu.Unlock()
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "malformed trigger ignored", services.Kind(err),
			logging.Error(err),
			logging.Int("bytes", len(raw)),
			logging.String(logging.FieldErrorHint, "publish a JSON object on the trigger topic"),
			logging.String(logging.FieldImpact, "no capture for this trigger"),
		)
		return
	}
	w.Submit(payload)
}

// Submit admits payload when the gate is idle and returns true. When a run is
// in progress or cooling down the trigger is dropped and Submit returns false.
func (w *Worker) Submit(payload trigger.Payload) bool {
	w.mu.Lock()
	w.stats.Received++
	w.mu.Unlock()

	if !w.gate.TryAdmit() {
		w.mu.Lock()
		w.stats.Dropped++
		w.mu.Unlock()
		w.logger.Info("busy, trigger dropped", logging.String(logging.FieldEventType, "trigger_dropped"))
		return false
	}

	j := job{payload: payload, correlationID: uuid.NewString()}
	w.mu.Lock()
	w.stats.Admitted++
	w.mu.Unlock()
	w.logger.Info("trigger admitted",
		logging.String(logging.FieldEventType, "trigger_admitted"),
		logging.String(logging.FieldCorrelationID, j.correlationID),
	)
	// The gate guarantees the buffer is empty here.
	w.jobs <- j
	return true
}

// Run processes admitted triggers until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", logging.Duration("cooldown", w.cooldown))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return nil
		case j := <-w.jobs:
			w.process(ctx, j)
		}
	}
}

func (w *Worker) process(ctx context.Context, j job) {
	defer w.gate.Release()

	runCtx := services.WithRequestID(ctx, j.correlationID)
	out := w.execute(runCtx, j.payload)
	w.record(out)

	if w.cooldown <= 0 {
		return
	}
	logging.WithContext(runCtx, w.logger).Debug("cooling down", logging.Duration("cooldown", w.cooldown))
	timer := time.NewTimer(w.cooldown)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (w *Worker) execute(ctx context.Context, payload trigger.Payload) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("run panicked: %v", r)
			logging.ErrorWithContext(logging.WithContext(ctx, w.logger), "run panicked", "run_panic",
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report this as a bug"),
			)
			out = Outcome{Err: errors.Join(services.ErrTransient, err), Finished: time.Now()}
		}
	}()
	if w.exec == nil {
		return Outcome{Err: errors.New("no pipeline configured"), Finished: time.Now()}
	}
	return w.exec.Execute(ctx, payload)
}

func (w *Worker) record(out Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if out.Aborted() {
		w.stats.Aborted++
		w.stats.LastError = out.Err.Error()
	} else {
		w.stats.Completed++
		w.stats.LastError = ""
		if out.PersistErr != nil {
			w.stats.LastError = out.PersistErr.Error()
		}
	}
	w.stats.LastRunID = out.Run.ID
	w.stats.LastStage = out.Reached
	w.stats.LastLabel = ""
	if out.Run.Classification != nil {
		w.stats.LastLabel = out.Run.Classification.Label
	}
	w.stats.LastFinished = out.Finished
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.stats
	s.State = w.gate.State()
	return s
}
