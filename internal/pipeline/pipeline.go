package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wildcam/internal/capturelog"
	"wildcam/internal/classifier"
	"wildcam/internal/logging"
	"wildcam/internal/media"
	"wildcam/internal/services"
	"wildcam/internal/trigger"
)

// Stage names a step of a capture run.
type Stage string

const (
	StageCapture  Stage = "capture"
	StageExtract  Stage = "extract"
	StageClassify Stage = "classify"
	StagePersist  Stage = "persist"
	StageNotify   Stage = "notify"
)

// Classifier labels a still frame. It never fails.
type Classifier interface {
	Classify(ctx context.Context, framePath string) classifier.Result
}

// EventStore appends capture events.
type EventStore interface {
	Insert(ctx context.Context, evt capturelog.Event) (int64, error)
}

// Notifier announces animal detections.
type Notifier interface {
	NotifyAnimalDetected(ctx context.Context, label string, confidence float64, framePath string) error
}

// Dependencies are the collaborators a Pipeline drives.
type Dependencies struct {
	Media      media.Service
	Classifier Classifier
	Store      EventStore
	Notifier   Notifier
}

// Options tune a Pipeline.
type Options struct {
	DurationMS   int
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Outcome describes how a run ended. Err is set only when capture or extract
// failed and the run was abandoned; PersistErr and NotifyErr record failures
// the run survived.
type Outcome struct {
	Run        Run
	Reached    Stage
	EventID    int64
	Notified   bool
	Err        error
	PersistErr error
	NotifyErr  error
	Started    time.Time
	Finished   time.Time
}

// Aborted reports whether the run stopped before the persist stage.
func (o Outcome) Aborted() bool {
	return o.Err != nil
}

// Pipeline runs capture, extract, classify, persist and notify strictly in
// that order for one admitted trigger.
type Pipeline struct {
	deps         Dependencies
	durationMS   int
	storeTimeout time.Duration
	ids          *RunIDSource
	now          func() time.Time
	logger       *slog.Logger
}

// New constructs a Pipeline.
func New(deps Dependencies, opts Options, logger *slog.Logger) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		deps:         deps,
		durationMS:   opts.DurationMS,
		storeTimeout: opts.StoreTimeout,
		ids:          NewRunIDSource(now),
		now:          now,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Execute performs one run. It does not return an error: stage failures are
// logged and reported through the Outcome.
func (p *Pipeline) Execute(ctx context.Context, payload trigger.Payload) Outcome {
	run := Run{ID: p.ids.Next(), Payload: payload, Received: p.now()}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		run.CorrelationID = rid
	}
	ctx = services.WithRunID(ctx, run.ID)
	out := Outcome{Run: run, Started: run.Received}
	logger := logging.WithContext(ctx, p.logger)
	startAttrs := append([]logging.Attr{logging.String(logging.FieldEventType, "run_start")}, telemetryAttrs(payload)...)
	logger.Info("run started", logging.Args(startAttrs...)...)

	out.Reached = StageCapture
	video, err := p.deps.Media.CaptureVideo(services.WithStage(ctx, string(StageCapture)), run.ID, p.durationMS)
	if err != nil {
		return p.abort(ctx, out, StageCapture, markAs(err, services.ErrCaptureFailed, StageCapture))
	}
	out.Run.VideoPath = video

	out.Reached = StageExtract
	frame, err := p.deps.Media.ExtractStillFrame(services.WithStage(ctx, string(StageExtract)), run.ID, video)
	if err != nil {
		return p.abort(ctx, out, StageExtract, markAs(err, services.ErrExtractFailed, StageExtract))
	}
	out.Run.FramePath = frame

	out.Reached = StageClassify
	result := p.deps.Classifier.Classify(services.WithStage(ctx, string(StageClassify)), frame)
	out.Run.Classification = &result

	out.Reached = StagePersist
	out.EventID, out.PersistErr = p.persist(services.WithStage(ctx, string(StagePersist)), out.Run, result)

	if result.IsAnimal {
		out.Reached = StageNotify
		out.NotifyErr = p.notify(services.WithStage(ctx, string(StageNotify)), result, frame)
		out.Notified = out.NotifyErr == nil
	}

	out.Finished = p.now()
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("classification", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Int64("event_id", out.EventID),
		logging.Bool("notified", out.Notified),
		logging.Duration("elapsed", out.Finished.Sub(out.Started)),
	)
	return out
}

func (p *Pipeline) abort(ctx context.Context, out Outcome, stage Stage, err error) Outcome {
	out.Err = err
	out.Finished = p.now()
	hint := "check the camera connection and rpicam-vid"
	if stage == StageExtract {
		hint = "check ffmpeg and the recorded video"
	}
	logging.ErrorWithContext(logging.WithContext(services.WithStage(ctx, string(stage)), p.logger),
		"run aborted", services.Kind(err),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String("video_path", out.Run.VideoPath),
	)
	return out
}

func (p *Pipeline) persist(ctx context.Context, run Run, result classifier.Result) (int64, error) {
	if p.deps.Store == nil {
		return 0, services.Wrap(services.ErrPersistFailed, string(StagePersist), "insert", "no capture store configured", nil)
	}
	evt := capturelog.Event{
		Timestamp:      capturelog.FormatTimestamp(p.now()),
		Classification: result.Label,
		Confidence:     result.Confidence,
		VideoPath:      run.VideoPath,
		Temp:           run.Payload.Temp,
		Humidity:       run.Payload.Humidity,
		Battery:        run.Payload.Battery,
		LightState:     run.Payload.LightState,
	}
	storeCtx := ctx
	if p.storeTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, p.storeTimeout)
		defer cancel()
	}
	id, err := p.deps.Store.Insert(storeCtx, evt)
	if err != nil {
		err = services.Wrap(services.ErrPersistFailed, string(StagePersist), "insert", "capture event not recorded", err)
		logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "persist failed", "persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the capture database path and disk space"),
			logging.String("video_path", run.VideoPath),
		)
		return 0, err
	}
	return id, nil
}

func (p *Pipeline) notify(ctx context.Context, result classifier.Result, framePath string) error {
	if p.deps.Notifier == nil {
		return nil
	}
	err := p.deps.Notifier.NotifyAnimalDetected(ctx, result.Label, result.Confidence, framePath)
	if err == nil {
		return nil
	}
	err = markAs(err, services.ErrNotifyFailed, StageNotify)
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "notification failed", "notify_failed",
		logging.Error(err),
		logging.String("label", result.Label),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "detection is recorded but no push was sent"),
	)
	return err
}

func markAs(err, marker error, stage Stage) error {
	if errors.Is(err, marker) {
		return err
	}
	return services.Wrap(marker, string(stage), "", "", err)
}

func telemetryAttrs(p trigger.Payload) []logging.Attr {
	attrs := make([]logging.Attr, 0, 5)
	if p.Temp != nil {
		attrs = append(attrs, logging.Float64("temp", *p.Temp))
	}
	if p.Humidity != nil {
		attrs = append(attrs, logging.Float64("humidity", *p.Humidity))
	}
	if p.Battery != nil {
		attrs = append(attrs, logging.Int64("battery", *p.Battery))
	}
	if p.LightState != nil {
		attrs = append(attrs, logging.Int64("light_state", *p.LightState))
	}
	if len(p.Ignored) > 0 {
		attrs = append(attrs, logging.String("ignored_fields", strings.Join(p.Ignored, ",")))
	}
	return attrs
}
