package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"wildcam/internal/config"
	"wildcam/internal/logging"
	"wildcam/internal/services"
)

// Backend reports raw detections for one frame.
type Backend interface {
	Detect(ctx context.Context, framePath string) ([]Detection, error)
}

// Classifier turns backend detections into a single Result.
type Classifier struct {
	backend Backend
	animals LabelSet
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Classifier around backend.
func New(backend Backend, labels []string, timeout time.Duration, logger *slog.Logger) *Classifier {
	return &Classifier{
		backend: backend,
		animals: NewLabelSet(labels),
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "classifier"),
	}
}

// NewFromConfig selects the backend named by cfg.Classifier.Backend.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Classifier, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "init", "config is nil", nil)
	}
	var backend Backend
	switch cfg.Classifier.Backend {
	case config.ClassifierBackendCommand:
		backend = CommandBackend{Binary: cfg.Classifier.Command, ModelPath: cfg.Classifier.ModelPath}
	case config.ClassifierBackendHTTP:
		backend = HTTPBackend{Endpoint: cfg.Classifier.Endpoint, Client: &http.Client{Timeout: cfg.ClassifierTimeout()}}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "classify", "init",
			fmt.Sprintf("unknown classifier backend %q", cfg.Classifier.Backend), nil)
	}
	return New(backend, cfg.Classifier.AnimalLabels, cfg.ClassifierTimeout(), logger), nil
}

// CheckArtifact verifies that the model the command backend loads is present
// and readable. The http backend owns its model, so there is nothing to check.
func CheckArtifact(cfg *config.Config) error {
	if cfg == nil || cfg.Classifier.Backend != config.ClassifierBackendCommand {
		return nil
	}
	path := strings.TrimSpace(cfg.Classifier.ModelPath)
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "classify", "load model", "model artifact unavailable: "+path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "classify", "load model", "model path is a directory: "+path, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "classify", "load model", "model artifact unreadable: "+path, err)
	}
	return f.Close()
}

// Classify never fails: any backend error is logged and the empty result is
// returned so the run is still recorded.
func (c *Classifier) Classify(ctx context.Context, framePath string) Result {
	if c == nil || c.backend == nil {
		return Empty()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	detections, err := c.backend.Detect(ctx, framePath)
	if err != nil {
		hint := "check the detector and model configuration"
		if errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			hint = "raise classifier.timeout_seconds or use a smaller model"
		}
		logging.WarnWithContext(logger, "classification failed; recording as false positive", "classify_failed",
			logging.Error(err),
			logging.String("frame", framePath),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "run is logged without an animal label"),
		)
		return Empty()
	}

	result := Select(detections, c.animals)
	logger.Debug("frame classified",
		logging.Int("detections", len(detections)),
		logging.String("label", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result
}
