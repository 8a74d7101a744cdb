package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"wildcam/internal/capturelog"
	"wildcam/internal/classifier"
	"wildcam/internal/config"
	"wildcam/internal/daemon"
	"wildcam/internal/dashboard"
	"wildcam/internal/deps"
	"wildcam/internal/logging"
	"wildcam/internal/media"
	"wildcam/internal/notifications"
	"wildcam/internal/pipeline"
	"wildcam/internal/preflight"
	"wildcam/internal/trigger"
)

// PIDFileName is written to the log directory while the daemon runs.
const PIDFileName = "wildcam.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel  string
	LogFormat string
}

// Run starts the wildcam daemon and blocks until SIGINT/SIGTERM or cmdCtx ends.
// A missing classifier model or an unusable capture database is fatal: Run
// returns before any trigger is accepted.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		logCfg.Logging.Level = level
	}
	if format := strings.TrimSpace(opts.LogFormat); format != "" {
		logCfg.Logging.Format = format
	}
	logger, err := logging.NewFromConfig(&logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("ensure directories", logging.Error(err))
		return err
	}
	logDependencySnapshot(logger, cfg)

	if err := classifier.CheckArtifact(cfg); err != nil {
		logging.ErrorWithContext(logger, "classifier model unavailable", "model_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set classifier.model_path to a readable model file"),
			logging.String(logging.FieldImpact, "daemon not started"),
		)
		return err
	}

	store, err := capturelog.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open capture database", "store_init_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.database_path and its directory permissions"),
			logging.String(logging.FieldImpact, "daemon not started"),
		)
		return err
	}
	defer store.Close()

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := build(cfg, store, logger)
	if err != nil {
		return err
	}
	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running instance and the MQTT settings"),
		)
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("wildcam daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// build wires media, classifier, notifier, pipeline, and worker into a daemon.
func build(cfg *config.Config, store *capturelog.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	cls, err := classifier.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier := notifications.NewService(cfg)
	if !notifications.Enabled(notifier) {
		logger.Info("notifications disabled", logging.String(logging.FieldEventType, "notifications_disabled"))
	}

	p := pipeline.New(pipeline.Dependencies{
		Media:      media.NewCLI(cfg, logger),
		Classifier: cls,
		Store:      store,
		Notifier:   notifier,
	}, pipeline.Options{
		DurationMS:   cfg.Capture.DurationMS,
		StoreTimeout: cfg.StoreTimeout(),
	}, logger)

	worker := pipeline.NewWorker(&pipeline.Gate{}, p, cfg.Cooldown(), logger)
	parts := daemon.Components{
		Worker:     worker,
		Subscriber: trigger.NewSubscriber(cfg, worker.HandleMessage, logger),
	}
	if cfg.Dashboard.Enabled {
		viewer, err := dashboard.New(cfg, store, logger, dashboard.WithWorker(worker))
		if err != nil {
			return nil, err
		}
		parts.Viewer = viewer
	}
	return daemon.New(cfg, parts, logger)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []any{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("classifier_backend", cfg.Classifier.Backend),
		logging.Bool("ntfy_enabled", cfg.NtfyEndpoint() != ""),
		logging.String("broker", cfg.BrokerURL()),
	}
	statuses := preflight.CheckSystemDeps(cfg)
	attrs = append(attrs, logging.Bool("dependencies_complete", !deps.AnyMissing(statuses)))
	for _, status := range statuses {
		key := strings.ToLower(strings.ReplaceAll(status.Name, "-", "_"))
		attrs = append(attrs, logging.Bool(key+"_available", status.Available))
		if !status.Available {
			logger.Warn("external dependency missing",
				logging.String("dependency", status.Name),
				logging.String("command", status.Command),
				logging.String(logging.FieldEventType, "dependency_missing"),
				logging.String(logging.FieldErrorHint, "install "+status.Command+" or fix its path in the config"),
				logging.String(logging.FieldImpact, status.Description),
			)
		}
	}
	logger.Info("dependency snapshot", attrs...)
}
