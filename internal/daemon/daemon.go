package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"wildcam/internal/config"
	"wildcam/internal/logging"
	"wildcam/internal/pipeline"
)

// LockFileName is created in the log directory while a daemon runs.
const LockFileName = "wildcam.lock"

// Worker executes admitted triggers until its context ends.
type Worker interface {
	Run(ctx context.Context) error
	Stats() pipeline.Stats
}

// Subscriber feeds triggers to the worker.
type Subscriber interface {
	Start(ctx context.Context) error
	Stop()
	Connected() bool
}

// Viewer is the optional embedded dashboard.
type Viewer interface {
	Start(ctx context.Context) error
	Stop()
	Addr() string
}

// Components are the long-running parts the daemon drives.
type Components struct {
	Worker     Worker
	Subscriber Subscriber
	Viewer     Viewer
}

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	parts  Components

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	LockFilePath  string         `json:"lock_file_path"`
	DatabasePath  string         `json:"database_path"`
	BrokerURL     string         `json:"broker_url"`
	MQTTConnected bool           `json:"mqtt_connected"`
	DashboardAddr string         `json:"dashboard_addr,omitempty"`
	Worker        pipeline.Stats `json:"worker"`
}

// New constructs a daemon around the given components.
func New(cfg *config.Config, parts Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || parts.Worker == nil || parts.Subscriber == nil {
		return nil, errors.New("daemon requires config, worker, and trigger subscriber")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		parts:    parts,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, then starts the worker, the subscriber and,
// when configured, the dashboard.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another wildcam daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.parts.Worker.Run(runCtx); err != nil {
			d.logger.Error("worker exited", logging.Error(err),
				logging.String(logging.FieldEventType, "worker_exit"),
				logging.String(logging.FieldErrorHint, "restart the daemon"),
			)
		}
	}()

	if err := d.parts.Subscriber.Start(runCtx); err != nil {
		cancel()
		<-done
		_ = d.lock.Unlock()
		return fmt.Errorf("start trigger subscriber: %w", err)
	}

	if d.parts.Viewer != nil {
		if err := d.parts.Viewer.Start(runCtx); err != nil {
			d.logger.Warn("dashboard start failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "dashboard_start_failed"),
				logging.String(logging.FieldErrorHint, "check dashboard.bind or disable the dashboard"),
				logging.String(logging.FieldImpact, "captures are still recorded; the viewer is unavailable"),
			)
		}
	}

	d.cancel = cancel
	d.done = done
	d.running.Store(true)
	d.logger.Info("wildcam daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("trigger_topic", d.cfg.MQTT.TriggerTopic),
	)
	return nil
}

// Stop stops taking triggers, waits for the worker to exit, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.parts.Subscriber.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if d.parts.Viewer != nil {
		d.parts.Viewer.Stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("wildcam daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		DatabasePath:  d.cfg.Paths.DatabasePath,
		BrokerURL:     d.cfg.BrokerURL(),
		MQTTConnected: d.parts.Subscriber.Connected(),
		Worker:        d.parts.Worker.Stats(),
	}
	if d.parts.Viewer != nil {
		status.DashboardAddr = d.parts.Viewer.Addr()
	}
	return status
}
