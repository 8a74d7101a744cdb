package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"wildcam/internal/capturelog"
	"wildcam/internal/classifier"
	"wildcam/internal/config"
	"wildcam/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelArtifact verifies the classifier model is loadable. The http
// backend owns its model, so the check passes without touching disk.
func CheckModelArtifact(cfg *config.Config) Result {
	const name = "Classifier model"
	if cfg.Classifier.Backend != config.ClassifierBackendCommand {
		return Result{Name: name, Passed: true, Detail: "served by " + cfg.Classifier.Backend + " backend"}
	}
	if err := classifier.CheckArtifact(cfg); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Classifier.ModelPath}
}

// CheckDatabase inspects the capture database without creating it.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Capture database"
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first start)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	store, err := capturelog.OpenReadOnly(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !health.IntegrityCheck || len(health.MissingColumns) > 0 {
		detail := "integrity check failed"
		if len(health.MissingColumns) > 0 {
			detail = "missing columns: " + strings.Join(health.MissingColumns, ", ")
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", path, detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d captures, schema v%d)", path, health.TotalRows, health.SchemaVersion)}
}

// CheckClassifierEndpoint verifies the inference server answers HTTP.
func CheckClassifierEndpoint(ctx context.Context, endpoint string) Result {
	const name = "Classifier endpoint"

	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", summarizeNetError(err))}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckBroker verifies a TCP connection to the MQTT broker can be opened.
func CheckBroker(ctx context.Context, cfg *config.Config) Result {
	const name = "MQTT broker"

	host := strings.TrimSpace(cfg.MQTT.Broker)
	if host == "" {
		return Result{Name: name, Detail: "missing broker host"}
	}
	addr := net.JoinHostPort(host, strconv.Itoa(cfg.MQTT.Port))

	dialer := net.Dialer{Timeout: 3 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unreachable: %s)", addr, summarizeNetError(err))}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: addr + " (reachable)"}
}

// CheckNtfy reports whether push notifications are configured.
func CheckNtfy(cfg *config.Config) Result {
	const name = "Notifications"
	endpoint := cfg.NtfyEndpoint()
	if endpoint == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled (no ntfy topic)"}
	}
	return Result{Name: name, Passed: true, Detail: endpoint}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "rpicam-vid",
			Command:     cfg.Capture.RecorderBinary,
			Description: "Required for video capture",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Capture.FFmpegBinary,
			Description: "Required for remux and frame extraction",
		},
	}
	if cfg.Classifier.Backend == config.ClassifierBackendCommand {
		requirements = append(requirements, deps.Requirement{
			Name:        "Classifier",
			Command:     cfg.Classifier.Command,
			Description: "Required for frame classification",
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
