package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	CaptureDir   string `toml:"capture_dir" env:"WILDCAM_CAPTURE_DIR"`
	DatabasePath string `toml:"database_path" env:"WILDCAM_DATABASE_PATH"`
	LogDir       string `toml:"log_dir" env:"WILDCAM_LOG_DIR"`
}

// MQTT contains the trigger broker connection settings.
type MQTT struct {
	Broker                string `toml:"broker" env:"WILDCAM_MQTT_BROKER"`
	Port                  int    `toml:"port" env:"WILDCAM_MQTT_PORT"`
	ClientID              string `toml:"client_id" env:"WILDCAM_MQTT_CLIENT_ID"`
	TriggerTopic          string `toml:"trigger_topic" env:"WILDCAM_TRIGGER_TOPIC"`
	QoS                   int    `toml:"qos"`
	Username              string `toml:"username" env:"WILDCAM_MQTT_USERNAME"`
	Password              string `toml:"password" env:"WILDCAM_MQTT_PASSWORD"`
	KeepAliveSeconds      int    `toml:"keepalive_seconds"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
}

// Capture contains camera recording and ffmpeg settings.
type Capture struct {
	DurationMS           int    `toml:"duration_ms" env:"WILDCAM_VIDEO_DURATION_MS"`
	Width                int    `toml:"width"`
	Height               int    `toml:"height"`
	RecorderBinary       string `toml:"recorder_binary"`
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	GraceSeconds         int    `toml:"grace_seconds"`
	FFmpegTimeoutSeconds int    `toml:"ffmpeg_timeout_seconds"`
}

// Classifier contains the frame classification backend settings.
type Classifier struct {
	Backend        string   `toml:"backend" env:"WILDCAM_CLASSIFIER_BACKEND"`
	Command        string   `toml:"command"`
	ModelPath      string   `toml:"model_path" env:"WILDCAM_MODEL_PATH"`
	Endpoint       string   `toml:"endpoint" env:"WILDCAM_CLASSIFIER_ENDPOINT"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	AnimalLabels   []string `toml:"animal_labels" env:"WILDCAM_ANIMAL_LABELS" envSeparator:","`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"WILDCAM_NTFY_TOPIC"`
	BaseURL        string `toml:"base_url" env:"WILDCAM_NTFY_BASE_URL"`
	RequestTimeout int    `toml:"request_timeout"`
	Priority       string `toml:"priority"`
}

// Pipeline contains trigger handling timing.
type Pipeline struct {
	CooldownSeconds     int `toml:"cooldown_seconds" env:"WILDCAM_COOLDOWN_SECONDS"`
	StoreTimeoutSeconds int `toml:"store_timeout_seconds"`
}

// Dashboard contains the read-only viewer settings.
type Dashboard struct {
	Enabled bool   `toml:"enabled" env:"WILDCAM_DASHBOARD_ENABLED"`
	Bind    string `toml:"bind" env:"WILDCAM_DASHBOARD_BIND"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"WILDCAM_LOG_FORMAT"`
	Level  string `toml:"level" env:"WILDCAM_LOG_LEVEL"`
}

// Config encapsulates all configuration values for wildcam.
//
// Configuration sections by subsystem:
//   - Paths: capture directory, database file, logs
//   - MQTT: broker address and trigger topic
//   - Capture: recording duration, resolution, external binaries
//   - Classifier: detection backend, model file, animal labels
//   - Notifications: ntfy push settings
//   - Pipeline: cooldown between runs
//   - Dashboard: read-only viewer
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	MQTT          MQTT          `toml:"mqtt"`
	Capture       Capture       `toml:"capture"`
	Classifier    Classifier    `toml:"classifier"`
	Notifications Notifications `toml:"notifications"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Dashboard     Dashboard     `toml:"dashboard"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// variables override file values. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wildcam.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CaptureDir, c.Paths.LogDir, filepath.Dir(c.Paths.DatabasePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BrokerURL returns the paho broker URL for the configured host and port.
func (c *Config) BrokerURL() string {
	broker := strings.TrimSpace(c.MQTT.Broker)
	if strings.Contains(broker, "://") {
		return broker
	}
	return fmt.Sprintf("tcp://%s:%d", broker, c.MQTT.Port)
}

// NtfyEndpoint returns the full publish URL for the configured topic, or an
// empty string when notifications are disabled.
func (c *Config) NtfyEndpoint() string {
	topic := strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return strings.TrimRight(c.Notifications.BaseURL, "/") + "/" + strings.TrimLeft(topic, "/")
}

// VideoDuration returns the configured recording length.
func (c *Config) VideoDuration() time.Duration {
	return time.Duration(c.Capture.DurationMS) * time.Millisecond
}

// CaptureTimeout bounds a single recording: the clip length plus a grace period
// for camera start-up and file finalization.
func (c *Config) CaptureTimeout() time.Duration {
	return c.VideoDuration() + time.Duration(c.Capture.GraceSeconds)*time.Second
}

// FFmpegTimeout bounds each remux or frame extraction.
func (c *Config) FFmpegTimeout() time.Duration {
	return time.Duration(c.Capture.FFmpegTimeoutSeconds) * time.Second
}

// ClassifierTimeout bounds a single classification call.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// Cooldown returns the mandatory delay between a finished run and the next admission.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Pipeline.CooldownSeconds) * time.Second
}

// StoreTimeout bounds a single capture log write.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Pipeline.StoreTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
