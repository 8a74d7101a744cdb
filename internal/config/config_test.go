package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"wildcam/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCaptures := filepath.Join(tempHome, ".local", "share", "wildcam", "captures")
	if cfg.Paths.CaptureDir != wantCaptures {
		t.Fatalf("unexpected capture dir: got %q want %q", cfg.Paths.CaptureDir, wantCaptures)
	}
	if cfg.Paths.DatabasePath != filepath.Join(tempHome, ".local", "share", "wildcam", "wildlife_log.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if cfg.MQTT.TriggerTopic != "WILDLIFE/TRIGGER" {
		t.Fatalf("unexpected trigger topic: %q", cfg.MQTT.TriggerTopic)
	}
	if cfg.Capture.DurationMS != 10000 {
		t.Fatalf("unexpected video duration: %d", cfg.Capture.DurationMS)
	}
	if cfg.Pipeline.CooldownSeconds != 10 {
		t.Fatalf("unexpected cooldown: %d", cfg.Pipeline.CooldownSeconds)
	}
	if len(cfg.Classifier.AnimalLabels) != len(config.DefaultAnimalLabels) {
		t.Fatalf("unexpected animal labels: %v", cfg.Classifier.AnimalLabels)
	}
	if cfg.NtfyEndpoint() != "" {
		t.Fatalf("expected notifications disabled by default, got %q", cfg.NtfyEndpoint())
	}
	if cfg.BrokerURL() != "tcp://localhost:1883" {
		t.Fatalf("unexpected broker url: %q", cfg.BrokerURL())
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "wildcam.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"capture_dir":   "~/clips",
			"database_path": "~/db/log.db",
		},
		"mqtt": map[string]any{
			"broker": "broker.local",
			"port":   8883,
		},
		"classifier": map[string]any{
			"animal_labels": []string{" Fox ", "fox", "DEER", ""},
		},
		"notifications": map[string]any{
			"ntfy_topic": "backyard",
			"base_url":   "https://ntfy.example.com/",
		},
		"pipeline": map[string]any{
			"cooldown_seconds": 3,
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CaptureDir != filepath.Join(tempHome, "clips") {
		t.Fatalf("unexpected capture dir: %q", cfg.Paths.CaptureDir)
	}
	if got := strings.Join(cfg.Classifier.AnimalLabels, ","); got != "fox,deer" {
		t.Fatalf("expected normalized labels, got %q", got)
	}
	if cfg.NtfyEndpoint() != "https://ntfy.example.com/backyard" {
		t.Fatalf("unexpected ntfy endpoint: %q", cfg.NtfyEndpoint())
	}
	if cfg.BrokerURL() != "tcp://broker.local:8883" {
		t.Fatalf("unexpected broker url: %q", cfg.BrokerURL())
	}
	if cfg.Cooldown().Seconds() != 3 {
		t.Fatalf("unexpected cooldown: %s", cfg.Cooldown())
	}
}

func TestEnvironmentOverridesFileValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WILDCAM_NTFY_TOPIC", "from-env")
	t.Setenv("WILDCAM_ANIMAL_LABELS", "owl,Fox")
	t.Setenv("WILDCAM_COOLDOWN_SECONDS", "0")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "from-env" {
		t.Fatalf("expected env topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if got := strings.Join(cfg.Classifier.AnimalLabels, ","); got != "owl,fox" {
		t.Fatalf("unexpected labels from env: %q", got)
	}
	if cfg.Pipeline.CooldownSeconds != 0 {
		t.Fatalf("expected zero cooldown from env, got %d", cfg.Pipeline.CooldownSeconds)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty topic", func(c *config.Config) { c.MQTT.TriggerTopic = "" }, "mqtt.trigger_topic"},
		{"bad qos", func(c *config.Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"zero duration", func(c *config.Config) { c.Capture.DurationMS = 0 }, "capture.duration_ms"},
		{"unknown backend", func(c *config.Config) { c.Classifier.Backend = "onnx" }, "classifier.backend"},
		{"http without endpoint", func(c *config.Config) { c.Classifier.Backend = "http"; c.Classifier.Endpoint = "" }, "classifier.endpoint"},
		{"no labels", func(c *config.Config) { c.Classifier.AnimalLabels = nil }, "classifier.animal_labels"},
		{"negative cooldown", func(c *config.Config) { c.Pipeline.CooldownSeconds = -1 }, "pipeline.cooldown_seconds"},
		{"bad priority", func(c *config.Config) { c.Notifications.Priority = "loud" }, "notifications.priority"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.MQTT.TriggerTopic == "" || cfg.Capture.DurationMS == 0 {
		t.Fatalf("sample config missing core values: %#v", cfg)
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "trigger_topic") {
		t.Fatal("expected sample to contain trigger_topic")
	}
}
