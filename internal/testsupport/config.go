package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"wildcam/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CaptureDir = filepath.Join(base, "captures")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "wildlife_log.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Classifier.ModelPath = filepath.Join(base, "models", "model.pt")
	cfgVal.Dashboard.Bind = "127.0.0.1:0"
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Pipeline.CooldownSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic points notifications at baseURL/topic.
func WithNtfyTopic(baseURL, topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.BaseURL = baseURL
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithModelFile writes a placeholder model artifact at the configured path.
func WithModelFile() ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Classifier.ModelPath, 16)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default wildcam external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Capture.RecorderBinary, b.cfg.Capture.FFmpegBinary, b.cfg.Classifier.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			StubBinary(b.t, binDir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// StubBinary writes an executable shell script named name into dir and returns
// its path. body is appended after the shebang line.
func StubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CaptureDir)
}
