package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
	"wildcam/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg.MQTT.Broker = "127.0.0.1"
	cfg.MQTT.Port = 1

	configPath := filepath.Join(base, "config.toml")
	data, err := toml.Marshal(*cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliTestEnv) seed(t *testing.T, events ...capturelog.Event) {
	t.Helper()
	store, err := capturelog.Open(e.cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	for _, evt := range events {
		testsupport.InsertEvent(t, store, evt)
	}
}

func TestCapturesJSONNewestFirst(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t,
		capturelog.Event{Timestamp: "2025-05-01 08:00:00", Classification: "Deer", Confidence: 0.8},
		capturelog.Event{Timestamp: "2025-05-01 09:00:00", Classification: capturelog.FalsePositiveLabel},
	)

	out, err := env.run(t, "captures", "--json")
	if err != nil {
		t.Fatalf("captures: %v", err)
	}
	var events []capturelog.Event
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(events) != 2 || events[0].Classification != capturelog.FalsePositiveLabel || events[1].Classification != "Deer" {
		t.Fatalf("unexpected order: %+v", events)
	}
}

func TestCapturesTable(t *testing.T) {
	env := setupCLITestEnv(t)
	temp := 4.5
	env.seed(t, capturelog.Event{
		Classification: "Fox",
		Confidence:     0.654,
		Temp:           &temp,
		VideoPath:      filepath.Join(env.cfg.Paths.CaptureDir, "vid_20250501_080000.mp4"),
	})

	out, err := env.run(t, "captures")
	if err != nil {
		t.Fatalf("captures: %v", err)
	}
	for _, want := range []string{"Fox", "65.4%", "4.5", "vid_20250501_080000.mp4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, env.cfg.Paths.CaptureDir) {
		t.Fatal("table should show the clip basename only")
	}
}

func TestCapturesEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "captures")
	if err != nil {
		t.Fatalf("captures: %v", err)
	}
	if !strings.Contains(out, "No captures recorded") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(testsupport.BaseDir(env.cfg), "fresh", "wildcam.toml")

	if _, err := env.run(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatal("sample config not written verbatim")
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal without --overwrite")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowRedactsPassword(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.MQTT.Password = "hunter2"
	data, err := toml.Marshal(*env.cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") || !strings.Contains(out, redacted) {
		t.Fatalf("password not redacted:\n%s", out)
	}
	if !strings.Contains(out, env.cfg.MQTT.TriggerTopic) || !strings.Contains(out, "# source: "+env.configPath) {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithModelFile(), testsupport.WithStubbedBinaries())
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	env.seed(t, capturelog.Event{Classification: "Cat", Confidence: 0.9})

	out, err := env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if report.Daemon.Running {
		t.Fatal("no daemon should be reported running")
	}
	if report.Captures == nil || report.Captures.Animals != 1 {
		t.Fatalf("unexpected capture stats: %+v", report.Captures)
	}
	for _, dep := range report.Dependencies {
		if !dep.Available {
			t.Errorf("stubbed dependency %s unavailable: %s", dep.Name, dep.Detail)
		}
	}
	var brokerChecked bool
	for _, check := range report.Checks {
		if check.Name == "MQTT broker" {
			brokerChecked = true
			if check.Passed {
				t.Error("port 1 should not be reachable")
			}
		}
	}
	if !brokerChecked {
		t.Fatal("expected broker check in report")
	}
}

func TestTestNotifyPostsToTopic(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/critters" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(srv.URL, "critters"))
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if hits.Load() != 1 || !strings.Contains(out, "Test notification sent") {
		t.Fatalf("expected one POST, got %d (%s)", hits.Load(), out)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "not configured") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestBuildTriggerPayloadOnlySetFlags(t *testing.T) {
	cmd := newTriggerCommand(newCommandContext(new(string)))
	if err := cmd.ParseFlags([]string{"--temp", "7.5", "--light", "1"}); err != nil {
		t.Fatal(err)
	}
	payload := buildTriggerPayload(cmd, triggerFlags{temp: 7.5, lightState: 1})
	if payload.Temp == nil || *payload.Temp != 7.5 || payload.LightState == nil || *payload.LightState != 1 {
		t.Fatalf("expected temp and light: %+v", payload)
	}
	if payload.Humidity != nil || payload.Battery != nil {
		t.Fatalf("unset flags must stay absent: %+v", payload)
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Daemon", statusWarn, "not running", false)
	if strings.Contains(line, "\x1b[") {
		t.Fatal("plain output must not contain ANSI codes")
	}
	if !strings.Contains(line, "[WARN] not running") {
		t.Fatalf("unexpected line %q", line)
	}
	if colored := renderStatusLine("Daemon", statusOK, "", true); !strings.Contains(colored, "[OK]") {
		t.Fatalf("expected OK badge, got %q", colored)
	}
}
