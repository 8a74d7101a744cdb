package preflight

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
	"wildcam/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckModelArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckModelArtifact(cfg); result.Passed {
		t.Fatal("expected failure without a model file")
	}

	cfg = testsupport.NewConfig(t, testsupport.WithModelFile())
	if result := CheckModelArtifact(cfg); !result.Passed {
		t.Fatalf("expected pass with a model file, got: %s", result.Detail)
	}

	cfg = testsupport.NewConfig(t)
	cfg.Classifier.Backend = config.ClassifierBackendHTTP
	if result := CheckModelArtifact(cfg); !result.Passed {
		t.Fatalf("http backend should not need a local model, got: %s", result.Detail)
	}
}

func TestCheckDatabase_MissingIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wildlife_log.db")
	result := CheckDatabase(context.Background(), path)
	if !result.Passed {
		t.Fatalf("missing database should pass, got: %s", result.Detail)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("check must not create the database")
	}
}

func TestCheckDatabase_ReportsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.InsertEvent(t, store, capturelog.Event{Classification: "Cat", Confidence: 0.9})

	result := CheckDatabase(context.Background(), cfg.Paths.DatabasePath)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 captures") {
		t.Fatalf("expected row count in detail, got: %s", result.Detail)
	}
}

func TestCheckDatabase_NotSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(path, []byte("definitely not a sqlite database file, just text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDatabase(context.Background(), path); result.Passed {
		t.Fatal("expected failure for a non-sqlite file")
	}
}

func TestCheckClassifierEndpoint(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ok.Close()
	if result := CheckClassifierEndpoint(context.Background(), ok.URL); !result.Passed {
		t.Fatalf("any non-5xx answer should pass, got: %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if result := CheckClassifierEndpoint(context.Background(), broken.URL); result.Passed {
		t.Fatal("expected failure on 5xx")
	}

	if result := CheckClassifierEndpoint(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckBroker(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)

	cfg := testsupport.NewConfig(t)
	cfg.MQTT.Broker = "127.0.0.1"
	cfg.MQTT.Port = addr.Port
	if result := CheckBroker(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected reachable broker, got: %s", result.Detail)
	}

	_ = listener.Close()
	result := CheckBroker(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure once the listener is closed")
	}
	if !strings.Contains(result.Detail, strconv.Itoa(addr.Port)) {
		t.Fatalf("expected address in detail, got: %s", result.Detail)
	}
}

func TestCheckNtfy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckNtfy(cfg); !result.Passed || !strings.HasPrefix(result.Detail, "Disabled") {
		t.Fatalf("unexpected disabled result: %+v", result)
	}
	cfg = testsupport.NewConfig(t, testsupport.WithNtfyTopic("https://ntfy.example", "critters"))
	if result := CheckNtfy(cfg); result.Detail != "https://ntfy.example/critters" {
		t.Fatalf("unexpected endpoint detail: %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected recorder, ffmpeg and classifier, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Available {
			t.Errorf("%s unavailable: %s", s.Name, s.Detail)
		}
	}

	cfg.Classifier.Backend = config.ClassifierBackendHTTP
	if statuses := CheckSystemDeps(cfg); len(statuses) != 2 {
		t.Fatalf("http backend needs no classifier binary, got %d statuses", len(statuses))
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_IncludesEndpointForHTTPBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	base := len(RunAll(context.Background(), cfg))

	cfg.Classifier.Backend = config.ClassifierBackendHTTP
	cfg.Classifier.Endpoint = "http://127.0.0.1:1"
	results := RunAll(context.Background(), cfg)
	if len(results) != base+1 {
		t.Fatalf("expected one extra check, got %d vs %d", len(results), base)
	}
	if !Failed(results) {
		t.Fatal("expected unreachable endpoint to fail the run")
	}
}
