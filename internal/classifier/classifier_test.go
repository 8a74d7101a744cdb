package classifier_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wildcam/internal/classifier"
	"wildcam/internal/config"
	"wildcam/internal/logging"
	"wildcam/internal/services"
	"wildcam/internal/testsupport"
)

type fakeBackend struct {
	detections []classifier.Detection
	err        error
	frames     []string
}

func (f *fakeBackend) Detect(_ context.Context, framePath string) ([]classifier.Detection, error) {
	f.frames = append(f.frames, framePath)
	return f.detections, f.err
}

func TestClassifyUsesBackendDetections(t *testing.T) {
	backend := &fakeBackend{detections: []classifier.Detection{{Label: "dog", Confidence: 0.4}, {Label: "cat", Confidence: 0.9}}}
	c := classifier.New(backend, config.DefaultAnimalLabels, time.Second, logging.NewNop())

	got := c.Classify(context.Background(), "/tmp/frame.jpg")
	if got != (classifier.Result{IsAnimal: true, Label: "Cat", Confidence: 0.9}) {
		t.Fatalf("unexpected result: %#v", got)
	}
	if len(backend.frames) != 1 || backend.frames[0] != "/tmp/frame.jpg" {
		t.Fatalf("unexpected frames: %v", backend.frames)
	}
}

func TestClassifyBackendErrorYieldsEmpty(t *testing.T) {
	backend := &fakeBackend{err: errors.New("model crashed")}
	c := classifier.New(backend, config.DefaultAnimalLabels, time.Second, logging.NewNop())

	if got := c.Classify(context.Background(), "/tmp/frame.jpg"); got != classifier.Empty() {
		t.Fatalf("expected empty result, got %#v", got)
	}
}

func TestCommandBackendParsesStdout(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := fmt.Sprintf("echo \"$@\" > %q\necho '{\"detections\":[{\"label\":\"bird\",\"confidence\":0.82}]}'\n", argsFile)
	bin := testsupport.StubBinary(t, dir, "detect", script)

	backend := classifier.CommandBackend{Binary: bin, ModelPath: "/models/yolo.pt"}
	detections, err := backend.Detect(context.Background(), "/frames/frame_1.jpg")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(detections) != 1 || detections[0].Label != "bird" || detections[0].Confidence != 0.82 {
		t.Fatalf("unexpected detections: %#v", detections)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if strings.TrimSpace(string(args)) != "--model /models/yolo.pt --image /frames/frame_1.jpg" {
		t.Fatalf("unexpected args: %q", args)
	}
}

func TestCommandBackendFailure(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.StubBinary(t, dir, "detect", "echo 'no model' >&2\nexit 3\n")

	_, err := classifier.CommandBackend{Binary: bin, ModelPath: "x"}.Detect(context.Background(), "frame.jpg")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no model") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCommandBackendInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	bin := testsupport.StubBinary(t, dir, "detect", "echo 'not json'\n")

	if _, err := (classifier.CommandBackend{Binary: bin}).Detect(context.Background(), "frame.jpg"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestHTTPBackendPostsMultipartFrame(t *testing.T) {
	framePath := filepath.Join(t.TempDir(), "frame_20250101_120000.jpg")
	if err := os.WriteFile(framePath, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var gotPath, gotBody, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotBody = string(data)
		gotName = header.Filename
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[{"label":"cat","confidence":0.91},{"label":"person","confidence":0.5}]}`))
	}))
	defer srv.Close()

	backend := classifier.HTTPBackend{Endpoint: srv.URL + "/", Client: srv.Client()}
	detections, err := backend.Detect(context.Background(), framePath)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if gotPath != "/predict" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody != "jpeg-bytes" || gotName != "frame_20250101_120000.jpg" {
		t.Fatalf("unexpected upload: %q %q", gotBody, gotName)
	}
	if len(detections) != 2 || detections[0].Label != "cat" {
		t.Fatalf("unexpected detections: %#v", detections)
	}
}

func TestHTTPBackendBadStatus(t *testing.T) {
	framePath := filepath.Join(t.TempDir(), "frame.jpg")
	if err := os.WriteFile(framePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := classifier.HTTPBackend{Endpoint: srv.URL}.Detect(context.Background(), framePath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestNewFromConfigSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Classifier.Backend = config.ClassifierBackendHTTP
	cfg.Classifier.Endpoint = "http://detector:8000"
	if _, err := classifier.NewFromConfig(cfg, logging.NewNop()); err != nil {
		t.Fatalf("NewFromConfig http failed: %v", err)
	}

	cfg.Classifier.Backend = "magic"
	if _, err := classifier.NewFromConfig(cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCheckArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := classifier.CheckArtifact(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing model error, got %v", err)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithModelFile())
	if err := classifier.CheckArtifact(cfg); err != nil {
		t.Fatalf("expected model to pass, got %v", err)
	}

	cfg.Classifier.Backend = config.ClassifierBackendHTTP
	cfg.Classifier.ModelPath = "/does/not/exist"
	if err := classifier.CheckArtifact(cfg); err != nil {
		t.Fatalf("http backend should skip model check, got %v", err)
	}
}
