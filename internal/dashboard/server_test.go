package dashboard_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
	"wildcam/internal/dashboard"
	"wildcam/internal/logging"
	"wildcam/internal/pipeline"
	"wildcam/internal/testsupport"
)

type fixedStats pipeline.Stats

func (f fixedStats) Stats() pipeline.Stats { return pipeline.Stats(f) }

func newServer(t *testing.T, opts ...dashboard.Option) (*dashboard.Server, *capturelog.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv, err := dashboard.New(cfg, store, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("dashboard.New: %v", err)
	}
	return srv, store, cfg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexListsAllRowsNewestFirst(t *testing.T) {
	srv, store, cfg := newServer(t)
	testsupport.InsertEvent(t, store, capturelog.Event{
		Timestamp:      "2025-03-01 10:00:00",
		Classification: "Cat",
		Confidence:     0.91,
		VideoPath:      filepath.Join(cfg.Paths.CaptureDir, "vid_20250301_100000.mp4"),
	})
	testsupport.InsertEvent(t, store, capturelog.Event{
		Timestamp:      "2025-03-01 11:00:00",
		Classification: capturelog.FalsePositiveLabel,
		VideoPath:      filepath.Join(cfg.Paths.CaptureDir, "vid_20250301_110000.mp4"),
	})

	rec := get(t, srv.Handler(), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body := rec.Body.String()
	newer := strings.Index(body, "vid_20250301_110000.mp4")
	older := strings.Index(body, "vid_20250301_100000.mp4")
	if newer < 0 || older < 0 {
		t.Fatalf("expected both captures in listing:\n%s", body)
	}
	if newer > older {
		t.Fatal("expected newest capture listed first")
	}
	if !strings.Contains(body, `href="/captures/vid_20250301_100000.mp4"`) {
		t.Fatal("expected basename link to clip")
	}
	if strings.Contains(body, cfg.Paths.CaptureDir) {
		t.Fatal("listing leaked the capture directory path")
	}
	if !strings.Contains(body, "False Positive") || !strings.Contains(body, "91.0%") {
		t.Fatalf("listing missing classification details:\n%s", body)
	}
}

func TestIndexEmptyLog(t *testing.T) {
	srv, _, _ := newServer(t)
	rec := get(t, srv.Handler(), "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No captures recorded yet") {
		t.Fatalf("unexpected empty listing: %d %s", rec.Code, rec.Body.String())
	}
}

func TestServeCaptureByBasename(t *testing.T) {
	srv, _, cfg := newServer(t)
	clip := filepath.Join(cfg.Paths.CaptureDir, "vid_20250301_100000.mp4")
	testsupport.WriteFile(t, clip, 64)

	rec := get(t, srv.Handler(), "/captures/vid_20250301_100000.mp4")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.Len() != 64 {
		t.Fatalf("expected 64 bytes, got %d", rec.Body.Len())
	}
}

func TestServeCaptureRejectsEscapes(t *testing.T) {
	srv, _, cfg := newServer(t)
	base := testsupport.BaseDir(cfg)
	if err := os.WriteFile(filepath.Join(base, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Paths.CaptureDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, target := range []string{
		"/captures/..",
		"/captures/../secret.txt",
		"/captures/..%2Fsecret.txt",
		"/captures/%2Fetc%2Fpasswd",
		"/captures/nested",
		"/captures/missing.mp4",
		"/captures/",
	} {
		rec := get(t, srv.Handler(), target)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret") {
			t.Fatalf("%s: leaked file contents", target)
		}
	}
}

func TestAPICapturesHonorsLimit(t *testing.T) {
	srv, store, _ := newServer(t)
	for range 3 {
		testsupport.InsertEvent(t, store, capturelog.Event{Classification: "Dog", Confidence: 0.7})
	}

	rec := get(t, srv.Handler(), "/api/captures?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp dashboard.CapturesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Captures) != 2 || resp.Captures[0].ID != 3 || resp.Captures[1].ID != 2 {
		t.Fatalf("unexpected captures: %+v", resp.Captures)
	}

	if rec := get(t, srv.Handler(), "/api/captures?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestAPICapturesEmptyIsArray(t *testing.T) {
	srv, _, _ := newServer(t)
	rec := get(t, srv.Handler(), "/api/captures")
	if !strings.Contains(rec.Body.String(), `"captures": []`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestAPIStatusIncludesWorkerWhenEmbedded(t *testing.T) {
	srv, store, _ := newServer(t, dashboard.WithWorker(fixedStats{Admitted: 2, Dropped: 5, State: "idle"}))
	testsupport.InsertEvent(t, store, capturelog.Event{Classification: "Fox", Confidence: 0.8})

	rec := get(t, srv.Handler(), "/api/status")
	var resp dashboard.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Database.TableExists || resp.Database.TotalRows != 1 {
		t.Fatalf("unexpected database health: %+v", resp.Database)
	}
	if resp.Captures.Animals != 1 {
		t.Fatalf("unexpected capture stats: %+v", resp.Captures)
	}
	if resp.Worker == nil || resp.Worker.Dropped != 5 || resp.Worker.Admitted != 2 {
		t.Fatalf("unexpected worker stats: %+v", resp.Worker)
	}

	standalone, _, _ := newServer(t)
	rec = get(t, standalone.Handler(), "/api/status")
	if strings.Contains(rec.Body.String(), `"worker"`) {
		t.Fatal("standalone viewer should not report worker stats")
	}
}

func TestStartServesHealthz(t *testing.T) {
	srv, _, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}
}
