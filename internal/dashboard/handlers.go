package dashboard

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wildcam/internal/capturelog"
	"wildcam/internal/logging"
	"wildcam/internal/pipeline"
)

var templateFuncs = template.FuncMap{
	"percent": func(v float64) string {
		return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
	},
	"optFloat": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatFloat(*v, 'f', 1, 64)
	},
	"optInt": func(v *int64) string {
		if v == nil {
			return "-"
		}
		return strconv.FormatInt(*v, 10)
	},
}

type indexView struct {
	Captures []capturelog.Event
	Stats    capturelog.Stats
}

// CapturesResponse is the /api/captures body.
type CapturesResponse struct {
	Captures []capturelog.Event `json:"captures"`
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	Database capturelog.DatabaseHealth `json:"database"`
	Captures capturelog.Stats          `json:"captures"`
	Worker   *pipeline.Stats           `json:"worker,omitempty"`
	Uptime   string                    `json:"uptime"`
	Error    string                    `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	captures, err := s.store.List(r.Context(), 0)
	if err != nil {
		s.serverError(w, "list captures", err)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.serverError(w, "capture stats", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, indexView{Captures: captures, Stats: stats}); err != nil {
		s.logger.Warn("render index failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "dashboard_render_failed"),
			logging.String(logging.FieldErrorHint, "client may have disconnected"),
		)
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if !validCaptureName(name) {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.captureDir, name)
	file, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), file)
}

// validCaptureName accepts a bare file name inside the capture directory.
func validCaptureName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return false
	}
	return true
}

func (s *Server) handleCaptures(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	captures, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.serverError(w, "list captures", err)
		return
	}
	if captures == nil {
		captures = []capturelog.Event{}
	}
	s.writeJSON(w, http.StatusOK, CapturesResponse{Captures: captures})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Uptime: time.Since(s.started).Round(time.Second).String()}
	health, err := s.store.CheckHealth(r.Context())
	resp.Database = health
	if err != nil {
		resp.Error = err.Error()
	}
	if stats, err := s.store.Stats(r.Context()); err == nil {
		resp.Captures = stats
	} else if resp.Error == "" {
		resp.Error = err.Error()
	}
	if s.worker != nil {
		stats := s.worker.Stats()
		resp.Worker = &stats
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "ok")
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Warn("dashboard request failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldEventType, "dashboard_request_failed"),
		logging.String(logging.FieldErrorHint, "check the capture database with wildcam status"),
	)
	s.writeError(w, http.StatusInternalServerError, "error reading the capture database")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
