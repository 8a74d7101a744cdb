package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
	"wildcam/internal/logging"
	"wildcam/internal/pipeline"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Reader is the read side of the capture log used by the viewer.
type Reader interface {
	List(ctx context.Context, limit int) ([]capturelog.Event, error)
	Stats(ctx context.Context) (capturelog.Stats, error)
	CheckHealth(ctx context.Context) (capturelog.DatabaseHealth, error)
}

// StatsSource reports worker counters when the viewer runs inside the daemon.
type StatsSource interface {
	Stats() pipeline.Stats
}

// Option customizes a Server.
type Option func(*Server)

// WithWorker exposes worker counters on /api/status.
func WithWorker(source StatsSource) Option {
	return func(s *Server) {
		s.worker = source
	}
}

// Server is the HTTP viewer over the capture log.
type Server struct {
	bind       string
	captureDir string
	store      Reader
	worker     StatsSource
	logger     *slog.Logger
	index      *template.Template
	started    time.Time

	router   *mux.Router
	listener net.Listener
	server   *http.Server
}

// New builds a viewer bound to cfg.Dashboard.Bind.
func New(cfg *config.Config, store Reader, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("dashboard requires config and store")
	}
	index, err := template.New("index.html.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	s := &Server{
		bind:       strings.TrimSpace(cfg.Dashboard.Bind),
		captureDir: cfg.Paths.CaptureDir,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "dashboard"),
		index:      index,
		started:    time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	// Keep dot segments intact so they reach the capture-name check instead
	// of being redirected.
	r.SkipClean(true)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/captures/{filename}", s.handleCapture).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/captures", s.handleCaptures).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("dashboard listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "dashboard_serve_failed"),
				logging.String(logging.FieldErrorHint, "check dashboard.bind"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("dashboard listening",
		logging.String(logging.FieldEventType, "dashboard_started"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
