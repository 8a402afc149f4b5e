package server

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/exporter"
	"github.com/zgpcy/status-exporter/internal/logger"
)

//go:embed templates/index.html
var indexTemplate string

// HTTP server timeout constants
const (
	DefaultReadTimeout  = 15 * time.Second // Maximum duration for reading the entire request
	DefaultWriteTimeout = 15 * time.Second // Maximum duration before timing out writes of the response
	DefaultIdleTimeout  = 60 * time.Second // Maximum amount of time to wait for the next request
)

// StatusSource exposes the exporter state the probes and the index page
// report on.
type StatusSource interface {
	Ready() bool
	DomainStatus() []exporter.DomainStatus
}

// domainRow holds one refresh domain line for the index page
type domainRow struct {
	Name        string
	Interval    time.Duration
	StatusClass string
	StatusText  string
	LastSuccess string
}

// indexPageData holds template data for the index page
type indexPageData struct {
	StatusClass string
	StatusText  string
	Domains     []domainRow
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	status StatusSource
	logger *logger.Logger
}

// NewServer creates a new HTTP server. Metrics come from the given
// gatherer; a failed series read yields an invalid metric and the rest of
// the exposition is served anyway (promhttp.ContinueOnError).
func NewServer(cfg *config.Config, status StatusSource, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:      mux,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		status: status,
		logger: log,
	}

	// Register handlers
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      log,
		ErrorHandling: promhttp.ContinueOnError,
	}))

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleIndex serves a landing page with the per-domain refresh status
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		s.logger.Error("Failed to parse index template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := indexPageData{StatusClass: "not-ready", StatusText: "Not Ready"}
	if s.status.Ready() {
		data.StatusClass, data.StatusText = "ready", "Ready"
	}
	for _, d := range s.status.DomainStatus() {
		row := domainRow{
			Name:        d.Name,
			Interval:    d.Interval,
			StatusClass: "not-ready",
			StatusText:  "waiting",
			LastSuccess: "Never",
		}
		if d.Ready {
			row.StatusClass, row.StatusText = "ready", "ok"
		}
		if !d.LastSuccess.IsZero() {
			row.LastSuccess = d.LastSuccess.Format("2006-01-02 15:04:05 MST")
		}
		data.Domains = append(data.Domains, row)
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute index template", "error", err)
	}
}

// handleHealth handles health check requests (always returns 200 for liveness)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		s.logger.Error("Failed to write health response", "error", err)
	}
}

// handleReady handles readiness check requests: 200 once every configured
// domain has refreshed successfully at least once, 503 naming the domains
// still waiting otherwise
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var waiting []string
	for _, d := range s.status.DomainStatus() {
		if !d.Ready {
			waiting = append(waiting, d.Name)
		}
	}

	if len(waiting) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := fmt.Fprintf(w, `{"status":"not ready","waiting":"%s"}`, strings.Join(waiting, ",")); err != nil {
			s.logger.Error("Failed to write ready response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready"}`)); err != nil {
		s.logger.Error("Failed to write ready response", "error", err)
	}
}
