package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/devrev/pairdb/tabletsim/internal/health"
	"github.com/devrev/pairdb/tabletsim/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServer serves the run's Prometheus metrics and, once the run has
// finished, its report
type MetricsServer struct {
	httpServer *http.Server
	logger     *zap.Logger

	mu      sync.RWMutex
	summary *report.Summary
	checker *health.HealthChecker
}

// MetricsServerConfig holds configuration for the metrics server
type MetricsServerConfig struct {
	Port int
	Path string
}

// NewMetricsServer creates a new metrics server exposing gatherer
func NewMetricsServer(cfg *MetricsServerConfig, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	ms := &MetricsServer{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", ms.healthHandler)
	mux.HandleFunc("/ready", ms.readyHandler)
	mux.HandleFunc("/report", ms.reportHandler)
	mux.HandleFunc("/health/checks", ms.checksHandler)

	return ms
}

// Handler returns the server's HTTP handler
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the metrics server
func (s *MetricsServer) Start() error {
	s.logger.Info("Starting metrics server", zap.String("addr", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server
func (s *MetricsServer) Stop() error {
	s.logger.Info("Stopping metrics server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	return nil
}

// SetSummary publishes the finished run; the server reports ready afterwards
func (s *MetricsServer) SetSummary(summary *report.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// SetHealthChecker exposes the checker's last results on /health/checks
func (s *MetricsServer) SetHealthChecker(checker *health.HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker = checker
}

func (s *MetricsServer) currentSummary() *report.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// healthHandler handles health check requests
func (s *MetricsServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// readyHandler reports ready once the run has finished
func (s *MetricsServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.currentSummary() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"not_ready","reason":"simulation_running"}`)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready"}`)
}

// reportHandler renders the report of the finished run as text
func (s *MetricsServer) reportHandler(w http.ResponseWriter, r *http.Request) {
	summary := s.currentSummary()
	if summary == nil {
		http.Error(w, "simulation still running", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.Render(w, summary); err != nil {
		s.logger.Error("Failed to render report", zap.Error(err))
	}
}

// checksHandler serves the cluster consistency checks
func (s *MetricsServer) checksHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checker := s.checker
	s.mu.RUnlock()

	if checker == nil {
		http.Error(w, "simulation still running", http.StatusServiceUnavailable)
		return
	}
	checker.Handler(w, r)
}
