package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"edinsights/internal/adapters/config"
	"edinsights/internal/api/chat"
	"edinsights/internal/api/health"
	"edinsights/internal/metrics"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// ServerDeps gathers the handlers the HTTP server exposes.
type ServerDeps struct {
	Chat        *chat.Handler
	Health      *health.Handler
	ServiceName string
	Version     string
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer configures all routes: the chat API, health probes, Prometheus
// metrics, and the static chat UI.
func NewServer(cfg config.ServerConfig, deps ServerDeps, log *logger.Logger) *Server {
	router := mux.NewRouter()
	router.Use(requestMetrics(log))

	router.Handle("/api/chat", deps.Chat).Methods(http.MethodPost)

	router.HandleFunc("/healthz", deps.Health.HandleLiveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", deps.Health.HandleReadiness).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":%q,"version":%q}`, deps.ServiceName, deps.Version)
	}).Methods(http.MethodGet)

	// Static chat UI; the router falls through to it for everything else.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	port := cfg.Port
	if port <= 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("HTTP server configured on port %d (static dir %s)", port, cfg.StaticDir)

	return &Server{httpServer: httpServer, log: log}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the server within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// requestMetrics records latency and status for every request.
func requestMetrics(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			duration := time.Since(start)
			metrics.RecordHTTPRequest(route, r.Method, fmt.Sprintf("%d", rec.status), duration)
			log.Debugf("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
