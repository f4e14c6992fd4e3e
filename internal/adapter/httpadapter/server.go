package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

// ArtifactProvider exposes the latest run artifacts and the readiness of the
// pipeline that produces them.
type ArtifactProvider interface {
	sharedobs.ReadinessChecker
	Artifacts() (domain.Artifacts, bool)
}

// DatasetStore is a persisted copy of the last published run. The server
// falls back to it for the table view and summary until the running pipeline
// has produced artifacts of its own.
type DatasetStore interface {
	Records(ctx context.Context) ([]domain.EnrichedRecord, error)
	LastRun(ctx context.Context) (domain.RunSummary, error)
}

// Server exposes health, readiness, metrics, and artifact HTTP endpoints.
type Server struct {
	httpServer *http.Server
	provider   ArtifactProvider
	store      DatasetStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// read-only /api routes.
func NewServer(addr string, provider ArtifactProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(provider))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/dataset", s.handleDataset)
	mux.HandleFunc("GET /api/heatmap", s.artifact(func(a domain.Artifacts) any { return a.Heat }))
	mux.HandleFunc("GET /api/top", s.artifact(func(a domain.Artifacts) any { return a.TopIncidents }))
	mux.HandleFunc("GET /api/chart", s.artifact(func(a domain.Artifacts) any { return a.Chart }))
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	return s
}

// WithStore sets the store read by /api/dataset and /api/summary before the
// first run completes.
func (s *Server) WithStore(store DatasetStore) *Server {
	s.store = store
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
