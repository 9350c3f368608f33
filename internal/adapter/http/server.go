// Package http exposes the health endpoints and the read API over the
// published risk zones, alerts and forecasts.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertQueries answers queries over the published snapshot.
type AlertQueries interface {
	Snapshot() (domain.Snapshot, bool)
	National(q domain.NationalQuery) ([]domain.Alert, int)
	Nearby(lat, lon, radiusKm float64) []domain.Alert
	All(q domain.AllQuery) domain.AllResult
	Latest(limit int) []domain.Alert
	Get(id string) (domain.Alert, error)
	Stats() domain.Statistics
}

// Forecaster builds point forecasts.
type Forecaster interface {
	Days(ctx context.Context, lat, lon float64) ([]domain.ForecastDay, error)
	Summary(ctx context.Context, lat, lon float64) (domain.ForecastSummary, error)
}

// PassTrigger starts a processing pass in the background.
type PassTrigger interface {
	Trigger() error
}

// Deps are the services behind the API. A nil Forecast disables the
// forecast routes.
type Deps struct {
	Alerts   AlertQueries
	Forecast Forecaster
	Trigger  PassTrigger
	Ready    sharedobs.ReadinessChecker
}

// Server exposes health, readiness, metrics, and the /api/v1 routes.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates the HTTP server.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      40 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/zones", s.handleZones)
	mux.HandleFunc("GET /api/v1/zones.kml", s.handleZonesKML)

	mux.HandleFunc("GET /api/v1/alerts/national", s.handleNational)
	mux.HandleFunc("GET /api/v1/alerts/nearby", s.handleNearby)
	mux.HandleFunc("GET /api/v1/alerts/all", s.handleAll)
	mux.HandleFunc("GET /api/v1/alerts/latest", s.handleLatest)
	mux.HandleFunc("GET /api/v1/alerts/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/v1/alerts/{id}", s.handleAlert)

	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/v1/forecast/summary", s.handleForecastSummary)

	mux.HandleFunc("POST /api/v1/system/trigger-processing", s.handleTrigger)

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
