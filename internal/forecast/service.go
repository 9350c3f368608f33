// Package forecast serves multi-day hazard forecasts for a point. Upstream
// series are aggregated and labeled by the domain forecast tables, scored by
// the hazard model, and cached per rounded coordinate.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/hazard-engine/internal/cache"
	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/observability"
)

var (
	// ErrInvalidLocation is returned for coordinates outside the valid range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrUnavailable is returned by a Source that is shedding load or
	// refusing calls after repeated upstream failures.
	ErrUnavailable = errors.New("forecast upstream unavailable")
)

const cachePrefix = "forecast"

// Source fetches the raw daily and hourly series for a point.
type Source interface {
	Forecast(ctx context.Context, lat, lon float64) (domain.ForecastInput, error)
}

// ReadingStore provides the latest stored reading per location, used to
// pick the river discharge for the forecast point.
type ReadingStore interface {
	LatestPerLocation(ctx context.Context) ([]domain.RawReading, error)
}

// Predictor scores a forecast day with the hazard model.
type Predictor interface {
	Predict(r domain.NormalizedReading, labels domain.LabelSet) domain.Hazard
}

// Service builds and caches forecasts.
type Service struct {
	source    Source
	store     ReadingStore
	predictor Predictor
	cache     cache.Cache
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService wires a forecast service. store may be nil, in which case the
// default river discharge is used for every point.
func NewService(source Source, store ReadingStore, predictor Predictor, c cache.Cache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		source:    source,
		store:     store,
		predictor: predictor,
		cache:     c,
		metrics:   metrics,
		logger:    logger,
	}
}

// Days returns the per-day assessment for a point, from cache when a fresh
// entry exists.
func (s *Service) Days(ctx context.Context, lat, lon float64) ([]domain.ForecastDay, error) {
	if !domain.ValidLocation(lat, lon) {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidLocation, lat, lon)
	}

	key := cache.CoordKey(cachePrefix, lat, lon)
	if days, ok := s.cached(ctx, key); ok {
		return days, nil
	}

	in, err := s.source.Forecast(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	days := domain.BuildForecastDays(in, s.riverNear(ctx, lat, lon))
	for i := range days {
		days[i].MLHazard = s.predictor.Predict(days[i].Reading, days[i].LabelSet)
	}

	s.put(ctx, key, days)
	return days, nil
}

// Summary condenses the forecast for a point.
func (s *Service) Summary(ctx context.Context, lat, lon float64) (domain.ForecastSummary, error) {
	days, err := s.Days(ctx, lat, lon)
	if err != nil {
		return domain.ForecastSummary{}, err
	}
	return domain.SummarizeForecast(days), nil
}

func (s *Service) cached(ctx context.Context, key string) ([]domain.ForecastDay, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("forecast cache read failed", "error", err, "key", key)
		return nil, false
	}
	if !ok {
		s.countCache("miss")
		return nil, false
	}

	var days []domain.ForecastDay
	if err := json.Unmarshal(b, &days); err != nil {
		s.logger.Warn("discarding undecodable forecast cache entry", "error", err, "key", key)
		s.countCache("miss")
		return nil, false
	}
	s.countCache("hit")
	return days, true
}

func (s *Service) put(ctx context.Context, key string, days []domain.ForecastDay) {
	b, err := json.Marshal(days)
	if err != nil {
		s.logger.Warn("encode forecast for cache", "error", err, "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, b); err != nil {
		s.logger.Warn("forecast cache write failed", "error", err, "key", key)
	}
}

// riverNear returns the river discharge of the nearest stored location, or
// NaN when there is none or it carries no positive discharge.
func (s *Service) riverNear(ctx context.Context, lat, lon float64) float64 {
	if s.store == nil {
		return math.NaN()
	}
	readings, err := s.store.LatestPerLocation(ctx)
	if err != nil {
		s.logger.Warn("river discharge lookup failed, using default", "error", err)
		return math.NaN()
	}

	var nearest *domain.RawReading
	best := math.Inf(1)
	for i := range readings {
		if d := domain.HaversineKm(lat, lon, readings[i].Lat, readings[i].Lon); d < best {
			best = d
			nearest = &readings[i]
		}
	}
	if nearest == nil {
		return math.NaN()
	}
	river := domain.Normalize(*nearest).RiverDischarge
	if river <= 0 {
		return math.NaN()
	}
	s.logger.Debug("forecast river discharge from stored reading",
		"location", nearest.Location,
		"distance_km", best,
		"river_discharge", river,
	)
	return river
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.ForecastCache.WithLabelValues(result).Inc()
	}
}
