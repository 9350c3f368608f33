package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/hazard-engine/internal/adapter/geojson"
	"github.com/couchcryptid/hazard-engine/internal/alerts"
	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/couchcryptid/hazard-engine/internal/forecast"
	"github.com/couchcryptid/hazard-engine/internal/pipeline"
)

const kmlContentType = "application/vnd.google-earth.kml+xml"

var errNoSnapshot = errors.New("no risk-zone snapshot has been published yet")

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.deps.Alerts.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errNoSnapshot)
		return
	}
	writeJSON(w, http.StatusOK, snap.FeatureCollection())
}

func (s *Server) handleZonesKML(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.deps.Alerts.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errNoSnapshot)
		return
	}
	w.Header().Set("Content-Type", kmlContentType)
	if err := geojson.WriteKML(w, snap); err != nil {
		s.logger.Error("render kml", "error", err, "snapshot_id", snap.ID)
	}
}

func (s *Server) handleNational(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 20, 1, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	nq := domain.NationalQuery{Limit: limit}
	if v := q.Get("severity"); v != "" {
		sev, ok := domain.ParseSeverity(v)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown severity %q", v))
			return
		}
		nq.Severity = sev
	}
	if nq.Category, err = categoryParam(q.Get("category")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	list, total := s.deps.Alerts.National(nq)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    list,
		"total":   total,
	})
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, ok, err := locationParams(q.Get("lat"), q.Get("lng"))
	if err == nil && !ok {
		err = errors.New("lat and lng are required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	radius, err := floatParam(q.Get("radius"), 0)
	if err != nil || radius < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid radius %q", q.Get("radius")))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    s.deps.Alerts.Nearby(lat, lon, radius),
	})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, hasLocation, err := locationParams(q.Get("lat"), q.Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := intParam(q.Get("limit"), 50, 1, 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	category, err := categoryParam(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := s.deps.Alerts.All(domain.AllQuery{
		Lat:         lat,
		Lon:         lon,
		HasLocation: hasLocation,
		Limit:       limit,
		Category:    category,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    res,
		"total":   res.Total,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 10, 1, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	all := s.deps.Alerts.Latest(0)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    all[:min(limit, len(all))],
		"total":   len(all),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"statistics": s.deps.Alerts.Stats(),
	})
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Alerts.Get(r.PathValue("id"))
	if errors.Is(err, alerts.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := s.forecastLocation(w, r)
	if !ok {
		return
	}
	days, err := s.deps.Forecast.Days(r.Context(), lat, lon)
	if err != nil {
		s.writeForecastError(w, err, lat, lon)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(days),
		"data":     days,
		"location": map[string]float64{"latitude": lat, "longitude": lon},
	})
}

func (s *Server) handleForecastSummary(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := s.forecastLocation(w, r)
	if !ok {
		return
	}
	summary, err := s.deps.Forecast.Summary(r.Context(), lat, lon)
	if err != nil {
		s.writeForecastError(w, err, lat, lon)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    summary,
	})
}

// forecastLocation validates the forecast query, writing the error response
// itself when it returns false.
func (s *Server) forecastLocation(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	if s.deps.Forecast == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("forecast is disabled"))
		return 0, 0, false
	}
	q := r.URL.Query()
	lat, lon, ok, err := locationParams(q.Get("lat"), q.Get("lon"))
	if err == nil && !ok {
		err = errors.New("lat and lon are required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return 0, 0, false
	}
	return lat, lon, true
}

func (s *Server) writeForecastError(w http.ResponseWriter, err error, lat, lon float64) {
	switch {
	case errors.Is(err, forecast.ErrInvalidLocation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, forecast.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Error("forecast failed", "error", err, "lat", lat, "lon", lon)
		writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) handleTrigger(w http.ResponseWriter, _ *http.Request) {
	err := s.deps.Trigger.Trigger()
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true,
			"message": "processing started",
		})
	case errors.Is(err, pipeline.ErrPassRunning):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusServiceUnavailable, err)
	}
}

// locationParams parses an optional coordinate pair. ok is false when both
// are absent; one without the other is an error.
func locationParams(latStr, lonStr string) (lat, lon float64, ok bool, err error) {
	if latStr == "" && lonStr == "" {
		return 0, 0, false, nil
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false, errors.New("latitude and longitude must be given together")
	}
	if lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return 0, 0, false, fmt.Errorf("invalid latitude %q", latStr)
	}
	if lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return 0, 0, false, fmt.Errorf("invalid longitude %q", lonStr)
	}
	if !domain.ValidLocation(lat, lon) {
		return 0, 0, false, fmt.Errorf("location %s,%s out of range", latStr, lonStr)
	}
	return lat, lon, true, nil
}

func intParam(v string, def, lo, hi int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d outside [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}

func categoryParam(v string) (domain.Category, error) {
	if v == "" {
		return "", nil
	}
	c, ok := domain.ParseCategory(v)
	if !ok {
		return "", fmt.Errorf("unknown category %q", v)
	}
	return c, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
