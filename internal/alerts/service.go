// Package alerts holds the currently published risk-zone snapshot and answers
// ranked alert queries over it.
package alerts

import (
	"errors"
	"sync/atomic"

	"github.com/couchcryptid/hazard-engine/internal/domain"
)

// ErrNotFound is returned by Get for an unknown alert id.
var ErrNotFound = errors.New("alert not found")

// view is an immutable published state. It is replaced as a whole.
type view struct {
	snapshot domain.Snapshot
	alerts   []domain.Alert
	byID     map[string]domain.Alert
}

// Service answers alert queries against the latest snapshot. Replace swaps
// the snapshot atomically so concurrent readers see either the old or the
// new state in full.
type Service struct {
	current        atomic.Pointer[view]
	nearbyRadiusKm float64
}

// NewService creates an empty service. nearbyRadiusKm is used by Nearby when
// the caller passes no radius.
func NewService(nearbyRadiusKm float64) *Service {
	if nearbyRadiusKm <= 0 {
		nearbyRadiusKm = domain.DefaultNearbyRadiusKm
	}
	return &Service{nearbyRadiusKm: nearbyRadiusKm}
}

// Replace publishes snap and returns its deduplicated alerts, scored at the
// snapshot's generation time.
func (s *Service) Replace(snap domain.Snapshot) []domain.Alert {
	raw := make([]domain.Alert, 0, len(snap.Zones))
	for _, z := range snap.Zones {
		raw = append(raw, domain.AlertFromZone(z, snap.GeneratedAt))
	}
	deduped := domain.Deduplicate(raw)

	byID := make(map[string]domain.Alert, len(deduped))
	for _, a := range deduped {
		byID[a.ID] = a
	}
	s.current.Store(&view{snapshot: snap, alerts: deduped, byID: byID})
	return deduped
}

// Snapshot returns the published snapshot, or false before the first one.
func (s *Service) Snapshot() (domain.Snapshot, bool) {
	v := s.current.Load()
	if v == nil {
		return domain.Snapshot{}, false
	}
	return v.snapshot, true
}

// Ready reports whether a snapshot has been published.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

func (s *Service) alerts() []domain.Alert {
	if v := s.current.Load(); v != nil {
		return v.alerts
	}
	return nil
}

// National returns the filtered national list and the match count before
// the limit.
func (s *Service) National(q domain.NationalQuery) ([]domain.Alert, int) {
	return domain.National(s.alerts(), q)
}

// Nearby returns alerts around a point. A non-positive radius uses the
// configured default.
func (s *Service) Nearby(lat, lon, radiusKm float64) []domain.Alert {
	if radiusKm <= 0 {
		radiusKm = s.nearbyRadiusKm
	}
	return domain.Nearby(s.alerts(), lat, lon, radiusKm)
}

// All returns the merged national and nearby view.
func (s *Service) All(q domain.AllQuery) domain.AllResult {
	return domain.All(s.alerts(), q)
}

// Latest returns the most urgent high and medium alerts.
func (s *Service) Latest(limit int) []domain.Alert {
	return domain.Latest(s.alerts(), limit)
}

// Get returns one alert by id.
func (s *Service) Get(id string) (domain.Alert, error) {
	v := s.current.Load()
	if v == nil {
		return domain.Alert{}, ErrNotFound
	}
	a, ok := v.byID[id]
	if !ok {
		return domain.Alert{}, ErrNotFound
	}
	return a, nil
}

// Stats summarizes the published alerts.
func (s *Service) Stats() domain.Statistics {
	return domain.Stats(s.alerts())
}
