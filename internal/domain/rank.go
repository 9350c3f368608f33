package domain

import (
	"math"
	"sort"
)

const (
	// NationalTopN is the size of the national list inside the "all" view.
	NationalTopN = 20

	// DefaultNearbyRadiusKm is the nearby radius used by the "all" view.
	DefaultNearbyRadiusKm = 50.0

	// noDistanceSentinel sorts alerts without a distance after every located one.
	noDistanceSentinel = 9999.0
)

// DedupKey identifies duplicate alerts.
type DedupKey struct {
	Location string
	Hazard   Hazard
}

// Deduplicate keeps the most recently issued alert per (location, hazard).
// The result is ordered newest first.
func Deduplicate(alerts []Alert) []Alert {
	sorted := make([]Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IssuedAt.After(sorted[j].IssuedAt)
	})

	seen := make(map[DedupKey]struct{}, len(sorted))
	out := sorted[:0]
	for _, a := range sorted {
		key := DedupKey{Location: a.Location, Hazard: a.Hazard}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// NationalQuery filters and bounds the national view. Zero-valued filters
// match everything; a non-positive Limit returns every match.
type NationalQuery struct {
	Limit    int
	Severity Severity
	Category Category
}

// National returns alerts matching q ordered by priority descending, and the
// number of matches before the limit was applied.
func National(alerts []Alert, q NationalQuery) ([]Alert, int) {
	matched := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		matched = append(matched, a)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	total := len(matched)
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total
}

// ShouldNotify reports whether an alert at distanceKm warrants a push.
func ShouldNotify(sev Severity, distanceKm float64) bool {
	return (sev == SeverityHigh && distanceKm < 10) || (sev == SeverityMedium && distanceKm < 5)
}

// Nearby returns alerts within radiusKm of (lat, lon). When any non-weather
// hazard is in range, all such hazards are returned by ascending distance;
// otherwise only the single closest alert is returned, even if it is safe.
func Nearby(alerts []Alert, lat, lon, radiusKm float64) []Alert {
	inRange := make([]Alert, 0)
	for _, a := range alerts {
		d := HaversineKm(lat, lon, a.Lat, a.Lon)
		if !(d <= radiusKm) {
			continue
		}
		rounded := math.RoundToEven(d*10) / 10
		a.DistanceKm = &rounded
		a.ShouldNotify = ShouldNotify(a.Severity, d)
		inRange = append(inRange, a)
	}
	sort.SliceStable(inRange, func(i, j int) bool {
		di, dj := *inRange[i].DistanceKm, *inRange[j].DistanceKm
		if di != dj {
			return di < dj
		}
		return inRange[i].Priority > inRange[j].Priority
	})

	hazards := make([]Alert, 0, len(inRange))
	for _, a := range inRange {
		if !a.IsSafe() && a.Category != CategoryWeather {
			hazards = append(hazards, a)
		}
	}
	if len(hazards) > 0 {
		return hazards
	}
	if len(inRange) == 0 {
		return []Alert{}
	}
	return inRange[:1]
}

// AllQuery parameterizes the merged view. Without a location only the
// national list contributes.
type AllQuery struct {
	Lat, Lon    float64
	HasLocation bool
	Limit       int
	Category    Category
}

// AllResult is the merged national and nearby view.
type AllResult struct {
	National []Alert `json:"national"`
	Nearby   []Alert `json:"nearby"`
	Combined []Alert `json:"combined"`
	Total    int     `json:"total"`
}

// All merges the national top-N with the nearby list, keyed by alert id with
// nearby entries taking precedence, and orders the union by distance then
// priority.
func All(alerts []Alert, q AllQuery) AllResult {
	national, _ := National(alerts, NationalQuery{Limit: NationalTopN, Category: q.Category})
	nearby := []Alert{}
	if q.HasLocation {
		nearby = Nearby(alerts, q.Lat, q.Lon, DefaultNearbyRadiusKm)
	}

	index := make(map[string]struct{}, len(national)+len(nearby))
	combined := make([]Alert, 0, len(national)+len(nearby))
	for _, list := range [][]Alert{nearby, national} {
		for _, a := range list {
			if _, ok := index[a.ID]; ok {
				continue
			}
			index[a.ID] = struct{}{}
			combined = append(combined, a)
		}
	}
	sort.SliceStable(combined, func(i, j int) bool {
		di, dj := sortDistance(combined[i]), sortDistance(combined[j])
		if di != dj {
			return di < dj
		}
		return combined[i].Priority > combined[j].Priority
	})

	total := len(combined)
	if q.Limit > 0 && len(combined) > q.Limit {
		combined = combined[:q.Limit]
	}
	if len(nearby) > NationalTopN {
		nearby = nearby[:NationalTopN]
	}
	return AllResult{National: national, Nearby: nearby, Combined: combined, Total: total}
}

func sortDistance(a Alert) float64 {
	if a.DistanceKm == nil {
		return noDistanceSentinel
	}
	return *a.DistanceKm
}

// Latest returns high and medium alerts ordered by priority then issue time,
// both descending.
func Latest(alerts []Alert, limit int) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Severity == SeverityHigh || a.Severity == SeverityMedium {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Statistics summarizes a set of alerts.
type Statistics struct {
	Total             int              `json:"total_alerts"`
	BySeverity        map[Severity]int `json:"by_severity"`
	ByCategory        map[Category]int `json:"by_category"`
	HighPriorityCount int              `json:"high_priority_count"`
	Active            int              `json:"active_alerts"`
}

// Stats counts alerts by severity and category. Every severity appears in
// BySeverity even when its count is zero.
func Stats(alerts []Alert) Statistics {
	s := Statistics{
		Total: len(alerts),
		BySeverity: map[Severity]int{
			SeverityHigh:   0,
			SeverityMedium: 0,
			SeverityLow:    0,
		},
		ByCategory: map[Category]int{},
		Active:     len(alerts),
	}
	for _, a := range alerts {
		s.BySeverity[a.Severity]++
		s.ByCategory[a.Category]++
	}
	s.HighPriorityCount = s.BySeverity[SeverityHigh]
	return s
}
