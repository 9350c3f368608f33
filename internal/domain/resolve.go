package domain

import "strings"

// Hazard is a resolved or predicted hazard type, capitalized ("Rain", "No").
type Hazard string

const (
	HazardNo         Hazard = "No"
	HazardUnknown    Hazard = "Unknown"
	HazardRain       Hazard = "Rain"
	HazardWind       Hazard = "Wind"
	HazardStorm      Hazard = "Storm"
	HazardFlood      Hazard = "Flood"
	HazardEarthquake Hazard = "Earthquake"
)

// IsSafe reports whether the hazard carries no actionable risk. Unknown
// counts as safe because it means "no data", not a detected hazard.
func (h Hazard) IsSafe() bool {
	return h == "" || h == HazardNo || h == HazardUnknown
}

// Kind maps the hazard back to its labelled kind, if it has one.
func (h Hazard) Kind() (HazardKind, bool) {
	k := HazardKind(strings.ToLower(string(h)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// resolveThreshold is the minimum score (mid) for a kind to qualify.
const resolveThreshold = 2

// Resolve picks one hazard from the labels. Kinds are visited in Kinds order
// and the LAST qualifying kind wins, so an earthquake at mid-high outranks
// wind at high. Historical labels depend on this ordering.
func Resolve(labels LabelSet) Hazard {
	resolved := HazardNo
	for _, k := range Kinds {
		if l, _ := labels.Get(k); l.Score() >= resolveThreshold {
			resolved = k.Hazard()
		}
	}
	return resolved
}

// ResolveForecast is the forecast-path resolver: wind needs mid-high, every
// other kind needs mid, and a later kind replaces the current pick only with
// a strictly higher score.
func ResolveForecast(labels LabelSet) Hazard {
	resolved := HazardNo
	best := 0
	for _, k := range Kinds {
		l, _ := labels.Get(k)
		threshold := resolveThreshold
		if k == KindWind {
			threshold = 3
		}
		if s := l.Score(); s >= threshold && s > best {
			resolved, best = k.Hazard(), s
		}
	}
	return resolved
}
