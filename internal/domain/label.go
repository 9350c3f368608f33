package domain

import (
	"math"
	"strings"
)

// HazardLabel is an ordinal severity for one hazard kind.
type HazardLabel int

const (
	LabelNo HazardLabel = iota
	LabelLow
	LabelMid
	LabelMidHigh
	LabelHigh
)

var labelNames = [...]string{"no", "low", "mid", "mid-high", "high"}

func (l HazardLabel) String() string {
	if l < LabelNo || l > LabelHigh {
		return labelNames[LabelNo]
	}
	return labelNames[l]
}

// Score is the ordinal 0..4 used by the resolvers.
func (l HazardLabel) Score() int {
	if l < LabelNo || l > LabelHigh {
		return 0
	}
	return int(l)
}

// Title returns the capitalized form used as a zone risk level, e.g. "Mid-high".
func (l HazardLabel) Title() string {
	s := l.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// MarshalText implements encoding.TextMarshaler.
func (l HazardLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It never fails.
func (l *HazardLabel) UnmarshalText(b []byte) error {
	*l = ParseHazardLabel(string(b))
	return nil
}

// ParseHazardLabel maps a label name, or one of its risk-level aliases, to a
// HazardLabel. Unrecognized input maps to LabelNo.
func ParseHazardLabel(s string) HazardLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "info":
		return LabelLow
	case "mid", "medium":
		return LabelMid
	case "mid-high":
		return LabelMidHigh
	case "high", "danger":
		return LabelHigh
	}
	return LabelNo
}

// HazardKind names one of the five labelled hazards.
type HazardKind string

const (
	KindRain       HazardKind = "rain"
	KindWind       HazardKind = "wind"
	KindStorm      HazardKind = "storm"
	KindFlood      HazardKind = "flood"
	KindEarthquake HazardKind = "earthquake"
)

// Kinds is the resolver iteration order.
var Kinds = []HazardKind{KindWind, KindRain, KindStorm, KindFlood, KindEarthquake}

// Hazard returns the capitalized hazard name for the kind.
func (k HazardKind) Hazard() Hazard {
	s := string(k)
	if s == "" {
		return HazardNo
	}
	return Hazard(strings.ToUpper(s[:1]) + s[1:])
}

// LabelSet holds one label per hazard kind.
type LabelSet struct {
	Rain       HazardLabel `json:"rain_label"`
	Wind       HazardLabel `json:"wind_label"`
	Storm      HazardLabel `json:"storm_label"`
	Flood      HazardLabel `json:"flood_label"`
	Earthquake HazardLabel `json:"earthquake_label"`
}

// Get returns the label for kind, LabelNo for an unknown kind.
func (s LabelSet) Get(kind HazardKind) (HazardLabel, bool) {
	switch kind {
	case KindRain:
		return s.Rain, true
	case KindWind:
		return s.Wind, true
	case KindStorm:
		return s.Storm, true
	case KindFlood:
		return s.Flood, true
	case KindEarthquake:
		return s.Earthquake, true
	}
	return LabelNo, false
}

// Max returns the highest label in the set.
func (s LabelSet) Max() HazardLabel {
	best := LabelNo
	for _, k := range Kinds {
		if l, _ := s.Get(k); l > best {
			best = l
		}
	}
	return best
}

// LabelReading applies the now-cast tables to a normalized reading.
func LabelReading(r NormalizedReading) LabelSet {
	return LabelSet{
		Rain:       LabelRain(r.Precip6, r.Precip24),
		Wind:       LabelWind(r.Gust6),
		Storm:      LabelStorm(r.Gust6, r.Precip6, r.Precip24, r.WindSpeed, r.Pressure, r.Description),
		Flood:      LabelFlood(r.RiverDischarge),
		Earthquake: LabelEarthquake(r.EQMag, r.EQDist),
	}
}

// LabelRain buckets 6h and 24h precipitation (mm).
func LabelRain(p6, p24 float64) HazardLabel {
	return HazardLabel(rainTier(p6, p24))
}

func rainTier(p6, p24 float64) int {
	p6, p24 = nonNeg(p6), nonNeg(p24)
	switch {
	case p24 > 80 || p6 > 40:
		return 4
	case p24 > 50 || p6 > 25:
		return 3
	case p24 > 20 || p6 > 10:
		return 2
	case p24 > 3 || p6 > 1:
		return 1
	}
	return 0
}

// LabelWind buckets the 6h peak gust (m/s).
func LabelWind(gust6 float64) HazardLabel {
	g := nonNeg(gust6)
	switch {
	case g > 25:
		return LabelHigh
	case g > 18:
		return LabelMidHigh
	case g > 10:
		return LabelMid
	case g > 5:
		return LabelLow
	}
	return LabelNo
}

// LabelStorm sums gust, precipitation, pressure and description sub-scores.
// The sustained wind argument does not contribute to the now-cast score.
func LabelStorm(gust6, p6, p24, _, pressure float64, desc string) HazardLabel {
	score := stormGustTier(nonNeg(gust6)) + rainTier(p6, p24) + stormPressureTier(pressure) + descriptionBonus(desc)
	switch {
	case score >= 12:
		return LabelHigh
	case score >= 9:
		return LabelMidHigh
	case score >= 6:
		return LabelMid
	case score >= 3:
		return LabelLow
	}
	return LabelNo
}

func stormGustTier(g float64) int {
	switch {
	case g > 25:
		return 4
	case g > 18:
		return 3
	case g > 12:
		return 2
	case g > 8:
		return 1
	}
	return 0
}

// missingPressure stands in for an unknown sea-level pressure (hPa).
const missingPressure = 1013.0

func stormPressureTier(p float64) int {
	if p == -1 {
		p = missingPressure
	}
	switch {
	case p < 990:
		return 4
	case p < 995:
		return 3
	case p < 1000:
		return 2
	}
	return 0
}

func descriptionBonus(desc string) int {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "thunderstorm"):
		return 2
	case strings.Contains(d, "heavy"):
		return 1
	}
	return 0
}

// LabelFlood buckets river discharge (m³/s). -1 means no data.
func LabelFlood(river float64) HazardLabel {
	if river == -1 {
		return LabelNo
	}
	switch {
	case river > 8000:
		return LabelHigh
	case river > 5000:
		return LabelMidHigh
	case river > 2000:
		return LabelMid
	case river > 500:
		return LabelLow
	}
	return LabelNo
}

// LabelEarthquake combines magnitude with epicentral distance (km). -1 on
// either input means no data.
func LabelEarthquake(mag, dist float64) HazardLabel {
	if mag == -1 || dist == -1 {
		return LabelNo
	}
	dist = nonNeg(dist)
	switch {
	case mag >= 6.0 && dist <= 150:
		return LabelHigh
	case mag >= 5.5 && dist <= 300:
		return LabelMidHigh
	case mag >= 5.0 && dist <= 500:
		return LabelMid
	case mag >= 4.5 && dist <= 800:
		return LabelLow
	}
	return LabelNo
}

func nonNeg(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(v, 0)
}
