package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// RiskInfo is the risk level of a zone with no actionable hazard.
	RiskInfo = "Info"

	baseRadiusMeters = 3000.0
	polygonSegments  = 32
)

// Classification is one of the four display tiers of a safety score.
type Classification struct {
	Level string `json:"level"`
	Color string `json:"color"`
}

var (
	ClassInfo   = Classification{Level: "Info", Color: "#28A745"}
	ClassLow    = Classification{Level: "Low", Color: "#FFC107"}
	ClassMedium = Classification{Level: "Medium", Color: "#FF8C00"}
	ClassHigh   = Classification{Level: "High", Color: "#FF0000"}
)

// RiskZone is the spatial buffer and scoring computed for one reading.
type RiskZone struct {
	ID          string
	Location    string
	Name        string
	Description string
	Center      Geo

	Hazard     Hazard
	RuleHazard Hazard
	MLHazard   Hazard
	Labels     LabelSet

	RiskLevel      string
	SafetyScore    int
	Classification Classification
	Radius         int
	Intensity      float64
	Population     int
	Polygon        [][2]float64
	Time           time.Time
}

// BuildZone turns a labelled reading into a RiskZone. The ML prediction is the
// zone hazard unless it is Unknown, in which case the rule hazard stands in.
// A zero population on the reading takes defaultPopulation.
func BuildZone(r NormalizedReading, labels LabelSet, rule, predicted Hazard, defaultPopulation int) RiskZone {
	hazard := predicted
	if hazard == "" || hazard == HazardUnknown {
		hazard = rule
	}

	level := RiskLevelFor(hazard, labels)
	score := SafetyScore(level, r, labels)
	radius := RadiusMeters(hazard, RadiusIntensity(level))

	pop := r.Population
	if pop == 0 {
		pop = defaultPopulation
	}

	intensity := 0.0
	if k, ok := hazard.Kind(); ok {
		l, _ := labels.Get(k)
		intensity = float64(l.Score()) / float64(LabelHigh)
	}

	return RiskZone{
		ID:             r.ID,
		Location:       r.Location,
		Name:           fmt.Sprintf("[%s] %s", rule, r.Location),
		Description:    fmt.Sprintf("Risk: %s. Temp: %.1f. RainLbl: %s", level, r.Temperature, labels.Rain),
		Center:         Geo{Lat: r.Lat, Lon: r.Lon},
		Hazard:         hazard,
		RuleHazard:     rule,
		MLHazard:       predicted,
		Labels:         labels,
		RiskLevel:      level,
		SafetyScore:    score,
		Classification: Classify(score),
		Radius:         radius,
		Intensity:      intensity,
		Population:     pop,
		Polygon:        Polygon(r.Lat, r.Lon, float64(radius), polygonSegments),
		Time:           r.ObservedAt,
	}
}

// RiskLevelFor names the zone risk level: Info for a safe hazard, else the
// capitalized label of the hazard's kind, or Low when the hazard has no kind.
func RiskLevelFor(h Hazard, labels LabelSet) string {
	if h.IsSafe() {
		return RiskInfo
	}
	k, ok := h.Kind()
	if !ok {
		return LabelLow.Title()
	}
	l, _ := labels.Get(k)
	return l.Title()
}

// RadiusIntensity is the radius multiplier for a risk level.
func RadiusIntensity(level string) float64 {
	switch ParseHazardLabel(level) {
	case LabelHigh:
		return 3.0
	case LabelMidHigh:
		return 2.0
	case LabelMid:
		return 1.5
	}
	return 1.0
}

// RadiusMeters returns the buffer radius in whole meters for a hazard.
func RadiusMeters(h Hazard, intensity float64) int {
	name := strings.ToLower(string(h))
	radius := baseRadiusMeters
	switch {
	case strings.Contains(name, "storm") || strings.Contains(name, "wind"):
		radius += intensity * 1500
	case strings.Contains(name, "earthquake"):
		radius += intensity * 3000
	case strings.Contains(name, "flood"):
		radius += intensity * 1
	}
	return int(radius)
}

// riskDeductions maps a risk level to its safety-score penalty.
var riskDeductions = map[string]int{
	"high":     70,
	"mid-high": 50,
	"mid":      30,
	"low":      10,
}

// SafetyScore computes the 0..100 safety score of a zone.
func SafetyScore(level string, r NormalizedReading, labels LabelSet) int {
	score := 100 - riskDeductions[strings.ToLower(level)]
	if labels.Rain != LabelNo {
		score -= 5
	}
	if r.WindSpeed > 5 {
		score -= 5
	}
	if r.Humidity > 90 {
		score -= 2
	}
	return clampScore(score)
}

// Classify maps a safety score to its display tier.
func Classify(score int) Classification {
	switch s := clampScore(score); {
	case s >= 80:
		return ClassInfo
	case s >= 50:
		return ClassLow
	case s >= 25:
		return ClassMedium
	}
	return ClassHigh
}

func clampScore(s int) int {
	return max(0, min(100, s))
}
