package domain

import (
	"math"
	"strings"
	"time"
)

// Severity is the alert urgency tier.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Category groups alerts for filtering.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryDisaster Category = "disaster"
	CategoryHealth   Category = "health"
	CategorySecurity Category = "security"
)

// ParseSeverity validates a severity filter value.
func ParseSeverity(s string) (Severity, bool) {
	switch v := Severity(strings.ToLower(s)); v {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return v, true
	}
	return "", false
}

// ParseCategory validates a category filter value.
func ParseCategory(s string) (Category, bool) {
	switch v := Category(strings.ToLower(s)); v {
	case CategoryWeather, CategoryDisaster, CategoryHealth, CategorySecurity:
		return v, true
	}
	return "", false
}

// Alert is the ranked, user-facing view of a RiskZone.
type Alert struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Hazard             Hazard    `json:"hazard_type"`
	Severity           Severity  `json:"severity"`
	Category           Category  `json:"category"`
	RiskLevel          string    `json:"risk_level"`
	SafetyScore        int       `json:"safety_score"`
	Color              string    `json:"color"`
	Radius             int       `json:"radius"`
	AffectedPopulation int       `json:"affected_population"`
	Intensity          float64   `json:"intensity"`
	Priority           int       `json:"priority"`
	IssuedAt           time.Time `json:"issued_at"`

	// Set only by location-scoped queries.
	DistanceKm   *float64 `json:"distance_km,omitempty"`
	ShouldNotify bool     `json:"should_notify,omitempty"`
}

// IsSafe reports whether the alert describes a zone without a hazard.
func (a Alert) IsSafe() bool {
	return a.Hazard.IsSafe()
}

// SeverityFor maps a risk level to an alert severity. The zone builder's own
// label levels are accepted alongside the "X Risk" display names.
func SeverityFor(riskLevel string) Severity {
	switch strings.ToLower(strings.TrimSpace(riskLevel)) {
	case "critical", "high risk", "high", "mid-high":
		return SeverityHigh
	case "medium risk", "medium", "mid":
		return SeverityMedium
	}
	return SeverityLow
}

// CategoryFor maps a hazard type to an alert category.
func CategoryFor(h Hazard) Category {
	switch strings.ToLower(string(h)) {
	case "flood", "earthquake", "landslide", "tsunami":
		return CategoryDisaster
	}
	return CategoryWeather
}

var severityScores = map[Severity]float64{
	SeverityHigh:   100,
	SeverityMedium: 60,
	SeverityLow:    30,
}

// CalculatePriority composes the 0..100 ranking score. A non-positive
// population is treated as unknown.
func CalculatePriority(sev Severity, population int, intensity float64, issuedAt, now time.Time) int {
	sevScore := severityScores[sev]
	if sevScore == 0 {
		sevScore = severityScores[SeverityLow]
	}

	popScore := 50.0
	if population > 0 {
		popScore = math.Min(100, float64(population)/10000*10)
	}

	intScore := math.Max(0, math.Min(100, math.Abs(intensity)*100))

	hours := now.Sub(issuedAt).Hours()
	recency := math.Max(0, math.Min(100, 100-hours*5))

	total := 0.4*sevScore + 0.3*popScore + 0.2*intScore + 0.1*recency
	return clampScore(int(math.RoundToEven(total)))
}

// AlertFromZone converts a zone into an alert scored at now.
func AlertFromZone(z RiskZone, now time.Time) Alert {
	hazard := z.Hazard
	sev := SeverityFor(z.RiskLevel)
	if z.RiskLevel == LabelNo.Title() {
		hazard, sev = HazardNo, SeverityLow
	}

	loc := zoneLocation(z)
	title := string(hazard) + " at " + loc
	if hazard.IsSafe() {
		title = "Safe: " + loc
	}

	return Alert{
		ID:                 z.ID,
		Title:              title,
		Description:        z.Description,
		Location:           loc,
		Lat:                z.Center.Lat,
		Lon:                z.Center.Lon,
		Hazard:             hazard,
		Severity:           sev,
		Category:           CategoryFor(hazard),
		RiskLevel:          z.RiskLevel,
		SafetyScore:        z.SafetyScore,
		Color:              z.Classification.Color,
		Radius:             z.Radius,
		AffectedPopulation: z.Population,
		Intensity:          z.Intensity,
		Priority:           CalculatePriority(sev, z.Population, z.Intensity, z.Time, now),
		IssuedAt:           z.Time,
	}
}

// zoneLocation returns the place name of a zone, falling back to the part of
// its display name after the "[hazard]" prefix.
func zoneLocation(z RiskZone) string {
	if z.Location != "" {
		return z.Location
	}
	if i := strings.Index(z.Name, "]"); i >= 0 {
		return strings.TrimSpace(z.Name[i+1:])
	}
	return strings.TrimSpace(z.Name)
}
