package domain

import (
	"time"
)

// Snapshot is the immutable output of one processing pass.
type Snapshot struct {
	ID          string
	GeneratedAt time.Time
	Zones       []RiskZone
}

// FeatureCollection is the GeoJSON rendering of a snapshot. snapshot_id and
// generated_at are foreign members.
type FeatureCollection struct {
	Type        string    `json:"type"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Features    []Feature `json:"features"`
}

// Feature is one zone polygon with its properties.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties ZoneProperties `json:"properties"`
}

// Geometry is a single-ring GeoJSON Polygon in [lon, lat] order.
type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// ZoneProperties are the GeoJSON properties of a zone feature.
type ZoneProperties struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	HazardType     Hazard     `json:"hazard_type"`
	RiskLevel      string     `json:"risk_level"`
	SafetyScore    int        `json:"safety_score"`
	Radius         int        `json:"radius"`
	Color          string     `json:"color"`
	Time           time.Time  `json:"time"`
	Center         [2]float64 `json:"center"` // [lat, lon]
	Location       string     `json:"location"`
	Classification string     `json:"classification"`
	RuleHazard     Hazard     `json:"rule_hazard"`
	MLHazard       Hazard     `json:"ml_hazard"`
	Intensity      float64    `json:"intensity"`
	Population     int        `json:"population"`
	Labels         LabelSet   `json:"labels"`
}

// Feature renders the zone as a GeoJSON feature.
func (z RiskZone) Feature() Feature {
	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Polygon",
			Coordinates: [][][2]float64{z.Polygon},
		},
		Properties: ZoneProperties{
			ID:             z.ID,
			Name:           z.Name,
			Description:    z.Description,
			HazardType:     z.Hazard,
			RiskLevel:      z.RiskLevel,
			SafetyScore:    z.SafetyScore,
			Radius:         z.Radius,
			Color:          z.Classification.Color,
			Time:           z.Time,
			Center:         [2]float64{z.Center.Lat, z.Center.Lon},
			Location:       z.Location,
			Classification: z.Classification.Level,
			RuleHazard:     z.RuleHazard,
			MLHazard:       z.MLHazard,
			Intensity:      z.Intensity,
			Population:     z.Population,
			Labels:         z.Labels,
		},
	}
}

// FeatureCollection renders the snapshot as GeoJSON.
func (s Snapshot) FeatureCollection() FeatureCollection {
	features := make([]Feature, len(s.Zones))
	for i, z := range s.Zones {
		features[i] = z.Feature()
	}
	return FeatureCollection{
		Type:        "FeatureCollection",
		SnapshotID:  s.ID,
		GeneratedAt: s.GeneratedAt,
		Features:    features,
	}
}

// Snapshot rebuilds the zones of a previously published collection.
func (fc FeatureCollection) Snapshot() Snapshot {
	zones := make([]RiskZone, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		var ring [][2]float64
		if len(f.Geometry.Coordinates) > 0 {
			ring = f.Geometry.Coordinates[0]
		}
		zones = append(zones, RiskZone{
			ID:             p.ID,
			Location:       p.Location,
			Name:           p.Name,
			Description:    p.Description,
			Center:         Geo{Lat: p.Center[0], Lon: p.Center[1]},
			Hazard:         p.HazardType,
			RuleHazard:     p.RuleHazard,
			MLHazard:       p.MLHazard,
			Labels:         p.Labels,
			RiskLevel:      p.RiskLevel,
			SafetyScore:    p.SafetyScore,
			Classification: Classification{Level: p.Classification, Color: p.Color},
			Radius:         p.Radius,
			Intensity:      p.Intensity,
			Population:     p.Population,
			Polygon:        ring,
			Time:           p.Time,
		})
	}
	return Snapshot{ID: fc.SnapshotID, GeneratedAt: fc.GeneratedAt, Zones: zones}
}
