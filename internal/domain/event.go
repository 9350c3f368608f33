package domain

import (
	"context"
	"time"
)

// Reading field names as published by the collector.
const (
	FieldTemperature    = "temperature"
	FieldHumidity       = "humidity"
	FieldPressure       = "pressure"
	FieldWindSpeed      = "wind_speed"
	FieldPrecip6        = "precip6"
	FieldPrecip24       = "precip24"
	FieldGust6          = "gust6"
	FieldRiverDischarge = "river_discharge"
	FieldEQMag          = "eq_mag"
	FieldEQDist         = "eq_dist"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RawReading is one per-location observation as published by the collector.
// Fields holds the numeric signals exactly as decoded: numbers, numeric
// strings, null, or absent keys are all possible.
type RawReading struct {
	ID          string         `json:"id"`
	Location    string         `json:"location"`
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	ObservedAt  time.Time      `json:"observed_at"`
	Description string         `json:"description,omitempty"`
	Population  int            `json:"population,omitempty"`
	Fields      map[string]any `json:"fields"`
}

// NormalizedReading is a RawReading with every signal resolved to a finite
// number. Sentinel -1 means "no data"; 0 means "none observed".
type NormalizedReading struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	ObservedAt  time.Time `json:"observed_at"`
	Description string    `json:"description,omitempty"`
	Population  int       `json:"population,omitempty"`

	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	Pressure       float64 `json:"pressure"`
	WindSpeed      float64 `json:"wind_speed"`
	Precip6        float64 `json:"precip6"`
	Precip24       float64 `json:"precip24"`
	Gust6          float64 `json:"gust6"`
	RiverDischarge float64 `json:"river_discharge"`
	EQMag          float64 `json:"eq_mag"`
	EQDist         float64 `json:"eq_dist"`
}

// Signal returns the named numeric field.
func (r NormalizedReading) Signal(name string) (float64, bool) {
	switch name {
	case FieldTemperature:
		return r.Temperature, true
	case FieldHumidity:
		return r.Humidity, true
	case FieldPressure:
		return r.Pressure, true
	case FieldWindSpeed:
		return r.WindSpeed, true
	case FieldPrecip6:
		return r.Precip6, true
	case FieldPrecip24:
		return r.Precip24, true
	case FieldGust6:
		return r.Gust6, true
	case FieldRiverDischarge:
		return r.RiverDischarge, true
	case FieldEQMag:
		return r.EQMag, true
	case FieldEQDist:
		return r.EQDist, true
	}
	return 0, false
}
