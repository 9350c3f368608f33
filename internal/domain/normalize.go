package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fieldRule is the fallback and rounding precision for one signal.
type fieldRule struct {
	def       float64
	precision int
}

var fieldRules = map[string]fieldRule{
	FieldTemperature:    {def: -99.0, precision: 1},
	FieldHumidity:       {def: -1.0, precision: 0},
	FieldPressure:       {def: -1.0, precision: 0},
	FieldWindSpeed:      {def: 0.0, precision: 2},
	FieldPrecip6:        {def: 0.0, precision: 2},
	FieldPrecip24:       {def: 0.0, precision: 2},
	FieldGust6:          {def: 0.0, precision: 2},
	FieldRiverDischarge: {def: -1.0, precision: 2},
	FieldEQMag:          {def: -1.0, precision: 2},
	FieldEQDist:         {def: -1.0, precision: 2},
}

// SignalNames lists the numeric reading fields in canonical order.
var SignalNames = []string{
	FieldTemperature,
	FieldHumidity,
	FieldPressure,
	FieldWindSpeed,
	FieldPrecip6,
	FieldPrecip24,
	FieldGust6,
	FieldRiverDischarge,
	FieldEQMag,
	FieldEQDist,
}

// Normalize resolves every signal of a raw reading to a rounded finite
// number, substituting the field default for anything missing or unparseable.
// It never fails.
func Normalize(raw RawReading) NormalizedReading {
	v := func(name string) float64 {
		rule := fieldRules[name]
		return NormalizeValue(raw.Fields[name], rule.def, rule.precision)
	}
	return NormalizedReading{
		ID:          raw.ID,
		Location:    raw.Location,
		Lat:         raw.Lat,
		Lon:         raw.Lon,
		ObservedAt:  raw.ObservedAt,
		Description: raw.Description,
		Population:  raw.Population,

		Temperature:    v(FieldTemperature),
		Humidity:       v(FieldHumidity),
		Pressure:       v(FieldPressure),
		WindSpeed:      v(FieldWindSpeed),
		Precip6:        v(FieldPrecip6),
		Precip24:       v(FieldPrecip24),
		Gust6:          v(FieldGust6),
		RiverDischarge: v(FieldRiverDischarge),
		EQMag:          v(FieldEQMag),
		EQDist:         v(FieldEQDist),
	}
}

// NormalizeValue converts v to a float rounded half-to-even at the given
// precision, or returns def when v is nil, non-numeric, NaN or infinite.
func NormalizeValue(v any, def float64, precision int) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return roundTo(f, precision)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow10(precision)
	if math.IsInf(v*p, 0) {
		return v
	}
	r := math.RoundToEven(v*p) / p
	if r == 0 {
		// collapse -0
		return 0
	}
	return r
}

// ParseRawEvent decodes a source message into a RawReading. Readings without
// an id get a deterministic one; readings without an observation time take
// the message timestamp, or the current time when that is also missing.
func ParseRawEvent(raw RawEvent) (RawReading, error) {
	dec := json.NewDecoder(bytes.NewReader(raw.Value))
	dec.UseNumber()

	var r RawReading
	if err := dec.Decode(&r); err != nil {
		return RawReading{}, fmt.Errorf("parse raw reading: %w", err)
	}
	if err := validateCoordinates(r.Lat, r.Lon); err != nil {
		return RawReading{}, fmt.Errorf("parse raw reading: %w", err)
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = raw.Timestamp
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = clock.Now()
	}
	r.ObservedAt = r.ObservedAt.UTC()
	r.Location = strings.TrimSpace(r.Location)
	if r.ID == "" {
		r.ID = generateID(r.Location, r.Lat, r.Lon, r.ObservedAt.Unix())
	}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	return r, nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	if lat == 0 && lon == 0 {
		return errors.New("missing coordinates")
	}
	return nil
}

// generateID hashes location|lat|lon|unix so replays of the same reading
// land on the same row.
func generateID(location string, lat, lon float64, unix int64) string {
	key := fmt.Sprintf("%s|%.5f|%.5f|%d", strings.ToLower(location), lat, lon, unix)
	sum := sha256.Sum256([]byte(key))
	return "rd-" + hex.EncodeToString(sum[:8])
}
