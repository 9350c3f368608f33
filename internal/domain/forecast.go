package domain

import (
	"math"
	"strings"
)

// Forecast aggregation constants.
const (
	forecastWindowHours     = 6
	forecastGustAllowance   = 3.0
	forecastDefaultHumidity = 70.0
	forecastNoQuakeDistance = 999.0

	// DefaultForecastRiver is the river discharge assumed when no stored
	// reading is near the forecast point.
	DefaultForecastRiver = 15.0
)

// DailyValues is one day of the upstream daily series. Missing values are NaN.
type DailyValues struct {
	Date      string
	TempMax   float64
	TempMin   float64
	PrecipSum float64
}

// HourlyValues is one hour of the upstream hourly series. Missing values are NaN.
type HourlyValues struct {
	Time     string
	Precip   float64
	Wind     float64
	Gust     float64
	Pressure float64
	Humidity float64
}

// ForecastInput is a multi-day forecast for one point.
type ForecastInput struct {
	Lat    float64
	Lon    float64
	Daily  []DailyValues
	Hourly []HourlyValues
}

// ForecastDay is the per-day hazard assessment.
type ForecastDay struct {
	Date     string  `json:"date"`
	TempAvg  float64 `json:"temp_avg"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Humidity float64 `json:"humidity"`
	LabelSet
	RuleHazard Hazard `json:"overall_hazard_rule"`
	MLHazard   Hazard `json:"overall_hazard_ml"`

	Reading NormalizedReading `json:"-"`
}

// ForecastLabelWind buckets the forecast 6h gust with the stricter forecast table.
func ForecastLabelWind(gust6 float64) HazardLabel {
	g := nonNeg(gust6)
	switch {
	case g > 30:
		return LabelHigh
	case g > 22:
		return LabelMidHigh
	case g > 15:
		return LabelMid
	case g > 8:
		return LabelLow
	}
	return LabelNo
}

// ForecastLabelStorm is the forecast storm table. Unlike the now-cast table
// it rewards gusts well above the sustained wind and has no text bonus.
func ForecastLabelStorm(gust6, p6, p24, wind, pressure float64) HazardLabel {
	g, p6n, w := nonNeg(gust6), nonNeg(p6), nonNeg(wind)

	score := 0
	switch {
	case g > 28:
		score += 4
	case g > 20:
		score += 3
	case g > 13:
		score += 2
	case g > 7:
		score += 1
	}
	switch {
	case g > w+12 && p6n > 20:
		score += 2
	case g > w+8 && p6n > 10:
		score++
	}
	score += rainTier(p6, p24)

	if pressure == -1 || math.IsNaN(pressure) {
		pressure = missingPressure
	}
	switch {
	case pressure < 990:
		score += 4
	case pressure < 995:
		score += 3
	case pressure < 1000:
		score += 2
	case pressure < 1005:
		score++
	}

	switch {
	case score >= 14:
		return LabelHigh
	case score >= 10:
		return LabelMidHigh
	case score >= 7:
		return LabelMid
	case score >= 3:
		return LabelLow
	}
	return LabelNo
}

// LabelForecastReading applies the forecast tables to an aggregated day.
func LabelForecastReading(r NormalizedReading) LabelSet {
	return LabelSet{
		Rain:       LabelRain(r.Precip6, r.Precip24),
		Wind:       ForecastLabelWind(r.Gust6),
		Storm:      ForecastLabelStorm(r.Gust6, r.Precip6, r.Precip24, r.WindSpeed, r.Pressure),
		Flood:      LabelFlood(r.RiverDischarge),
		Earthquake: LabelEarthquake(r.EQMag, r.EQDist),
	}
}

// BuildForecastDays aggregates the hourly series per day and labels each day.
// MLHazard is left empty for the caller to fill.
func BuildForecastDays(in ForecastInput, river float64) []ForecastDay {
	byDate := make(map[string][]HourlyValues)
	for _, h := range in.Hourly {
		if len(h.Time) < 10 {
			continue
		}
		d := h.Time[:10]
		byDate[d] = append(byDate[d], h)
	}

	days := make([]ForecastDay, 0, len(in.Daily))
	for _, d := range in.Daily {
		r := aggregateDay(d, byDate[d.Date], river)
		r.Lat, r.Lon = in.Lat, in.Lon
		labels := LabelForecastReading(r)
		days = append(days, ForecastDay{
			Date:       d.Date,
			TempAvg:    r.Temperature,
			TempMin:    orZero(d.TempMin),
			TempMax:    orZero(d.TempMax),
			Humidity:   r.Humidity,
			LabelSet:   labels,
			RuleHazard: ResolveForecast(labels),
			Reading:    r,
		})
	}
	return days
}

func aggregateDay(d DailyValues, hours []HourlyValues, river float64) NormalizedReading {
	head := hours
	if len(head) > forecastWindowHours {
		head = head[:forecastWindowHours]
	}

	precip6 := 0.0
	gust6 := math.NaN()
	for _, h := range head {
		if !math.IsNaN(h.Precip) {
			precip6 += h.Precip
		}
		if !math.IsNaN(h.Gust) && (math.IsNaN(gust6) || h.Gust > gust6) {
			gust6 = h.Gust
		}
	}
	if math.IsNaN(gust6) {
		gust6 = 0
	} else {
		gust6 += forecastGustAllowance
	}

	wind := math.NaN()
	var pressureSum, humiditySum float64
	var pressureN, humidityN int
	for _, h := range hours {
		if !math.IsNaN(h.Wind) && (math.IsNaN(wind) || h.Wind > wind) {
			wind = h.Wind
		}
		if !math.IsNaN(h.Pressure) {
			pressureSum += h.Pressure
			pressureN++
		}
		if !math.IsNaN(h.Humidity) {
			humiditySum += h.Humidity
			humidityN++
		}
	}

	pressure := -1.0
	if pressureN > 0 {
		pressure = pressureSum / float64(pressureN)
	}
	humidity := forecastDefaultHumidity
	if humidityN > 0 {
		humidity = roundTo(humiditySum/float64(humidityN), 1)
	}

	if math.IsNaN(river) {
		river = DefaultForecastRiver
	}

	return NormalizedReading{
		ID:             "forecast-" + strings.ReplaceAll(d.Date, "-", ""),
		ObservedAt:     clock.Now().UTC(),
		Temperature:    (orZero(d.TempMax) + orZero(d.TempMin)) / 2,
		Humidity:       humidity,
		Pressure:       pressure,
		WindSpeed:      orZero(wind),
		Precip6:        precip6,
		Precip24:       orZero(d.PrecipSum),
		Gust6:          gust6,
		RiverDischarge: river,
		EQMag:          0,
		EQDist:         forecastNoQuakeDistance,
	}
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ForecastSummary condenses a multi-day forecast.
type ForecastSummary struct {
	Days        int                 `json:"days"`
	WorstDay    string              `json:"worst_day,omitempty"`
	WorstHazard Hazard              `json:"worst_hazard"`
	WorstLabel  HazardLabel         `json:"worst_label"`
	LabelCounts map[HazardLabel]int `json:"hazards_count"`
	Counts      map[Hazard]int      `json:"overall_counts"`
}

// SummarizeForecast picks the earliest day with the highest label across all
// kinds. Days are counted by that maximum label, every label present, and by
// rule hazard.
func SummarizeForecast(days []ForecastDay) ForecastSummary {
	s := ForecastSummary{
		Days:        len(days),
		WorstHazard: HazardNo,
		LabelCounts: map[HazardLabel]int{LabelNo: 0, LabelLow: 0, LabelMid: 0, LabelMidHigh: 0, LabelHigh: 0},
		Counts:      map[Hazard]int{},
	}
	worst := -1
	for _, d := range days {
		m := d.LabelSet.Max()
		s.LabelCounts[m]++
		s.Counts[d.RuleHazard]++
		if m.Score() > worst {
			worst = m.Score()
			s.WorstDay = d.Date
			s.WorstLabel = m
			s.WorstHazard = d.RuleHazard
		}
	}
	return s
}
