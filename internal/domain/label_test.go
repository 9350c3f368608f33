package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHazardLabel_Text(t *testing.T) {
	assert.Equal(t, "mid-high", LabelMidHigh.String())
	assert.Equal(t, "Mid-high", LabelMidHigh.Title())
	assert.Equal(t, "No", LabelNo.Title())
	assert.Equal(t, 4, LabelHigh.Score())
	assert.Equal(t, 0, HazardLabel(42).Score())

	b, err := json.Marshal(LabelSet{Rain: LabelMid, Storm: LabelHigh})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rain_label":"mid","wind_label":"no","storm_label":"high","flood_label":"no","earthquake_label":"no"}`, string(b))

	var s LabelSet
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, LabelMid, s.Rain)
	assert.Equal(t, LabelHigh, s.Storm)
}

func TestParseHazardLabel(t *testing.T) {
	tests := map[string]HazardLabel{
		"no":       LabelNo,
		"safe":     LabelNo,
		"low":      LabelLow,
		"Info":     LabelLow,
		"medium":   LabelMid,
		"MID":      LabelMid,
		"mid-high": LabelMidHigh,
		"danger":   LabelHigh,
		" high ":   LabelHigh,
		"whatever": LabelNo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseHazardLabel(in), in)
	}
}

func TestLabelRain(t *testing.T) {
	tests := []struct {
		p6, p24 float64
		want    HazardLabel
	}{
		{0, 0, LabelNo},
		{1, 3, LabelNo},
		{1.01, 0, LabelLow},
		{0, 3.5, LabelLow},
		{10.5, 0, LabelMid},
		{0, 21, LabelMid},
		{26, 0, LabelMidHigh},
		{0, 51, LabelMidHigh},
		{41, 0, LabelHigh},
		{0, 81, LabelHigh},
		{-50, -50, LabelNo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelRain(tt.p6, tt.p24), "p6=%v p24=%v", tt.p6, tt.p24)
	}
}

func TestLabelWind(t *testing.T) {
	tests := []struct {
		gust float64
		want HazardLabel
	}{
		{-3, LabelNo},
		{5, LabelNo},
		{5.1, LabelLow},
		{10, LabelLow},
		{10.5, LabelMid},
		{18.5, LabelMidHigh},
		{25, LabelMidHigh},
		{25.01, LabelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelWind(tt.gust), "gust=%v", tt.gust)
	}
}

func TestLabelStorm(t *testing.T) {
	t.Run("calm", func(t *testing.T) {
		assert.Equal(t, LabelNo, LabelStorm(0, 0, 0, 0, -1, ""))
	})

	t.Run("missing pressure uses standard atmosphere", func(t *testing.T) {
		// gust tier 2 + rain tier 1 = 3
		assert.Equal(t, LabelLow, LabelStorm(13, 2, 0, 0, -1, ""))
	})

	t.Run("thunderstorm text bonus", func(t *testing.T) {
		// gust 1 + rain 1 + text 2 = 4
		assert.Equal(t, LabelLow, LabelStorm(9, 2, 0, 0, 1013, "Scattered THUNDERSTORM"))
		// gust 2 + rain 2 + pressure 2 = 6
		assert.Equal(t, LabelMid, LabelStorm(13, 11, 0, 0, 999, "cloudy"))
		// same plus heavy bonus = 7, still mid
		assert.Equal(t, LabelMid, LabelStorm(13, 11, 0, 0, 999, "heavy rain"))
	})

	t.Run("mid-high and high", func(t *testing.T) {
		// gust 3 + rain 3 + pressure 3 = 9
		assert.Equal(t, LabelMidHigh, LabelStorm(19, 26, 0, 0, 994, ""))
		// gust 4 + rain 4 + pressure 4 = 12
		assert.Equal(t, LabelHigh, LabelStorm(26, 41, 0, 0, 985, ""))
	})

	t.Run("sustained wind does not contribute", func(t *testing.T) {
		assert.Equal(t, LabelStorm(13, 11, 0, 0, 999, ""), LabelStorm(13, 11, 0, 40, 999, ""))
	})
}

func TestLabelFlood(t *testing.T) {
	assert.Equal(t, LabelNo, LabelFlood(-1))
	assert.Equal(t, LabelNo, LabelFlood(0))
	assert.Equal(t, LabelNo, LabelFlood(500))
	assert.Equal(t, LabelLow, LabelFlood(501))
	assert.Equal(t, LabelMid, LabelFlood(2001))
	assert.Equal(t, LabelMidHigh, LabelFlood(5001))
	assert.Equal(t, LabelHigh, LabelFlood(8001))
}

func TestLabelEarthquake(t *testing.T) {
	tests := []struct {
		mag, dist float64
		want      HazardLabel
	}{
		{-1, 10, LabelNo},
		{7, -1, LabelNo},
		{6.0, 150, LabelHigh},
		{6.0, 151, LabelMidHigh},
		{5.5, 300, LabelMidHigh},
		{5.0, 500, LabelMid},
		{4.5, 800, LabelLow},
		{4.5, 801, LabelNo},
		{4.4, 10, LabelNo},
		{8.0, 900, LabelNo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelEarthquake(tt.mag, tt.dist), "mag=%v dist=%v", tt.mag, tt.dist)
	}
}

func TestLabelEarthquake_SentinelAbsorbsAnyDistance(t *testing.T) {
	for _, d := range []float64{-1, 0, 1, 100, 10000} {
		assert.Equal(t, LabelNo, LabelEarthquake(-1, d))
	}
}

func TestLabelers_Monotone(t *testing.T) {
	steps := []float64{0, 0.5, 1, 1.5, 3, 4, 10, 11, 20, 21, 25, 26, 40, 41, 50, 51, 80, 81, 200}

	for _, fixed := range steps {
		prevRain6, prevRain24, prevWind := LabelNo, LabelNo, LabelNo
		for _, v := range steps {
			r6 := LabelRain(v, fixed)
			r24 := LabelRain(fixed, v)
			w := LabelWind(v)
			assert.GreaterOrEqual(t, r6, prevRain6)
			assert.GreaterOrEqual(t, r24, prevRain24)
			assert.GreaterOrEqual(t, w, prevWind)
			prevRain6, prevRain24, prevWind = r6, r24, w
		}
	}

	prevFlood := LabelNo
	for _, v := range []float64{0, 100, 500, 501, 2000, 2001, 5000, 5001, 8000, 8001, 20000} {
		f := LabelFlood(v)
		assert.GreaterOrEqual(t, f, prevFlood)
		prevFlood = f
	}

	prevStorm := LabelNo
	for _, g := range []float64{0, 8.5, 12.5, 18.5, 25.5, 40} {
		s := LabelStorm(g, 11, 21, 0, 999, "")
		assert.GreaterOrEqual(t, s, prevStorm)
		prevStorm = s
	}

	prevQuake := LabelNo
	for _, m := range []float64{0, 4.5, 5.0, 5.5, 6.0, 7.5} {
		q := LabelEarthquake(m, 100)
		assert.GreaterOrEqual(t, q, prevQuake)
		prevQuake = q
	}
}

func TestLabelReading(t *testing.T) {
	r := NormalizedReading{
		Precip6:        12,
		Precip24:       30,
		Gust6:          19,
		Pressure:       -1,
		RiverDischarge: -1,
		EQMag:          -1,
		EQDist:         -1,
		Description:    "thunderstorm",
	}
	labels := LabelReading(r)

	assert.Equal(t, LabelMid, labels.Rain)
	assert.Equal(t, LabelMidHigh, labels.Wind)
	// gust 3 + rain 2 + pressure 0 + text 2 = 7
	assert.Equal(t, LabelMid, labels.Storm)
	assert.Equal(t, LabelNo, labels.Flood)
	assert.Equal(t, LabelNo, labels.Earthquake)
	assert.Equal(t, LabelMidHigh, labels.Max())
}
