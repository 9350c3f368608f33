package predictor

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/hazard-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, name string, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func leaf(v float64) *float64 { return &v }

// rainModel predicts Rain once 24h precipitation outweighs the No intercept,
// and No when a flood label is present.
func rainModel() *Model {
	return &Model{
		Kind:         KindSoftmax,
		FeatureNames: []string{"precip24", "flood_label"},
		Softmax: &SoftmaxParams{
			Weights: [][]float64{
				{0, -1},
				{0.1, 0},
				{0, 0},
			},
			Intercepts: []float64{1, 0, -10},
		},
	}
}

func TestPredict_Softmax(t *testing.T) {
	p := NewFromModel(rainModel(), nil, nil, slog.Default())
	require.True(t, p.Enabled())

	assert.Equal(t, domain.HazardRain, p.Predict(domain.NormalizedReading{Precip24: 50}, domain.LabelSet{}))
	assert.Equal(t, domain.HazardNo, p.Predict(domain.NormalizedReading{Precip24: 0}, domain.LabelSet{}))
}

func TestPredict_Scaler(t *testing.T) {
	m := rainModel()
	m.Scaler = &Scaler{
		Mean:  map[string]float64{"precip24": 50},
		Scale: map[string]float64{"precip24": 10},
	}
	p := NewFromModel(m, nil, nil, slog.Default())

	// (50-50)/10 = 0 leaves the No intercept on top.
	assert.Equal(t, domain.HazardNo, p.Predict(domain.NormalizedReading{Precip24: 50}, domain.LabelSet{}))
	// (150-50)/10 = 10, logit 1.0 ties No and argmax keeps the first.
	assert.Equal(t, domain.HazardNo, p.Predict(domain.NormalizedReading{Precip24: 150}, domain.LabelSet{}))
	assert.Equal(t, domain.HazardRain, p.Predict(domain.NormalizedReading{Precip24: 160}, domain.LabelSet{}))
}

func TestPredict_TreesMulticlass(t *testing.T) {
	m := &Model{
		Kind:         KindTrees,
		FeatureNames: []string{"river_discharge"},
		Trees: &TreeEnsemble{
			NumClass:  2,
			BaseScore: 0.5,
			Trees: []Tree{
				{Class: 0, Nodes: []Node{{Leaf: leaf(0.2)}}},
				{Class: 1, Nodes: []Node{
					{Feature: 0, Threshold: 2000, Left: 1, Right: 2},
					{Leaf: leaf(-1)},
					{Leaf: leaf(1)},
				}},
			},
		},
	}
	p := NewFromModel(m, nil, []string{"none", "flood"}, slog.Default())

	assert.Equal(t, domain.HazardFlood, p.Predict(domain.NormalizedReading{RiverDischarge: 3000}, domain.LabelSet{}))
	assert.Equal(t, domain.HazardNo, p.Predict(domain.NormalizedReading{RiverDischarge: 100}, domain.LabelSet{}))
}

func TestPredict_TreesSingleOutputRounds(t *testing.T) {
	m := &Model{
		Kind:         KindTrees,
		FeatureNames: []string{"eq_mag"},
		Trees: &TreeEnsemble{Trees: []Tree{{Nodes: []Node{
			{Feature: 0, Threshold: 5, Left: 1, Right: 2},
			{Leaf: leaf(0)},
			{Feature: 0, Threshold: 6.5, Left: 3, Right: 4},
			{Leaf: leaf(5.2)},
			{Leaf: leaf(6.7)},
		}}}},
	}
	p := NewFromModel(m, nil, nil, slog.Default())

	assert.Equal(t, domain.HazardNo, p.Predict(domain.NormalizedReading{EQMag: 3}, domain.LabelSet{}))
	assert.Equal(t, domain.HazardEarthquake, p.Predict(domain.NormalizedReading{EQMag: 6}, domain.LabelSet{}))
	// class 7 is outside both the encoder and the default map
	assert.Equal(t, domain.HazardUnknown, p.Predict(domain.NormalizedReading{EQMag: 7}, domain.LabelSet{}))
}

func TestPredict_LabelFeatures(t *testing.T) {
	values := FeatureValues(domain.NormalizedReading{Temperature: 28.5}, domain.LabelSet{Flood: domain.LabelHigh, Wind: domain.LabelMid})

	assert.Equal(t, 28.5, values["temperature"])
	assert.Equal(t, 4.0, values["flood_label"])
	assert.Equal(t, 2.0, values["wind_label"])
	assert.Equal(t, 0.0, values["rain_label"])
	assert.Len(t, values, 15)

	// A flood label pushes the No logit down far enough for Rain to win.
	p := NewFromModel(rainModel(), nil, nil, slog.Default())
	assert.Equal(t, domain.HazardRain, p.Predict(domain.NormalizedReading{Precip24: 5}, domain.LabelSet{Flood: domain.LabelHigh}))
}

func TestPredict_UnknownFeatureReadsZero(t *testing.T) {
	m := rainModel()
	m.FeatureNames = []string{"precip24", "soil_moisture"}
	p := NewFromModel(m, nil, nil, slog.Default())

	assert.Equal(t, domain.HazardRain, p.Predict(domain.NormalizedReading{Precip24: 50}, domain.LabelSet{}))
}

func TestPredict_DegradesToUnknown(t *testing.T) {
	r := domain.NormalizedReading{Precip24: 50}

	t.Run("no model", func(t *testing.T) {
		p := New(Paths{}, slog.Default())
		assert.False(t, p.Enabled())
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})

	t.Run("nil predictor", func(t *testing.T) {
		var p *Predictor
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})

	t.Run("missing file", func(t *testing.T) {
		p := New(Paths{Model: filepath.Join(t.TempDir(), "absent.json")}, slog.Default())
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})

	t.Run("unknown kind", func(t *testing.T) {
		path := writeJSON(t, "model.json", map[string]any{"kind": "svm"})
		p := New(Paths{Model: path}, slog.Default())
		assert.False(t, p.Enabled())
	})

	t.Run("no features", func(t *testing.T) {
		m := rainModel()
		m.FeatureNames = nil
		p := NewFromModel(m, nil, nil, slog.Default())
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		m := rainModel()
		m.FeatureNames = []string{"precip24"}
		p := NewFromModel(m, nil, nil, slog.Default())
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})

	t.Run("cyclic tree", func(t *testing.T) {
		m := &Model{
			Kind:         KindTrees,
			FeatureNames: []string{"precip24"},
			Trees: &TreeEnsemble{Trees: []Tree{{Nodes: []Node{
				{Feature: 0, Threshold: 1, Left: 0, Right: 0},
			}}}},
		}
		p := NewFromModel(m, nil, nil, slog.Default())
		assert.Equal(t, domain.HazardUnknown, p.Predict(r, domain.LabelSet{}))
	})
}

func TestNew_LoadsArtifacts(t *testing.T) {
	m := rainModel()
	m.FeatureNames = nil

	modelPath := writeJSON(t, "model.json", m)
	featuresPath := writeJSON(t, "features.json", []string{"precip24", "flood_label"})
	encoderPath := writeJSON(t, "encoder.json", map[string]any{"classes": []string{"No", "Flood", "Storm"}})

	p := New(Paths{Model: modelPath, Features: featuresPath, Encoder: encoderPath}, slog.Default())
	require.True(t, p.Enabled())

	// class 1 decodes through the side-loaded encoder, not the default map
	assert.Equal(t, domain.HazardFlood, p.Predict(domain.NormalizedReading{Precip24: 50}, domain.LabelSet{}))
}

func TestNew_BadEncoderKeepsModelClasses(t *testing.T) {
	m := rainModel()
	m.Classes = []string{"No", "Rain", "Storm"}
	modelPath := writeJSON(t, "model.json", m)

	p := New(Paths{Model: modelPath, Encoder: filepath.Join(t.TempDir(), "missing.json")}, slog.Default())

	assert.Equal(t, domain.HazardRain, p.Predict(domain.NormalizedReading{Precip24: 50}, domain.LabelSet{}))
}

func TestCanonicalHazard(t *testing.T) {
	assert.Equal(t, domain.HazardFlood, canonicalHazard("flood"))
	assert.Equal(t, domain.HazardEarthquake, canonicalHazard(" EARTHQUAKE "))
	assert.Equal(t, domain.HazardNo, canonicalHazard("none"))
	assert.Equal(t, domain.HazardUnknown, canonicalHazard(""))
	assert.Equal(t, domain.Hazard("Typhoon"), canonicalHazard("Typhoon"))
}
