// Package predictor runs the trained hazard classifier against a normalized
// reading and its rule labels. Inference is in-process over a JSON artifact;
// every failure degrades to domain.HazardUnknown rather than an error.
package predictor

import (
	"log/slog"
	"strings"

	"github.com/couchcryptid/hazard-engine/internal/domain"
)

// defaultClasses decodes class ids when no label encoder is available.
var defaultClasses = map[int]domain.Hazard{
	0: domain.HazardNo,
	1: domain.HazardRain,
	2: domain.HazardStorm,
	3: domain.HazardWind,
	4: domain.HazardFlood,
	5: domain.HazardEarthquake,
}

// Paths locates the model artifacts. Features and Encoder are optional.
type Paths struct {
	Model    string
	Features string
	Encoder  string
}

// Predictor is safe for concurrent use; it holds no mutable state after
// construction.
type Predictor struct {
	model    *Model
	features []string
	classes  []string
	logger   *slog.Logger
}

// New loads the artifacts at paths. It never fails: a missing or broken
// model yields a Predictor whose every prediction is Unknown.
func New(paths Paths, logger *slog.Logger) *Predictor {
	p := &Predictor{logger: logger}
	if paths.Model == "" {
		logger.Info("hazard model not configured, predictions disabled")
		return p
	}

	m, err := LoadModel(paths.Model)
	if err != nil {
		logger.Warn("hazard model unavailable, predictions disabled", "error", err, "path", paths.Model)
		return p
	}
	p.model = m

	p.features = m.FeatureNames
	if len(p.features) == 0 && paths.Features != "" {
		names, err := LoadManifest(paths.Features)
		if err != nil {
			logger.Warn("feature manifest unavailable", "error", err, "path", paths.Features)
		}
		p.features = names
	}
	if len(p.features) == 0 {
		logger.Warn("hazard model has no input features, predictions will be Unknown")
	}

	p.classes = m.Classes
	if paths.Encoder != "" {
		classes, err := LoadEncoder(paths.Encoder)
		if err != nil {
			logger.Warn("label encoder unavailable, using model classes", "error", err, "path", paths.Encoder)
		} else {
			p.classes = classes
		}
	}

	logger.Info("hazard model loaded",
		"kind", m.Kind,
		"features", len(p.features),
		"classes", len(p.classes),
	)
	return p
}

// NewFromModel wraps an already loaded model.
func NewFromModel(m *Model, features, classes []string, logger *slog.Logger) *Predictor {
	if len(features) == 0 && m != nil {
		features = m.FeatureNames
	}
	if len(classes) == 0 && m != nil {
		classes = m.Classes
	}
	return &Predictor{model: m, features: features, classes: classes, logger: logger}
}

// Enabled reports whether a model is loaded.
func (p *Predictor) Enabled() bool {
	return p != nil && p.model != nil
}

// Predict returns the model's overall hazard for the reading, or
// HazardUnknown when no prediction can be made.
func (p *Predictor) Predict(r domain.NormalizedReading, labels domain.LabelSet) domain.Hazard {
	if !p.Enabled() {
		return domain.HazardUnknown
	}
	if len(p.features) == 0 {
		p.logger.Debug("prediction skipped", "reading_id", r.ID, "error", errNoFeatures)
		return domain.HazardUnknown
	}

	x := p.vector(FeatureValues(r, labels))
	id, err := p.model.classify(x)
	if err != nil {
		p.logger.Warn("prediction failed", "reading_id", r.ID, "error", err)
		return domain.HazardUnknown
	}
	return p.decode(id)
}

// FeatureValues exposes every named input the model may ask for: the
// normalized signals and each kind's label ordinal as "<kind>_label".
func FeatureValues(r domain.NormalizedReading, labels domain.LabelSet) map[string]float64 {
	values := make(map[string]float64, len(domain.SignalNames)+len(domain.Kinds))
	for _, name := range domain.SignalNames {
		v, _ := r.Signal(name)
		values[name] = v
	}
	for _, k := range domain.Kinds {
		l, _ := labels.Get(k)
		values[string(k)+"_label"] = float64(l.Score())
	}
	return values
}

// vector orders values by the model's features, scaling when configured.
// Names the reading does not provide read as zero.
func (p *Predictor) vector(values map[string]float64) []float64 {
	x := make([]float64, len(p.features))
	for i, name := range p.features {
		v := values[name]
		if s := p.model.Scaler; s != nil {
			v -= s.Mean[name]
			if scale := s.Scale[name]; scale != 0 {
				v /= scale
			}
		}
		x[i] = v
	}
	return x
}

func (p *Predictor) decode(id int) domain.Hazard {
	if id >= 0 && id < len(p.classes) {
		return canonicalHazard(p.classes[id])
	}
	if h, ok := defaultClasses[id]; ok {
		return h
	}
	return domain.HazardUnknown
}

// canonicalHazard maps encoder class names ("flood", "none") onto the
// capitalized hazard names; unrecognized classes pass through unchanged.
func canonicalHazard(name string) domain.Hazard {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", "unknown":
		return domain.HazardUnknown
	case "no", "none", "safe":
		return domain.HazardNo
	}
	if k, ok := domain.Hazard(name).Kind(); ok {
		return k.Hazard()
	}
	return domain.Hazard(name)
}
