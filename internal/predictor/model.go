package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Model kinds understood by the loader.
const (
	KindSoftmax = "softmax"
	KindTrees   = "trees"
)

var (
	errNoFeatures        = errors.New("model declares no input features")
	errDimensionMismatch = errors.New("feature vector does not match model dimensions")
)

// Model is the exported hazard classifier artifact.
type Model struct {
	Kind         string         `json:"kind"`
	FeatureNames []string       `json:"feature_names,omitempty"`
	Classes      []string       `json:"classes,omitempty"`
	Scaler       *Scaler        `json:"scaler,omitempty"`
	Softmax      *SoftmaxParams `json:"softmax,omitempty"`
	Trees        *TreeEnsemble  `json:"trees,omitempty"`
}

// Scaler standardizes features as (x - mean) / scale, keyed by feature name.
type Scaler struct {
	Mean  map[string]float64 `json:"mean"`
	Scale map[string]float64 `json:"scale"`
}

// SoftmaxParams is a multinomial logistic regression: one weight row and one
// intercept per class.
type SoftmaxParams struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// TreeEnsemble is a gradient-boosted set of regression trees. With NumClass
// above one, tree i contributes to class Class; otherwise all trees sum into
// a single output that is rounded to a class id.
type TreeEnsemble struct {
	NumClass  int     `json:"num_class"`
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// Tree is a flat node array rooted at index 0.
type Tree struct {
	Class int    `json:"class"`
	Nodes []Node `json:"nodes"`
}

// Node is a split (Feature, Threshold, Left, Right) or, when Leaf is set, a
// terminal value. Values below the threshold go left.
type Node struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	var m Model
	if err := readJSON(path, &m); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	switch m.Kind {
	case KindSoftmax:
		if m.Softmax == nil || len(m.Softmax.Weights) == 0 {
			return errors.New("softmax model has no weights")
		}
		if len(m.Softmax.Intercepts) != len(m.Softmax.Weights) {
			return fmt.Errorf("softmax model has %d weight rows but %d intercepts",
				len(m.Softmax.Weights), len(m.Softmax.Intercepts))
		}
	case KindTrees:
		if m.Trees == nil || len(m.Trees.Trees) == 0 {
			return errors.New("tree model has no trees")
		}
	default:
		return fmt.Errorf("unknown model kind %q", m.Kind)
	}
	return nil
}

// classify returns the winning class id for x.
func (m *Model) classify(x []float64) (int, error) {
	switch m.Kind {
	case KindSoftmax:
		return m.Softmax.classify(x)
	case KindTrees:
		return m.Trees.classify(x)
	}
	return 0, fmt.Errorf("unknown model kind %q", m.Kind)
}

// classify picks the class with the largest logit. Softmax is monotone so
// the probabilities are never materialized.
func (s *SoftmaxParams) classify(x []float64) (int, error) {
	logits := make([]float64, len(s.Weights))
	for c, row := range s.Weights {
		if len(row) != len(x) {
			return 0, errDimensionMismatch
		}
		z := s.Intercepts[c]
		for i, w := range row {
			z += w * x[i]
		}
		logits[c] = z
	}
	return argmax(logits), nil
}

func (e *TreeEnsemble) classify(x []float64) (int, error) {
	groups := max(e.NumClass, 1)
	margins := make([]float64, groups)
	for i := range margins {
		margins[i] = e.BaseScore
	}

	for _, t := range e.Trees {
		v, err := t.eval(x)
		if err != nil {
			return 0, err
		}
		c := 0
		if groups > 1 {
			c = t.Class
		}
		if c < 0 || c >= groups {
			return 0, fmt.Errorf("tree class %d outside %d classes", t.Class, groups)
		}
		margins[c] += v
	}

	if groups == 1 {
		return int(math.RoundToEven(margins[0])), nil
	}
	return argmax(margins), nil
}

func (t Tree) eval(x []float64) (float64, error) {
	idx := 0
	// A well-formed tree reaches a leaf in at most len(Nodes) steps.
	for range len(t.Nodes) {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("tree node %d out of range", idx)
		}
		n := t.Nodes[idx]
		if n.Leaf != nil {
			return *n.Leaf, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return 0, errDimensionMismatch
		}
		if x[n.Feature] < n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0, errors.New("tree does not terminate")
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// LoadManifest reads a feature manifest: a JSON array of feature names.
func LoadManifest(path string) ([]string, error) {
	var names []string
	if err := readJSON(path, &names); err != nil {
		return nil, fmt.Errorf("read feature manifest: %w", err)
	}
	return names, nil
}

// LoadEncoder reads a label encoder: {"classes": [...]} in class-id order.
func LoadEncoder(path string) ([]string, error) {
	var enc struct {
		Classes []string `json:"classes"`
	}
	if err := readJSON(path, &enc); err != nil {
		return nil, fmt.Errorf("read label encoder: %w", err)
	}
	return enc.Classes, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
