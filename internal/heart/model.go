package heart

import (
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"

	"github.com/Skufu/healthrec/internal/scaler"
)

// DiseaseLabel and NoDrug are what a heart prediction writes to the usage log.
const (
	DiseaseLabel = "Heart Disease"
	NoDrug       = "N/A"
)

// Artifact is the exported scaler + logistic regression.
type Artifact struct {
	Features  []string  `json:"features"`
	Mean      []float64 `json:"mean"`
	Scale     []float64 `json:"scale"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

type Prediction struct {
	Label         int        `json:"prediction"`
	Probabilities [2]float64 `json:"probabilities"`
}

// Text renders the label as YES/NO.
func (p Prediction) Text() string {
	if p.Label == 1 {
		return "YES"
	}
	return "NO"
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	scaler    *scaler.Standard
	coef      []float64
	intercept float64
}

func New(a Artifact) (*Classifier, error) {
	if len(a.Features) > 0 && !slices.Equal(a.Features, FeatureNames) {
		return nil, fmt.Errorf("artifact feature order %v does not match %v", a.Features, FeatureNames)
	}
	s := &scaler.Standard{Mean: a.Mean, Scale: a.Scale}
	if err := s.Validate(len(FeatureNames)); err != nil {
		return nil, fmt.Errorf("artifact scaler: %w", err)
	}
	if len(a.Coef) != len(FeatureNames) {
		return nil, fmt.Errorf("artifact has %d coefficients, want %d", len(a.Coef), len(FeatureNames))
	}
	return &Classifier{scaler: s, coef: a.Coef, intercept: a.Intercept}, nil
}

// Load reads an Artifact JSON file.
func Load(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read heart model %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode heart model %s: %w", path, err)
	}
	c, err := New(a)
	if err != nil {
		return nil, fmt.Errorf("heart model %s: %w", path, err)
	}
	return c, nil
}

func (c *Classifier) Predict(f Features) (Prediction, error) {
	x, err := f.Vector()
	if err != nil {
		return Prediction{}, err
	}
	return c.PredictVector(x)
}

// PredictVector scores a raw (unscaled) feature vector.
func (c *Classifier) PredictVector(x []float64) (Prediction, error) {
	z, err := c.scaler.Transform(x)
	if err != nil {
		return Prediction{}, err
	}
	p1 := sigmoid(floats.Dot(c.coef, z) + c.intercept)

	pred := Prediction{Probabilities: [2]float64{1 - p1, p1}}
	if p1 >= 0.5 {
		pred.Label = 1
	}
	return pred, nil
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
