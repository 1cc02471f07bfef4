// Package sentiment labels free-text feedback by polarity.
package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"
)

type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Threshold separates neutral polarity from positive and negative.
const Threshold = 0.1

// Classify maps polarity to a label. Exactly ±Threshold is neutral.
func Classify(polarity float64) Label {
	switch {
	case polarity > Threshold:
		return Positive
	case polarity < -Threshold:
		return Negative
	default:
		return Neutral
	}
}

// Scorer returns a polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// VaderScorer scores text with the VADER lexicon's compound score.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Polarity(text string) float64 {
	return clamp(v.analyzer.PolarityScores(text).Compound)
}

type Result struct {
	Polarity float64 `json:"polarity"`
	Label    Label   `json:"sentiment"`
}

type Analyzer struct {
	scorer Scorer
}

// NewAnalyzer falls back to VADER when scorer is nil.
func NewAnalyzer(scorer Scorer) *Analyzer {
	if scorer == nil {
		scorer = NewVaderScorer()
	}
	return &Analyzer{scorer: scorer}
}

func (a *Analyzer) Analyze(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Label: Neutral}
	}
	p := clamp(a.scorer.Polarity(text))
	return Result{Polarity: p, Label: Classify(p)}
}

func clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(-1, math.Min(1, p))
}
