package sentiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedScorer float64

func (f fixedScorer) Polarity(string) float64 { return float64(f) }

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		polarity float64
		want     Label
	}{
		{0.5, Positive},
		{0.1000001, Positive},
		{0.1, Neutral},
		{0, Neutral},
		{-0.1, Neutral},
		{-0.1000001, Negative},
		{-0.9, Negative},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.polarity), "polarity %v", tt.polarity)
	}
}

func TestAnalyzerClampsScorerOutput(t *testing.T) {
	assert.Equal(t, Result{Polarity: 1, Label: Positive}, NewAnalyzer(fixedScorer(3)).Analyze("x"))
	assert.Equal(t, Result{Polarity: -1, Label: Negative}, NewAnalyzer(fixedScorer(-2)).Analyze("x"))
	assert.Equal(t, Result{Polarity: 0, Label: Neutral}, NewAnalyzer(fixedScorer(math.NaN())).Analyze("x"))
}

func TestAnalyzerBlankText(t *testing.T) {
	assert.Equal(t, Result{Label: Neutral}, NewAnalyzer(fixedScorer(0.9)).Analyze("   "))
}

func TestVaderScorer(t *testing.T) {
	a := NewAnalyzer(nil)

	assert.Equal(t, Positive, a.Analyze("This recommendation was great, thank you!").Label)
	assert.Equal(t, Negative, a.Analyze("Terrible advice, the drug made me feel awful.").Label)
}
