// Package scaler implements standard (z-score) feature scaling shared by the
// heart classifier and the KNN recommender.
package scaler

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Standard maps x to (x - Mean) / Scale per column.
type Standard struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-column mean and population standard deviation. Columns
// with zero variance get a scale of 1.
func Fit(rows [][]float64) (*Standard, error) {
	if len(rows) == 0 {
		return nil, errors.New("scaler: no rows to fit")
	}
	dims := len(rows[0])
	col := make([]float64, len(rows))
	s := &Standard{Mean: make([]float64, dims), Scale: make([]float64, dims)}

	for j := 0; j < dims; j++ {
		for i, row := range rows {
			if len(row) != dims {
				return nil, fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), dims)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s, nil
}

// Load reads a {"mean": [...], "scale": [...]} JSON document.
func Load(path string) (*Standard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w", path, err)
	}
	var s Standard
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if err := s.Validate(0); err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the parameters; dims of 0 accepts any width.
func (s *Standard) Validate(dims int) error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("mean has %d values, scale has %d", len(s.Mean), len(s.Scale))
	}
	if dims > 0 && len(s.Mean) != dims {
		return fmt.Errorf("scaler has %d features, want %d", len(s.Mean), dims)
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scale[%d] is zero", i)
		}
	}
	return nil
}

func (s *Standard) Dims() int { return len(s.Mean) }

// Transform returns a scaled copy of x.
func (s *Standard) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: got %d features, want %d", len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.Mean)
	floats.Div(out, s.Scale)
	return out, nil
}
