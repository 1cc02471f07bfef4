package scaler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitUsesPopulationStdDev(t *testing.T) {
	s, err := Fit([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)

	out, err := s.Transform([]float64{3, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, out)
}

func TestFitRejectsRaggedRows(t *testing.T) {
	_, err := Fit([][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	_, err = Fit(nil)
	assert.Error(t, err)
}

func TestTransformChecksWidth(t *testing.T) {
	s := &Standard{Mean: []float64{0, 0}, Scale: []float64{1, 1}}
	_, err := s.Transform([]float64{1})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"mean":[1,2],"scale":[2,4]}`), 0o600))
	s, err := Load(good)
	require.NoError(t, err)
	out, err := s.Transform([]float64{3, 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, out)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"mean":[1,2],"scale":[0,4]}`), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
