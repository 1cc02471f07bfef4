package knn

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Dataset is the disease→drug mapping with one numeric symptom vector per row.
type Dataset struct {
	Diseases []string
	Drugs    []string
	Symptoms []string
	Rows     [][]float64
}

// LoadDataset reads a mapping CSV from path.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses a CSV with Disease and Drug columns plus any number of
// columns whose header contains "Symptom". Disease names are trimmed and
// lower-cased; empty symptom cells count as 0.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	diseaseCol, drugCol := -1, -1
	var symptomCols []int
	ds := &Dataset{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, "disease"):
			diseaseCol = i
		case strings.EqualFold(name, "drug"):
			drugCol = i
		case strings.Contains(name, "Symptom"):
			symptomCols = append(symptomCols, i)
			ds.Symptoms = append(ds.Symptoms, name)
		}
	}
	if diseaseCol < 0 || drugCol < 0 {
		return nil, errors.New("header must contain Disease and Drug columns")
	}
	if len(symptomCols) == 0 {
		return nil, errors.New("header has no Symptom columns")
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		vec := make([]float64, len(symptomCols))
		for j, col := range symptomCols {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[col], err)
			}
			vec[j] = v
		}

		ds.Diseases = append(ds.Diseases, strings.ToLower(strings.TrimSpace(record[diseaseCol])))
		ds.Drugs = append(ds.Drugs, strings.TrimSpace(record[drugCol]))
		ds.Rows = append(ds.Rows, vec)
	}

	if len(ds.Rows) == 0 {
		return nil, errors.New("mapping has no rows")
	}
	return ds, nil
}
