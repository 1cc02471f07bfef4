// Package knn recommends related diseases and their drugs by nearest
// neighbours over scaled symptom vectors.
package knn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Skufu/healthrec/internal/scaler"
)

var (
	ErrEmptyQuery = errors.New("disease name is empty")
	ErrNoMatch    = errors.New("no disease matches the query")
)

type Recommendation struct {
	Disease  string  `json:"disease"`
	Drug     string  `json:"drug"`
	Distance float64 `json:"distance"`
}

type Result struct {
	Query           string           `json:"query"`
	Matched         string           `json:"matched"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Recommender is read-only after New and safe for concurrent use.
type Recommender struct {
	diseases []string
	drugs    []string
	points   []row
	tree     *kdtree.Tree
}

// New indexes ds. When s is nil a scaler is fitted on the dataset itself.
func New(ds *Dataset, s *scaler.Standard) (*Recommender, error) {
	if ds == nil || len(ds.Rows) == 0 {
		return nil, errors.New("knn: empty dataset")
	}
	if s == nil {
		fitted, err := scaler.Fit(ds.Rows)
		if err != nil {
			return nil, fmt.Errorf("knn: fit scaler: %w", err)
		}
		s = fitted
	}
	if err := s.Validate(len(ds.Symptoms)); err != nil {
		return nil, fmt.Errorf("knn: scaler: %w", err)
	}

	points := make([]row, len(ds.Rows))
	for i, raw := range ds.Rows {
		vec, err := s.Transform(raw)
		if err != nil {
			return nil, fmt.Errorf("knn: row %d: %w", i, err)
		}
		points[i] = row{idx: i, vec: vec}
	}

	// kdtree.New reorders its input, so it gets its own slice.
	tree := kdtree.New(append(rows(nil), points...), false)

	return &Recommender{
		diseases: ds.Diseases,
		drugs:    ds.Drugs,
		points:   points,
		tree:     tree,
	}, nil
}

// Load reads the mapping CSV and, when scalerPath is set, the fitted scaler.
func Load(dataPath, scalerPath string) (*Recommender, error) {
	ds, err := LoadDataset(dataPath)
	if err != nil {
		return nil, err
	}
	var s *scaler.Standard
	if scalerPath != "" {
		if s, err = scaler.Load(scalerPath); err != nil {
			return nil, err
		}
	}
	return New(ds, s)
}

func (r *Recommender) Len() int { return len(r.points) }

// Match returns the row of the first disease, in file order, containing query
// as a case-insensitive substring.
func (r *Recommender) Match(query string) (int, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return -1, ErrEmptyQuery
	}
	for i, d := range r.diseases {
		if strings.Contains(d, q) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

// Recommend returns up to n neighbours of the matched row, nearest first.
// The matched row itself is never part of the result.
func (r *Recommender) Recommend(query string, n int) (Result, error) {
	if n < 1 {
		return Result{}, fmt.Errorf("knn: num_recs must be positive, got %d", n)
	}
	idx, err := r.Match(query)
	if err != nil {
		return Result{}, err
	}

	keeper := kdtree.NewNKeeper(n + 1)
	r.tree.NearestSet(keeper, r.points[idx])

	found := make([]kdtree.ComparableDist, 0, len(keeper.Heap))
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		if cd.Comparable.(row).idx == idx {
			continue
		}
		found = append(found, cd)
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Dist != found[j].Dist {
			return found[i].Dist < found[j].Dist
		}
		return found[i].Comparable.(row).idx < found[j].Comparable.(row).idx
	})
	if len(found) > n {
		found = found[:n]
	}

	res := Result{
		Query:           query,
		Matched:         r.diseases[idx],
		Recommendations: make([]Recommendation, 0, len(found)),
	}
	for _, cd := range found {
		i := cd.Comparable.(row).idx
		res.Recommendations = append(res.Recommendations, Recommendation{
			Disease:  r.diseases[i],
			Drug:     r.drugs[i],
			Distance: math.Sqrt(cd.Dist),
		})
	}
	return res, nil
}
