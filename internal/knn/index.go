package knn

import "gonum.org/v1/gonum/spatial/kdtree"

// row is a scaled symptom vector that remembers its dataset position.
type row struct {
	idx int
	vec []float64
}

func (p row) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(row)
	return p.vec[d] - q.vec[d]
}

func (p row) Dims() int { return len(p.vec) }

// Distance is the squared Euclidean distance.
func (p row) Distance(c kdtree.Comparable) float64 {
	q := c.(row)
	var sum float64
	for i, v := range p.vec {
		d := v - q.vec[i]
		sum += d * d
	}
	return sum
}

type rows []row

func (p rows) Index(i int) kdtree.Comparable         { return p[i] }
func (p rows) Len() int                              { return len(p) }
func (p rows) Pivot(d kdtree.Dim) int                { return plane{rows: p, Dim: d}.Pivot() }
func (p rows) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane pivots on a deterministic median so a given mapping always builds
// the same tree.
type plane struct {
	kdtree.Dim
	rows
}

func (p plane) Less(i, j int) bool                     { return p.rows[i].vec[p.Dim] < p.rows[j].vec[p.Dim] }
func (p plane) Pivot() int                             { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer { p.rows = p.rows[start:end]; return p }
func (p plane) Swap(i, j int)                          { p.rows[i], p.rows[j] = p.rows[j], p.rows[i] }
