package segmentation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxFeatureValue bounds every feature so a single infinite value cannot
// poison means, quantiles or distances.
const maxFeatureValue = 1e12

// sanitize maps NaN to 0 and clamps everything else into ±maxFeatureValue.
func sanitize(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxFeatureValue:
		return maxFeatureValue
	case v < -maxFeatureValue:
		return -maxFeatureValue
	}
	return v
}

func sanitizeSlice(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = sanitize(v)
	}
	return out
}

// denseFromRows copies rows into a sanitized matrix. Short rows are padded
// with zeros so every row has len(names) columns.
func denseFromRows(rows [][]float64, cols int) *mat.Dense {
	if len(rows) == 0 || cols == 0 {
		return nil
	}
	data := make([]float64, len(rows)*cols)
	for i, r := range rows {
		for j := 0; j < cols && j < len(r); j++ {
			data[i*cols+j] = sanitize(r[j])
		}
	}
	return mat.NewDense(len(rows), cols, data)
}

func subsetRows(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return nil
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

func euclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

func sqEuclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func sortedColumn(X *mat.Dense, j int) []float64 {
	col := mat.Col(nil, j, X)
	sort.Float64s(col)
	return col
}

// quantile expects sorted input and p in [0, 1].
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// percentileRank is the mid-rank of v within sorted, in [0, 100]. Ties
// count half, so a constant column ranks every value at 50.
func percentileRank(sorted []float64, v float64) float64 {
	if len(sorted) == 0 {
		return 50
	}
	below := sort.SearchFloat64s(sorted, v)
	upTo := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
	return 100 * (float64(below) + 0.5*float64(upTo-below)) / float64(len(sorted))
}

func clusterSizes(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		if l >= 0 && l < k {
			sizes[l]++
		}
	}
	return sizes
}

func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
