package segmentation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ClusterResult is the outcome of partitioning an n×d matrix into k clusters.
// Memberships is only set by the fuzzy clusterer and holds the n×k soft
// membership matrix.
type ClusterResult struct {
	Labels      []int
	Centers     *mat.Dense
	Inertia     float64
	Iterations  int
	Memberships *mat.Dense
}

func (r ClusterResult) K() int {
	if r.Centers == nil {
		return 0
	}
	k, _ := r.Centers.Dims()
	return k
}

type Clusterer interface {
	Cluster(X *mat.Dense, k int) (ClusterResult, error)
}

// NewClusterer picks the crisp or soft algorithm from cfg.
func NewClusterer(cfg Config) Clusterer {
	if cfg.Mode == ModeFuzzy {
		return FuzzyCMeans{
			M:         cfg.Fuzziness,
			MaxIter:   cfg.FuzzyMaxIter,
			Tolerance: cfg.FuzzyTolerance,
			Seed:      cfg.Seed,
		}
	}
	return KMeans{
		Restarts: cfg.KMeansRestarts,
		MaxIter:  cfg.KMeansMaxIter,
		Seed:     cfg.Seed,
	}
}

func checkClusterInput(X *mat.Dense, k int) error {
	if X == nil {
		return fmt.Errorf("%w: empty matrix", ErrInsufficientData)
	}
	n, _ := X.Dims()
	if k < 1 || k > n {
		return fmt.Errorf("%w: cannot form %d clusters from %d samples", ErrInsufficientData, k, n)
	}
	return nil
}

// seedCenters is k-means++ with squared Euclidean weights. Identical points
// fall back to a uniform pick.
func seedCenters(X *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := X.Dims()
	centers := mat.NewDense(k, d, nil)
	centers.SetRow(0, X.RawRowView(rng.Intn(n)))

	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = sqEuclidean(X.RawRowView(i), centers.RawRowView(0))
	}

	for c := 1; c < k; c++ {
		total := 0.0
		for _, v := range minDist {
			total += v
		}

		pick := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, v := range minDist {
				cum += v
				if cum >= target {
					pick = i
					break
				}
			}
		}
		centers.SetRow(c, X.RawRowView(pick))

		for i := range minDist {
			if dd := sqEuclidean(X.RawRowView(i), centers.RawRowView(c)); dd < minDist[i] {
				minDist[i] = dd
			}
		}
	}
	return centers
}

// nearest returns the closest center index (lowest index on ties) and the
// squared distance to it.
func nearest(p []float64, centers *mat.Dense) (int, float64) {
	k, _ := centers.Dims()
	best, bestDist := 0, math.Inf(1)
	for j := 0; j < k; j++ {
		if dd := sqEuclidean(p, centers.RawRowView(j)); dd < bestDist {
			best, bestDist = j, dd
		}
	}
	return best, bestDist
}

// canonicalize orders clusters by center coordinates so equal inputs always
// yield the same cluster numbering regardless of seeding order.
func canonicalize(res *ClusterResult) {
	k, d := res.Centers.Dims()
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := res.Centers.RawRowView(order[a]), res.Centers.RawRowView(order[b])
		for j := 0; j < d; j++ {
			if ra[j] != rb[j] {
				return ra[j] < rb[j]
			}
		}
		return false
	})

	remap := make([]int, k)
	centers := mat.NewDense(k, d, nil)
	for newIdx, old := range order {
		remap[old] = newIdx
		centers.SetRow(newIdx, res.Centers.RawRowView(old))
	}
	res.Centers = centers
	for i, l := range res.Labels {
		res.Labels[i] = remap[l]
	}
	if res.Memberships != nil {
		n, _ := res.Memberships.Dims()
		u := mat.NewDense(n, k, nil)
		for i := 0; i < n; i++ {
			for old := 0; old < k; old++ {
				u.Set(i, remap[old], res.Memberships.At(i, old))
			}
		}
		res.Memberships = u
	}
}
