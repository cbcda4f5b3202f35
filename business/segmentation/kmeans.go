package segmentation

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// KMeans is Lloyd's algorithm with k-means++ seeding and several restarts;
// the lowest-inertia run wins. Restart r is seeded with Seed+r so a fixed seed
// reproduces the same partition.
type KMeans struct {
	Restarts  int
	MaxIter   int
	Tolerance float64
	Seed      int64
}

func (km KMeans) Cluster(X *mat.Dense, k int) (ClusterResult, error) {
	if err := checkClusterInput(X, k); err != nil {
		return ClusterResult{}, err
	}
	restarts := km.Restarts
	if restarts <= 0 {
		restarts = 1
	}

	var best *ClusterResult
	for r := 0; r < restarts; r++ {
		rng := rand.New(rand.NewSource(km.Seed + int64(r)))
		res := km.run(X, k, rng)
		if best == nil || res.Inertia < best.Inertia {
			best = &res
		}
	}
	canonicalize(best)
	return *best, nil
}

func (km KMeans) run(X *mat.Dense, k int, rng *rand.Rand) ClusterResult {
	n, d := X.Dims()
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = defaultKMeansMaxIter
	}
	tol := km.Tolerance
	if tol <= 0 {
		tol = 1e-10
	}

	centers := seedCenters(X, k, rng)
	labels := make([]int, n)
	dist := make([]float64, n)

	iter := 0
	for iter = 1; iter <= maxIter; iter++ {
		for i := 0; i < n; i++ {
			labels[i], dist[i] = nearest(X.RawRowView(i), centers)
		}

		next := mat.NewDense(k, d, nil)
		counts := make([]int, k)
		for i := 0; i < n; i++ {
			row := next.RawRowView(labels[i])
			for j, v := range X.RawRowView(i) {
				row[j] += v
			}
			counts[labels[i]]++
		}

		taken := make(map[int]bool)
		for c := 0; c < k; c++ {
			row := next.RawRowView(c)
			if counts[c] == 0 {
				// reseed an empty cluster at the worst-served point
				far := farthestPoint(dist, taken)
				taken[far] = true
				copy(row, X.RawRowView(far))
				dist[far] = 0
				continue
			}
			for j := range row {
				row[j] /= float64(counts[c])
			}
		}

		shift := 0.0
		for c := 0; c < k; c++ {
			if s := sqEuclidean(centers.RawRowView(c), next.RawRowView(c)); s > shift {
				shift = s
			}
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i := 0; i < n; i++ {
		labels[i], dist[i] = nearest(X.RawRowView(i), centers)
		inertia += dist[i]
	}
	return ClusterResult{Labels: labels, Centers: centers, Inertia: inertia, Iterations: iter}
}

func farthestPoint(dist []float64, taken map[int]bool) int {
	best, bestDist := 0, math.Inf(-1)
	for i, dd := range dist {
		if taken[i] {
			continue
		}
		if dd > bestDist {
			best, bestDist = i, dd
		}
	}
	return best
}
