package segmentation

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FuzzyCMeans is soft clustering: every sample carries a membership in each
// cluster, rows summing to 1. Centers start from k-means++ seeds so runs are
// reproducible for a fixed Seed.
type FuzzyCMeans struct {
	M         float64
	MaxIter   int
	Tolerance float64
	Seed      int64
}

func (f FuzzyCMeans) Cluster(X *mat.Dense, k int) (ClusterResult, error) {
	if err := checkClusterInput(X, k); err != nil {
		return ClusterResult{}, err
	}
	n, d := X.Dims()
	m := f.M
	if m <= 1 {
		m = defaultFuzziness
	}
	maxIter := f.MaxIter
	if maxIter <= 0 {
		maxIter = defaultFuzzyMaxIter
	}
	tol := f.Tolerance
	if tol <= 0 {
		tol = defaultFuzzyTolerance
	}

	rng := rand.New(rand.NewSource(f.Seed))
	centers := seedCenters(X, k, rng)
	u := mat.NewDense(n, k, nil)
	updateMemberships(X, centers, u, m)

	iter := 0
	for iter = 1; iter <= maxIter; iter++ {
		centers = weightedCenters(X, u, k, d, m)
		prev := mat.DenseCopyOf(u)
		updateMemberships(X, centers, u, m)

		delta := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				if dv := math.Abs(u.At(i, j) - prev.At(i, j)); dv > delta {
					delta = dv
				}
			}
		}
		if delta < tol {
			break
		}
	}

	labels := make([]int, n)
	inertia := 0.0
	for i := 0; i < n; i++ {
		row := u.RawRowView(i)
		labels[i] = argmax(row)
		for j := 0; j < k; j++ {
			inertia += math.Pow(row[j], m) * sqEuclidean(X.RawRowView(i), centers.RawRowView(j))
		}
	}

	res := ClusterResult{Labels: labels, Centers: centers, Inertia: inertia, Iterations: iter, Memberships: u}
	canonicalize(&res)
	return res, nil
}

func weightedCenters(X, u *mat.Dense, k, d int, m float64) *mat.Dense {
	n, _ := X.Dims()
	centers := mat.NewDense(k, d, nil)
	for j := 0; j < k; j++ {
		row := centers.RawRowView(j)
		wsum := 0.0
		for i := 0; i < n; i++ {
			w := math.Pow(u.At(i, j), m)
			wsum += w
			for c, v := range X.RawRowView(i) {
				row[c] += w * v
			}
		}
		if wsum > 0 {
			for c := range row {
				row[c] /= wsum
			}
		}
	}
	return centers
}

// updateMemberships applies u_ij = 1 / Σ_l (d_ij/d_il)^(2/(m-1)). A sample
// sitting exactly on one or more centers splits its membership among them.
func updateMemberships(X, centers, u *mat.Dense, m float64) {
	n, _ := X.Dims()
	k, _ := centers.Dims()
	exp := 2 / (m - 1)
	dist := make([]float64, k)

	for i := 0; i < n; i++ {
		p := X.RawRowView(i)
		row := u.RawRowView(i)
		zeros := 0
		for j := 0; j < k; j++ {
			dist[j] = euclidean(p, centers.RawRowView(j))
			if dist[j] < 1e-12 {
				zeros++
			}
		}
		if zeros > 0 {
			for j := 0; j < k; j++ {
				row[j] = 0
				if dist[j] < 1e-12 {
					row[j] = 1 / float64(zeros)
				}
			}
			continue
		}
		for j := 0; j < k; j++ {
			s := 0.0
			for l := 0; l < k; l++ {
				s += math.Pow(dist[j]/dist[l], exp)
			}
			row[j] = 1 / s
		}
	}
}
