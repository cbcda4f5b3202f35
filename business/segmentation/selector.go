package segmentation

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// QualityMetrics describes one candidate clustering.
type QualityMetrics struct {
	K             int     `json:"k"`
	Silhouette    float64 `json:"silhouette"`
	LargestShare  float64 `json:"largest_share"`
	SmallestShare float64 `json:"smallest_share"`
	SizeCV        float64 `json:"size_cv"`
	ClusterSizes  []int   `json:"cluster_sizes"`
	Inertia       float64 `json:"inertia"`
	Balanced      bool    `json:"balanced"`
}

// Selection is the chosen clustering for one matrix. Skipped is set when
// there were too few samples to try any k; Result is then empty.
type Selection struct {
	K                  int
	Result             ClusterResult
	Metrics            QualityMetrics
	Candidates         []QualityMetrics
	QualityBelowTarget bool
	Skipped            bool
}

type Selector struct {
	clusterer        Clusterer
	policy           SelectionPolicy
	minSilhouette    float64
	maxDominantShare float64
	minSegmentShare  float64
	samples          int
	seed             int64
}

func NewSelector(cfg Config, clusterer Clusterer) *Selector {
	return &Selector{
		clusterer:        clusterer,
		policy:           cfg.Policy,
		minSilhouette:    cfg.MinSilhouette,
		maxDominantShare: cfg.MaxDominantShare,
		minSegmentShare:  cfg.MinSegmentShare,
		samples:          cfg.SilhouetteSamples,
		seed:             cfg.Seed,
	}
}

// SelectK clusters X once per candidate k in [minK, min(maxK, n-1)] and picks
// one. Under the balanced policy, candidates with a dominant or negligible
// cluster are rejected; when all are rejected the best-separated k is kept
// and flagged.
func (s *Selector) SelectK(X *mat.Dense, minK, maxK int) (Selection, error) {
	if X == nil {
		return Selection{Skipped: true}, nil
	}
	n, _ := X.Dims()
	hi := maxK
	if hi > n-1 {
		hi = n - 1
	}
	if n < minK || hi < minK {
		return Selection{Skipped: true}, nil
	}

	var (
		results    []ClusterResult
		candidates []QualityMetrics
	)
	for k := minK; k <= hi; k++ {
		res, err := s.clusterer.Cluster(X, k)
		if err != nil {
			return Selection{}, err
		}
		results = append(results, res)
		candidates = append(candidates, s.evaluate(X, res, k))
	}

	bestOverall := bestBySilhouette(candidates, func(QualityMetrics) bool { return true })
	pick := bestOverall
	below := false

	if s.policy == PolicyBalanced {
		if b := bestBySilhouette(candidates, func(q QualityMetrics) bool { return q.Balanced }); b >= 0 {
			pick = b
		} else {
			below = true
		}
	}
	if candidates[pick].Silhouette < s.minSilhouette {
		below = true
	}

	return Selection{
		K:                  candidates[pick].K,
		Result:             results[pick],
		Metrics:            candidates[pick],
		Candidates:         candidates,
		QualityBelowTarget: below,
	}, nil
}

// bestBySilhouette returns the index of the highest silhouette among
// candidates accepted by keep, preferring the smaller k on ties, or -1.
func bestBySilhouette(candidates []QualityMetrics, keep func(QualityMetrics) bool) int {
	best := -1
	for i, q := range candidates {
		if !keep(q) {
			continue
		}
		if best < 0 || q.Silhouette > candidates[best].Silhouette+1e-12 {
			best = i
		}
	}
	return best
}

func (s *Selector) evaluate(X *mat.Dense, res ClusterResult, k int) QualityMetrics {
	n, _ := X.Dims()
	sizes := clusterSizes(res.Labels, k)
	q := QualityMetrics{
		K:            k,
		ClusterSizes: sizes,
		Inertia:      res.Inertia,
		Silhouette:   silhouette(X, res.Labels, k, s.samples, s.seed),
	}

	fs := make([]float64, k)
	q.SmallestShare = 1
	for i, c := range sizes {
		share := float64(c) / float64(n)
		fs[i] = float64(c)
		if share > q.LargestShare {
			q.LargestShare = share
		}
		if share < q.SmallestShare {
			q.SmallestShare = share
		}
	}
	mean, std := stat.PopMeanStdDev(fs, nil)
	if mean > 0 {
		q.SizeCV = std / mean
	}
	q.Balanced = q.LargestShare <= s.maxDominantShare && q.SmallestShare >= s.minSegmentShare
	return q
}

// silhouette is the mean silhouette coefficient. Singleton clusters score 0
// and fewer than two non-empty clusters give 0 overall. Populations larger
// than maxSamples are scored on a seeded random subset.
func silhouette(X *mat.Dense, labels []int, k, maxSamples int, seed int64) float64 {
	n, _ := X.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if maxSamples > 0 && n > maxSamples {
		rng := rand.New(rand.NewSource(seed))
		idx = rng.Perm(n)[:maxSamples]
	}

	sizes := make([]int, k)
	for _, i := range idx {
		sizes[labels[i]]++
	}
	nonEmpty := 0
	for _, c := range sizes {
		if c > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return 0
	}

	sums := make([]float64, k)
	total := 0.0
	for _, i := range idx {
		for c := range sums {
			sums[c] = 0
		}
		p := X.RawRowView(i)
		for _, j := range idx {
			if i == j {
				continue
			}
			sums[labels[j]] += euclidean(p, X.RawRowView(j))
		}

		own := labels[i]
		if sizes[own] <= 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if m := sums[c] / float64(sizes[c]); m < b {
				b = m
			}
		}
		if den := math.Max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(len(idx))
}
