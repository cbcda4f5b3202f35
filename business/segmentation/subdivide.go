package segmentation

import (
	"fmt"
	"sort"

	"customerSegments/domain"

	"gonum.org/v1/gonum/mat"
)

const (
	maxSubdivisionK   = 4
	diameterTolerance = 1.5
)

// Partition is one leaf of a subdivision tree. Members index rows of the
// matrix handed to Split; Depth is relative to the split segment.
type Partition struct {
	Members []int
	Center  []float64
	Depth   int
}

// subNode is an arena entry. Children hold arena indices.
type subNode struct {
	members  []int
	center   []float64
	parent   int
	children []int
	depth    int
}

type Subdivider struct {
	selector    *Selector
	maxDepth    int
	minSize     int
	minMembers  int
	shareLimit  float64
	maxVariance float64
}

// NewSubdivider re-clusters with the given clusterer and a pure-silhouette
// selector; balance is already enforced at the top level.
func NewSubdivider(cfg Config, clusterer Clusterer) *Subdivider {
	sc := cfg
	sc.Policy = PolicySilhouette
	return &Subdivider{
		selector:    NewSelector(sc, clusterer),
		maxDepth:    cfg.MaxDepth,
		minSize:     cfg.MinSubsegmentSize,
		minMembers:  cfg.SubdivideMinMembers,
		shareLimit:  cfg.SubdivideShare,
		maxVariance: cfg.MaxVariance,
	}
}

// MaybeSubdivide returns seg unchanged, or the flattened leaves of its
// subdivision tree. members are the segment's scaled member vectors and
// axisTotal the population of the whole axis. Children keep the parent's
// scaler and feature order and point back to it through ParentID.
func (s *Subdivider) MaybeSubdivide(seg domain.DiscoveredSegment, members *mat.Dense, axisTotal int) []domain.DiscoveredSegment {
	parts := s.Split(members, seg.Center, axisTotal)
	if len(parts) <= 1 {
		return []domain.DiscoveredSegment{seg}
	}

	out := make([]domain.DiscoveredSegment, 0, len(parts))
	for i, p := range parts {
		child := seg
		child.ID = ""
		child.Name = fmt.Sprintf("%s_%d", seg.Name, i+1)
		child.ParentID = seg.ID
		child.Depth = seg.Depth + p.Depth
		child.Center = p.Center
		child.PopulationCount = len(p.Members)
		child.PopulationPct = 0
		if axisTotal > 0 {
			child.PopulationPct = 100 * float64(len(p.Members)) / float64(axisTotal)
		}
		out = append(out, child)
	}
	return out
}

// Split builds the subdivision tree breadth-first from an explicit queue and
// returns its leaves in arena order. A single partition means no split.
func (s *Subdivider) Split(X *mat.Dense, center []float64, axisTotal int) []Partition {
	if X == nil {
		return nil
	}
	n, _ := X.Dims()
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if len(center) == 0 {
		center = meanOf(X, all)
	}

	nodes := []subNode{{members: all, center: center, parent: -1}}
	queue := []int{0}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if !s.shouldSplit(X, nodes[id], axisTotal) {
			continue
		}
		for _, child := range s.split(X, nodes[id]) {
			child.parent = id
			child.depth = nodes[id].depth + 1
			nodes = append(nodes, child)
			cid := len(nodes) - 1
			nodes[id].children = append(nodes[id].children, cid)
			queue = append(queue, cid)
		}
	}

	var leaves []Partition
	for _, node := range nodes {
		if len(node.children) == 0 {
			leaves = append(leaves, Partition{Members: node.members, Center: node.center, Depth: node.depth})
		}
	}
	return leaves
}

// splitTriggers records which diversity signals fired on a node.
type splitTriggers struct {
	variance bool
	diameter bool
	share    bool
}

func (t splitTriggers) any() bool {
	return t.variance || t.diameter || t.share
}

// shouldSplit reports whether any diversity trigger fires on a node that is
// still allowed to split.
func (s *Subdivider) shouldSplit(X *mat.Dense, node subNode, axisTotal int) bool {
	if node.depth >= s.maxDepth || len(node.members) < 2*s.minSize || len(node.members) < 2 {
		return false
	}
	return s.triggers(X, node, axisTotal).any()
}

func (s *Subdivider) triggers(X *mat.Dense, node subNode, axisTotal int) splitTriggers {
	var t splitTriggers
	if len(node.members) == 0 {
		return t
	}
	dists := make([]float64, len(node.members))
	variance := 0.0
	for i, r := range node.members {
		dists[i] = euclidean(X.RawRowView(r), node.center)
		variance += dists[i] * dists[i]
	}
	variance /= float64(len(dists))
	sort.Float64s(dists)
	diameter := dists[len(dists)-1]
	p95 := quantile(dists, 0.95)

	t.variance = s.maxVariance > 0 && variance > s.maxVariance
	t.diameter = p95 > 0 && diameter > diameterTolerance*p95
	if axisTotal > 0 {
		share := float64(len(node.members)) / float64(axisTotal)
		t.share = share > s.shareLimit && len(node.members) >= s.minMembers
	}
	return t
}

func (s *Subdivider) split(X *mat.Dense, node subNode) []subNode {
	maxK := maxSubdivisionK
	if s.minSize > 0 && len(node.members)/s.minSize < maxK {
		maxK = len(node.members) / s.minSize
	}
	if maxK < 2 {
		return nil
	}

	sub := subsetRows(X, node.members)
	sel, err := s.selector.SelectK(sub, 2, maxK)
	if err != nil || sel.Skipped || sel.Metrics.Silhouette <= 0 {
		return nil
	}

	groups := make([][]int, sel.K)
	for i, l := range sel.Result.Labels {
		groups[l] = append(groups[l], node.members[i])
	}
	for _, g := range groups {
		if len(g) < s.minSize || len(g) == 0 {
			return nil
		}
	}

	children := make([]subNode, sel.K)
	for c := range children {
		children[c] = subNode{
			members: groups[c],
			center:  append([]float64(nil), sel.Result.Centers.RawRowView(c)...),
		}
	}
	return children
}

func meanOf(X *mat.Dense, rows []int) []float64 {
	_, d := X.Dims()
	out := make([]float64, d)
	if len(rows) == 0 {
		return out
	}
	for _, r := range rows {
		for j, v := range X.RawRowView(r) {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rows))
	}
	return out
}
