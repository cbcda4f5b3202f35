package segmentation

import (
	"fmt"
	"math"
	"sort"

	"customerSegments/domain"
	"customerSegments/pkg/logger"
)

const (
	strongThreshold       = 0.7
	balancedTopThreshold  = 0.4
	balancedNextThreshold = 0.3
)

// AssignMemberships computes a normalized membership over the segments of
// one axis using each segment's stored scaler. Segments without a usable
// scaler are skipped and logged. An error is returned only when no segment
// can be scored.
func AssignMemberships(v domain.FeatureVector, segments []domain.DiscoveredSegment) (map[string]float64, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	names := make([]string, 0, len(segments))
	dists := make([]float64, 0, len(segments))
	for _, seg := range segments {
		d, err := segmentDistance(v, seg)
		if err != nil {
			logger.Warn("segment_skipped", "axis", seg.Axis, "segment", seg.Name, "error", err)
			continue
		}
		names = append(names, seg.Name)
		dists = append(dists, d)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no scorable segment", ErrMissingScaler)
	}
	return softmaxDistances(names, dists), nil
}

func segmentDistance(v domain.FeatureVector, seg domain.DiscoveredSegment) (float64, error) {
	if seg.Scaler == nil {
		return 0, ErrMissingScaler
	}
	raw := alignFeatures(v, seg.FeatureNames)
	z, err := Transform(raw, seg.Scaler)
	if err != nil {
		return 0, err
	}
	if len(z) != len(seg.Center) {
		return 0, fmt.Errorf("%w: center has %d dims, vector %d", ErrDimensionMismatch, len(seg.Center), len(z))
	}
	return euclidean(z, seg.Center), nil
}

// alignFeatures orders v by the segment's feature list. Missing features are 0.
func alignFeatures(v domain.FeatureVector, names []string) []float64 {
	if len(names) == 0 {
		return sanitizeSlice(v.Values)
	}
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = sanitize(v.Get(n))
	}
	return out
}

// softmaxDistances turns distances into exp(-d) weights. Distances are shifted
// by their minimum first, which leaves the normalized weights unchanged but
// keeps far-away points from underflowing to zero.
func softmaxDistances(names []string, dists []float64) map[string]float64 {
	minD := math.Inf(1)
	for _, d := range dists {
		if !math.IsNaN(d) && d < minD {
			minD = d
		}
	}

	weights := make([]float64, len(dists))
	sum := 0.0
	for i, d := range dists {
		if math.IsNaN(d) || math.IsInf(d, 0) || math.IsInf(minD, 0) {
			continue
		}
		weights[i] = math.Exp(-(d - minD))
		sum += weights[i]
	}

	out := make(map[string]float64, len(names))
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		u := 1 / float64(len(names))
		for _, n := range names {
			out[n] += u
		}
		return out
	}
	for i, n := range names {
		out[n] += weights[i] / sum
	}
	return out
}

type rankedSegment struct {
	Name   string
	Weight float64
}

// rankMemberships sorts by weight descending with names breaking ties, so the
// order never depends on map iteration.
func rankMemberships(m map[string]float64) []rankedSegment {
	out := make([]rankedSegment, 0, len(m))
	for n, w := range m {
		out = append(out, rankedSegment{Name: n, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Dominant returns the highest-weight segment name.
func Dominant(m map[string]float64) string {
	r := rankMemberships(m)
	if len(r) == 0 {
		return ""
	}
	return r[0].Name
}

func TopSegments(m map[string]float64, n int) []string {
	r := rankMemberships(m)
	if len(r) > n {
		r = r[:n]
	}
	out := make([]string, len(r))
	for i, s := range r {
		out[i] = s.Name
	}
	return out
}

func ClassifyStrength(m map[string]float64) domain.MembershipStrength {
	r := rankMemberships(m)
	var top, next float64
	if len(r) > 0 {
		top = r[0].Weight
	}
	if len(r) > 1 {
		next = r[1].Weight
	}
	switch {
	case top > strongThreshold:
		return domain.StrengthStrong
	case top > balancedTopThreshold && next > balancedNextThreshold:
		return domain.StrengthBalanced
	}
	return domain.StrengthWeak
}

// BuildAxisProfile scores one customer on one axis.
func BuildAxisProfile(customerID string, v domain.FeatureVector, segments []domain.DiscoveredSegment) (domain.CustomerAxisProfile, error) {
	m, err := AssignMemberships(v, segments)
	if err != nil {
		return domain.CustomerAxisProfile{}, err
	}
	axis := ""
	if len(segments) > 0 {
		axis = segments[0].Axis
	}
	return domain.CustomerAxisProfile{
		CustomerID:      customerID,
		Axis:            axis,
		Memberships:     m,
		DominantSegment: Dominant(m),
		TopSegments:     TopSegments(m, 2),
		Strength:        ClassifyStrength(m),
		Features:        v.AsMap(),
	}, nil
}
