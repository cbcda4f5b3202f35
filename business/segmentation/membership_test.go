package segmentation

import (
	"math"
	"math/rand"
	"testing"

	"customerSegments/domain"
	"customerSegments/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testSegments() []domain.DiscoveredSegment {
	scaler := &domain.ScalerParams{
		Type:   domain.ScalerRobust,
		Center: []float64{10, 100},
		Scale:  []float64{5, 50},
	}
	names := []string{"orders", "spend"}
	return []domain.DiscoveredSegment{
		{Axis: "value", Name: "low", Center: []float64{-1, -1}, FeatureNames: names, Scaler: scaler},
		{Axis: "value", Name: "mid", Center: []float64{0, 0}, FeatureNames: names, Scaler: scaler},
		{Axis: "value", Name: "high", Center: []float64{2, 2}, FeatureNames: names, Scaler: scaler},
	}
}

func vector(orders, spend float64) domain.FeatureVector {
	return domain.FeatureVector{Names: []string{"orders", "spend"}, Values: []float64{orders, spend}}
}

func TestAssignMemberships_WeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	segs := testSegments()
	for i := 0; i < 200; i++ {
		v := vector(rng.Float64()*40, rng.ExpFloat64()*200)
		m, err := AssignMemberships(v, segs)
		require.NoError(t, err)
		require.Len(t, m, 3)

		sum := 0.0
		for _, w := range m {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestAssignMemberships_DegenerateVectorsStayFinite(t *testing.T) {
	segs := testSegments()
	cases := []domain.FeatureVector{
		vector(0, 0),
		vector(1e15, -1e15),
		vector(math.NaN(), math.Inf(1)),
		{},
	}
	for _, v := range cases {
		m, err := AssignMemberships(v, segs)
		require.NoError(t, err)
		sum := 0.0
		for _, w := range m {
			assert.False(t, math.IsNaN(w) || math.IsInf(w, 0))
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestAssignMemberships_NearestCenterDominates(t *testing.T) {
	m, err := AssignMemberships(vector(20, 200), testSegments())
	require.NoError(t, err)
	assert.Equal(t, "high", Dominant(m))
	assert.Greater(t, m["high"], m["mid"])
	assert.Greater(t, m["mid"], m["low"])
}

func TestAssignMemberships_AlignsByFeatureName(t *testing.T) {
	v := domain.FeatureVector{Names: []string{"spend", "orders"}, Values: []float64{200, 20}}
	a, err := AssignMemberships(v, testSegments())
	require.NoError(t, err)
	b, err := AssignMemberships(vector(20, 200), testSegments())
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestAlignFeatures(t *testing.T) {
	v := domain.FeatureVector{Names: []string{"spend", "orders", "cv"}, Values: []float64{200, 20, math.NaN()}}

	assert.Equal(t, []float64{20, 200, 0, 0}, alignFeatures(v, []string{"orders", "spend", "cv", "returns"}))
	assert.Equal(t, []float64{200, 20, 0}, alignFeatures(v, nil))
	assert.Equal(t, 0.0, v.Get("returns"))
}

func TestAssignMemberships_SkipsSegmentWithoutScaler(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer logger.SetForTest(core)()

	segs := testSegments()
	segs[0].Scaler = nil
	m, err := AssignMemberships(vector(10, 100), segs)
	require.NoError(t, err)
	assert.NotContains(t, m, "low")
	assert.Len(t, m, 2)
	assert.Equal(t, 1, logs.FilterMessage("segment_skipped").Len())

	for i := range segs {
		segs[i].Scaler = nil
	}
	_, err = AssignMemberships(vector(10, 100), segs)
	assert.ErrorIs(t, err, ErrMissingScaler)

	_, err = AssignMemberships(vector(10, 100), nil)
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestSoftmaxDistances_UniformFallback(t *testing.T) {
	m := softmaxDistances([]string{"a", "b"}, []float64{math.NaN(), math.Inf(1)})
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 0.5}, m)
}

func TestClassifyStrength(t *testing.T) {
	cases := []struct {
		name string
		m    map[string]float64
		want domain.MembershipStrength
	}{
		{"strong", map[string]float64{"a": 0.8, "b": 0.15, "c": 0.05}, domain.StrengthStrong},
		{"balanced", map[string]float64{"a": 0.45, "b": 0.35, "c": 0.2}, domain.StrengthBalanced},
		{"weak spread", map[string]float64{"a": 0.35, "b": 0.33, "c": 0.32}, domain.StrengthWeak},
		{"weak runner up", map[string]float64{"a": 0.6, "b": 0.25, "c": 0.15}, domain.StrengthWeak},
		{"boundary", map[string]float64{"a": 0.7, "b": 0.3}, domain.StrengthWeak},
		{"empty", map[string]float64{}, domain.StrengthWeak},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyStrength(tc.m))
		})
	}
}

func TestDominant_TieBreaksByName(t *testing.T) {
	m := map[string]float64{"zeta": 0.5, "alpha": 0.5}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "alpha", Dominant(m))
		assert.Equal(t, []string{"alpha", "zeta"}, TopSegments(m, 2))
	}
}

func TestBuildAxisProfile(t *testing.T) {
	p, err := BuildAxisProfile("c1", vector(10, 100), testSegments())
	require.NoError(t, err)
	assert.Equal(t, "mid", p.DominantSegment)
	assert.Equal(t, "value", p.Axis)
	assert.Len(t, p.TopSegments, 2)
	assert.Equal(t, "mid", p.TopSegments[0])
	assert.Equal(t, 100.0, p.Features["spend"])
	assert.Equal(t, ClassifyStrength(p.Memberships), p.Strength)
}
