package segmentation

import (
	"testing"

	"customerSegments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoGrids is two side×side grids centred at (-dx, 0) and (dx, 0).
func twoGrids(dx float64, side int, spacing float64) [][]float64 {
	return append(grid([]float64{-dx, 0}, side, spacing), grid([]float64{dx, 0}, side, spacing)...)
}

// blobWithOutliers is a wide main grid and a small tight group far to its
// right, under 5% of all points.
func blobWithOutliers() [][]float64 {
	return append(grid([]float64{0, 0}, 26, 0.05), grid([]float64{6, 0}, 5, 0.05)...)
}

func TestMaybeSubdivide_SplitsBroadSegmentInTwo(t *testing.T) {
	cfg := testConfig()
	members := denseFromRows(twoGrids(1.5, 10, 0.05), 2)
	axisTotal := 286 // 200 members is a 70% share

	seg := domain.DiscoveredSegment{
		ID:              "root",
		Axis:            AxisPurchaseFrequency,
		Name:            "frequent",
		Center:          meanOf(members, seq(200)),
		FeatureNames:    []string{"a", "b"},
		Scaler:          &domain.ScalerParams{Type: domain.ScalerRobust, Center: []float64{0, 0}, Scale: []float64{1, 1}},
		PopulationCount: 200,
	}

	sub := NewSubdivider(cfg, NewClusterer(cfg))
	fired := sub.triggers(members, subNode{members: seq(200), center: seg.Center}, axisTotal)
	require.Equal(t, splitTriggers{share: true}, fired)

	out := sub.MaybeSubdivide(seg, members, axisTotal)
	require.Len(t, out, 2)
	for _, child := range out {
		assert.Equal(t, "root", child.ParentID)
		assert.Equal(t, 100, child.PopulationCount)
		assert.Equal(t, 1, child.Depth)
		assert.Empty(t, child.ID)
		assert.Same(t, seg.Scaler, child.Scaler)
		assert.InDelta(t, 100*100.0/286, child.PopulationPct, 1e-9)
	}
	assert.InDelta(t, -1.5, out[0].Center[0], 1e-9)
	assert.InDelta(t, 1.5, out[1].Center[0], 1e-9)
	assert.NotEqual(t, out[0].Name, out[1].Name)

	// the same members at a 20% share stay together
	assert.Len(t, sub.MaybeSubdivide(seg, members, 1000), 1)
}

func TestSubdivider_EachTriggerAlone(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]float64
		axisTotal  int
		minSize    int
		minMembers int
		want       splitTriggers
		leaves     int
	}{
		{
			name:      "variance",
			rows:      twoGrids(5, 10, 0.1),
			axisTotal: 1000,
			want:      splitTriggers{variance: true},
			leaves:    2,
		},
		{
			name:      "diameter",
			rows:      blobWithOutliers(),
			axisTotal: 10000,
			minSize:   20,
			want:      splitTriggers{diameter: true},
			leaves:    2,
		},
		{
			name:      "share",
			rows:      twoGrids(1.5, 10, 0.05),
			axisTotal: 286,
			want:      splitTriggers{share: true},
			leaves:    2,
		},
		{
			name:      "share without enough members",
			rows:      twoGrids(1.5, 7, 0.05),
			axisTotal: 140,
			want:      splitTriggers{},
			leaves:    1,
		},
		{
			name:       "share with a lower member floor",
			rows:       twoGrids(1.5, 7, 0.05),
			axisTotal:  140,
			minMembers: 50,
			want:       splitTriggers{share: true},
			leaves:     2,
		},
		{
			name:      "compact",
			rows:      grid([]float64{3, 3}, 10, 0.1),
			axisTotal: 1000,
			want:      splitTriggers{},
			leaves:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.minSize > 0 {
				cfg.MinSubsegmentSize = tt.minSize
			}
			if tt.minMembers > 0 {
				cfg.SubdivideMinMembers = tt.minMembers
			}
			members := denseFromRows(tt.rows, 2)
			all := seq(len(tt.rows))
			sub := NewSubdivider(cfg, NewClusterer(cfg))

			got := sub.triggers(members, subNode{members: all, center: meanOf(members, all)}, tt.axisTotal)
			assert.Equal(t, tt.want, got)

			parts := sub.Split(members, nil, tt.axisTotal)
			assert.Len(t, parts, tt.leaves)
			total := 0
			for _, p := range parts {
				total += len(p.Members)
			}
			assert.Equal(t, len(tt.rows), total)
		})
	}
}

func TestMaybeSubdivide_KeepsCompactSegment(t *testing.T) {
	cfg := testConfig()
	members := denseFromRows(grid([]float64{3, 3}, 10, 0.1), 2)
	seg := domain.DiscoveredSegment{ID: "s", Center: []float64{3, 3}}

	out := NewSubdivider(cfg, NewClusterer(cfg)).MaybeSubdivide(seg, members, 1000)
	require.Len(t, out, 1)
	assert.Equal(t, "s", out[0].ID)
}

func TestSplit_RespectsDepthAndMinimumSize(t *testing.T) {
	rows := append(grid([]float64{0, 0}, 10, 0.1), grid([]float64{10, 0}, 10, 0.1)...)
	members := denseFromRows(rows, 2)

	cfg := testConfig()
	cfg.MaxDepth = 0
	parts := NewSubdivider(cfg, NewClusterer(cfg)).Split(members, nil, 200)
	assert.Len(t, parts, 1)

	cfg = testConfig()
	cfg.MinSubsegmentSize = 150
	parts = NewSubdivider(cfg, NewClusterer(cfg)).Split(members, nil, 200)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0].Members, 200)
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
