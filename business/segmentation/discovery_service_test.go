//go:build !integration

package segmentation

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"testing"

	"customerSegments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bimodalFrequency is 500 one-time buyers and 500 customers with 50 weekly
// orders each.
func bimodalFrequency() []domain.CustomerHistory {
	var out []domain.CustomerHistory
	for i := 0; i < 500; i++ {
		out = append(out, regularHistory(fmt.Sprintf("once-%03d", i), 1, 7, 3, 20))
		out = append(out, regularHistory(fmt.Sprintf("weekly-%03d", i), 50, 7, 1, 20))
	}
	return out
}

func mixedPopulation(seed int64, n int) []domain.CustomerHistory {
	rng := rand.New(rand.NewSource(seed))
	categories := []string{"produce", "dairy", "bakery", "pantry"}
	channels := []string{domain.ChannelOnline, domain.ChannelMobile, domain.ChannelStore}

	out := make([]domain.CustomerHistory, n)
	for i := range out {
		id := fmt.Sprintf("cust-%04d", i)
		h := domain.CustomerHistory{CustomerID: id}
		orders := 1 + rng.Intn(25)
		gap := 3 + rng.Intn(40)
		base := 10 + rng.Float64()*150
		for j := 0; j < orders; j++ {
			o := order(id, j*gap+rng.Intn(3), base*(0.5+rng.Float64()))
			o.ID = fmt.Sprintf("%s-%d", id, j)
			if rng.Float64() < 0.3 {
				o.DiscountAmount = o.TotalAmount * 0.2
			}
			if rng.Float64() < 0.05 {
				o.RefundAmount = o.TotalAmount
			}
			o.Channel = channels[rng.Intn(len(channels))]
			o.Items = []domain.LineItem{{Category: categories[rng.Intn(len(categories))], Quantity: 1 + rng.Intn(3)}}
			h.Orders = append(h.Orders, o)
		}
		out[i] = h
	}
	return out
}

func TestDiscover_SeparatesOneTimeFromWeeklyBuyers(t *testing.T) {
	svc, err := NewDiscoveryService(testConfig(), nil, nil)
	require.NoError(t, err)

	res, err := svc.Discover(context.Background(), "t1", bimodalFrequency(), testNow)
	require.NoError(t, err)

	ar := res.Axes[AxisPurchaseFrequency]
	require.NotNil(t, ar)
	d := ar.Diagnostics
	t.Logf("k=%d silhouette=%.3f largest=%.3f status=%s", d.K, d.Silhouette, d.LargestShare, d.Status)

	assert.Equal(t, AxisOK, d.Status)
	assert.Equal(t, 2, d.K)
	assert.Greater(t, d.Silhouette, 0.7)
	require.Len(t, ar.Segments, 2)
	names := map[string]bool{}
	for _, s := range ar.Segments {
		assert.InDelta(t, 50.0, s.PopulationPct, 0.5)
		assert.Equal(t, 500, s.PopulationCount)
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, res.RunID, s.RunID)
		assert.Equal(t, s.Scaler.Dim(), len(s.Center))
		names[s.Name] = true
	}
	assert.True(t, names["low_purchase_frequency"])
	assert.True(t, names["high_purchase_frequency"])
}

func TestDiscover_IsReproducible(t *testing.T) {
	pop := mixedPopulation(17, 240)
	svc, err := NewDiscoveryService(testConfig(), nil, nil)
	require.NoError(t, err)

	a, err := svc.Discover(context.Background(), "t1", pop, testNow)
	require.NoError(t, err)
	// input order must not matter
	reversed := make([]domain.CustomerHistory, len(pop))
	for i := range pop {
		reversed[len(pop)-1-i] = pop[i]
	}
	b, err := svc.Discover(context.Background(), "t1", reversed, testNow)
	require.NoError(t, err)

	for _, axis := range a.AxisOrder {
		sa, sb := a.Axes[axis].Segments, b.Axes[axis].Segments
		require.Len(t, sb, len(sa), axis)
		for i := range sa {
			assert.Equal(t, sa[i].Center, sb[i].Center, axis)
			assert.Equal(t, sa[i].PopulationCount, sb[i].PopulationCount, axis)
			assert.Equal(t, sa[i].Name, sb[i].Name, axis)
		}
		assert.Equal(t, a.Axes[axis].Diagnostics.K, b.Axes[axis].Diagnostics.K, axis)
	}
}

func TestDiscover_SkipsSmallPopulations(t *testing.T) {
	svc, err := NewDiscoveryService(testConfig(), nil, nil)
	require.NoError(t, err)

	res, err := svc.Discover(context.Background(), "t1", mixedPopulation(1, 10), testNow)
	require.NoError(t, err)
	for _, axis := range res.AxisOrder {
		ar := res.Axes[axis]
		assert.Equal(t, AxisSkipped, ar.Diagnostics.Status, axis)
		assert.NotNil(t, ar.Segments, axis)
		assert.Empty(t, ar.Segments, axis)
	}

	cfg := testConfig()
	cfg.MinPopulation = 1
	svc, err = NewDiscoveryService(cfg, nil, nil)
	require.NoError(t, err)
	res, err = svc.Discover(context.Background(), "t1", mixedPopulation(1, 1), testNow)
	require.NoError(t, err)
	assert.Equal(t, AxisSkipped, res.Axes[AxisPurchaseValue].Diagnostics.Status)
}

func TestDiscover_IsolatesFailingAxis(t *testing.T) {
	namer := namerFunc(func(context.Context, NamingRequest) (NamingResponse, error) {
		return NamingResponse{}, fmt.Errorf("offline")
	})
	svc, err := NewDiscoveryService(testConfig(), brokenDescribeRegistry(AxisReturnBehavior), namer)
	require.NoError(t, err)

	res, err := svc.Discover(context.Background(), "t1", mixedPopulation(3, 120), testNow)
	require.NoError(t, err)

	assert.Equal(t, []string{AxisReturnBehavior}, res.FailedAxes())
	assert.Equal(t, AxisFailed, res.Axes[AxisReturnBehavior].Diagnostics.Status)
	assert.Contains(t, res.Axes[AxisReturnBehavior].Diagnostics.Error, "panicked")
	assert.NotContains(t, res.Segments(), AxisReturnBehavior)
	assert.NotEmpty(t, res.Axes[AxisPurchaseValue].Segments)
}

func TestDiscover_PanickingNamerFallsBack(t *testing.T) {
	namer := namerFunc(func(_ context.Context, req NamingRequest) (NamingResponse, error) {
		if req.Axis == AxisPurchaseValue {
			panic("naming blew up")
		}
		return NamingResponse{}, fmt.Errorf("offline")
	})
	svc, err := NewDiscoveryService(testConfig(), nil, namer)
	require.NoError(t, err)

	res, err := svc.Discover(context.Background(), "t1", mixedPopulation(3, 120), testNow)
	require.NoError(t, err)

	assert.Empty(t, res.FailedAxes())
	ar := res.Axes[AxisPurchaseValue]
	assert.NotEqual(t, AxisFailed, ar.Diagnostics.Status)
	require.NotEmpty(t, ar.Segments)

	fallback := regexp.MustCompile(`^(low|medium|high)_purchase_value(_\d+)?$`)
	for _, s := range ar.Segments {
		assert.Regexp(t, fallback, s.Name)
		assert.NotEmpty(t, s.Description)
	}
}

func TestDiscover_FuzzyModeReportsHybrids(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModeFuzzy
	cfg.Subdivide = false
	svc, err := NewDiscoveryService(cfg, nil, nil)
	require.NoError(t, err)

	pop := mixedPopulation(5, 150)
	res, err := svc.Discover(context.Background(), "t1", pop, testNow)
	require.NoError(t, err)

	known := map[string]bool{}
	for _, id := range res.CustomerIDs {
		known[id] = true
	}
	for _, axis := range res.AxisOrder {
		ar := res.Axes[axis]
		assert.NotEqual(t, AxisFailed, ar.Diagnostics.Status, axis)
		for _, id := range ar.Hybrids {
			assert.True(t, known[id])
		}
	}
}

func TestScoreAll_ProfilesAreNormalized(t *testing.T) {
	svc, err := NewDiscoveryService(testConfig(), nil, nil)
	require.NoError(t, err)

	res, err := svc.Discover(context.Background(), "t1", mixedPopulation(11, 150), testNow)
	require.NoError(t, err)
	profiles, err := svc.ScoreAll(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, profiles, 150)

	for _, p := range profiles {
		assert.Equal(t, "t1", p.TenantID)
		for axis, ap := range p.Axes {
			sum := 0.0
			for _, w := range ap.Memberships {
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9, axis)
			assert.Equal(t, Dominant(ap.Memberships), ap.DominantSegment)
		}
		assert.NotEmpty(t, p.Interpretation)
	}
}

func TestNewDiscoveryService_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxK = 1
	_, err := NewDiscoveryService(cfg, nil, nil)
	assert.Error(t, err)
}
