package segmentation

import (
	"math"
	"testing"

	"customerSegments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_SingleOrderUsesObservationWindow(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	orders := []domain.OrderRecord{order("c1", 10, 40)}

	v, err := ex.Extract("c1", orders, AxisPurchaseFrequency, testNow)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, v.Get("orders_per_month"), 1e-9)
	assert.Equal(t, 1.0, v.Get("total_orders"))
	assert.Equal(t, 0.0, v.Get("avg_days_between_orders"))
	assert.Equal(t, 0.0, v.Get("order_interval_cv"))
}

func TestExtract_NoOrdersYieldsZeros(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	for _, axis := range DefaultAxisRegistry().Names() {
		v, err := ex.Extract("c1", nil, axis, testNow)
		require.NoError(t, err)
		def, _ := DefaultAxisRegistry().Axis(axis)
		require.Equal(t, def.Features, v.Names, axis)
		for _, x := range v.Values {
			assert.Equal(t, 0.0, x, axis)
		}
	}
}

func TestExtract_UnknownAxis(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	_, err := ex.Extract("c1", nil, "astrology", testNow)
	assert.ErrorIs(t, err, ErrUnknownAxis)
}

func TestExtract_SingleCategoryHasZeroEntropy(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	o1 := order("c1", 5, 20)
	o1.Items = []domain.LineItem{{Category: "tea", Quantity: 2}}
	o2 := order("c1", 15, 20)
	o2.Items = []domain.LineItem{{Category: "tea", Quantity: 1}}

	v, err := ex.Extract("c1", []domain.OrderRecord{o1, o2}, AxisCategoryDiversity, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Get("category_entropy"))
	assert.Equal(t, 1.0, v.Get("unique_categories"))
	assert.Equal(t, 1.0, v.Get("top_category_share"))
}

func TestExtract_EvenCategorySplitEntropy(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	o := order("c1", 5, 20)
	o.Items = []domain.LineItem{{Category: "tea", Quantity: 1}, {Category: "coffee", Quantity: 1}}

	v, err := ex.Extract("c1", []domain.OrderRecord{o}, AxisCategoryDiversity, testNow)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2), v.Get("category_entropy"), 1e-12)
	assert.Equal(t, 0.5, v.Get("top_category_share"))
}

func TestExtract_TrendNeedsThreeOrders(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)

	two := []domain.OrderRecord{order("c1", 60, 10), order("c1", 30, 20)}
	v, err := ex.Extract("c1", two, AxisLoyaltyTrajectory, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Get("order_value_trend"))

	three := []domain.OrderRecord{order("c1", 60, 10), order("c1", 30, 20), order("c1", 0, 30)}
	v, err = ex.Extract("c1", three, AxisLoyaltyTrajectory, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v.Get("order_value_trend"), 1e-9)
	assert.InDelta(t, 60.0, v.Get("tenure_days"), 1e-9)
	assert.InDelta(t, 0.0, v.Get("days_since_last_order"), 1e-9)
}

func TestExtract_IgnoresFutureOrders(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	orders := []domain.OrderRecord{order("c1", 10, 40), order("c1", -5, 999)}

	v, err := ex.Extract("c1", orders, AxisPurchaseValue, testNow)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v.Get("total_spend"))
	assert.Equal(t, 40.0, v.Get("max_order_value"))
}

func TestExtract_DiscountAndRefundRatios(t *testing.T) {
	ex := NewFeatureExtractor(DefaultAxisRegistry(), 30)
	o1 := order("c1", 3, 80)
	o1.DiscountAmount = 20
	o1.RefundAmount = 40
	o2 := order("c1", 9, 100)

	h := domain.CustomerHistory{CustomerID: "c1", Orders: []domain.OrderRecord{o1, o2}}
	all := ex.ExtractAll(h, testNow)
	require.Len(t, all, len(DefaultAxisRegistry().Names()))

	price := all[AxisPriceSensitivity]
	assert.Equal(t, 0.5, price.Get("discount_order_ratio"))
	assert.InDelta(t, 20.0/200.0, price.Get("avg_discount_rate"), 1e-12)
	assert.InDelta(t, 0.2, price.Get("max_discount_rate"), 1e-12)

	ret := all[AxisReturnBehavior]
	assert.Equal(t, 0.5, ret.Get("refund_order_ratio"))
	assert.InDelta(t, 40.0/180.0, ret.Get("refund_value_ratio"), 1e-12)
}

func TestAxisRegistry_RejectsDuplicates(t *testing.T) {
	r := NewAxisRegistry()
	def := AxisDefinition{Name: "x", Features: []string{"a"}, Extract: func(*orderStats) []float64 { return []float64{1} }}
	require.NoError(t, r.Register(def))
	assert.Error(t, r.Register(def))
	assert.Error(t, r.Register(AxisDefinition{Name: "y"}))
	assert.Equal(t, []string{"x"}, r.Names())
}

func TestExtract_NonFiniteValuesAreSanitized(t *testing.T) {
	r := NewAxisRegistry()
	require.NoError(t, r.Register(AxisDefinition{
		Name:     "broken",
		Features: []string{"nan", "inf", "neg_inf"},
		Extract: func(*orderStats) []float64 {
			return []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
		},
	}))
	ex := NewFeatureExtractor(r, 30)
	v, err := ex.Extract("c1", []domain.OrderRecord{order("c1", 1, 1)}, "broken", testNow)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, maxFeatureValue, -maxFeatureValue}, v.Values)
}
