package segmentation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"customerSegments/domain"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	daysPerMonth = 30.0
	// trend features need at least this many observations
	minTrendObservations = 3
)

// DescribeFunc phrases a single feature value of a segment center in domain
// language, e.g. "about 4.1 orders per month".
type DescribeFunc func(feature string, value float64) string

// AxisDefinition is one behavioral dimension: its ordered feature names, the
// aggregation producing them, and how to talk about them.
type AxisDefinition struct {
	Name     string
	Features []string
	Extract  func(h *orderStats) []float64
	Describe DescribeFunc
}

// AxisRegistry maps axis names to their definitions. Registration order is
// preserved so runs iterate axes deterministically.
type AxisRegistry struct {
	axes  map[string]AxisDefinition
	order []string
}

func NewAxisRegistry() *AxisRegistry {
	return &AxisRegistry{axes: make(map[string]AxisDefinition)}
}

func (r *AxisRegistry) Register(def AxisDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("axis name is required")
	}
	if len(def.Features) == 0 || def.Extract == nil {
		return fmt.Errorf("axis %s: features and extract func are required", def.Name)
	}
	if _, ok := r.axes[def.Name]; ok {
		return fmt.Errorf("axis %s already registered", def.Name)
	}
	r.axes[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

func (r *AxisRegistry) Axis(name string) (AxisDefinition, bool) {
	def, ok := r.axes[name]
	return def, ok
}

func (r *AxisRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// FeatureExtractor turns raw order history into per-axis feature vectors.
// It is a pure function of the history and the caller-supplied now.
type FeatureExtractor struct {
	registry           *AxisRegistry
	minObservationDays float64
}

func NewFeatureExtractor(registry *AxisRegistry, minObservationDays int) *FeatureExtractor {
	if minObservationDays <= 0 {
		minObservationDays = defaultMinObservationDays
	}
	return &FeatureExtractor{registry: registry, minObservationDays: float64(minObservationDays)}
}

// Extract computes one axis for one customer.
func (e *FeatureExtractor) Extract(customerID string, orders []domain.OrderRecord, axis string, now time.Time) (domain.FeatureVector, error) {
	def, ok := e.registry.Axis(axis)
	if !ok {
		return domain.FeatureVector{}, fmt.Errorf("%w: %s", ErrUnknownAxis, axis)
	}
	stats := newOrderStats(orders, now, e.minObservationDays)
	return buildVector(def, stats), nil
}

// ExtractAll computes every registered axis, sharing the order aggregation.
func (e *FeatureExtractor) ExtractAll(h domain.CustomerHistory, now time.Time) map[string]domain.FeatureVector {
	stats := newOrderStats(h.Orders, now, e.minObservationDays)
	out := make(map[string]domain.FeatureVector, len(e.registry.order))
	for _, name := range e.registry.order {
		out[name] = buildVector(e.registry.axes[name], stats)
	}
	return out
}

func buildVector(def AxisDefinition, stats *orderStats) domain.FeatureVector {
	names := make([]string, len(def.Features))
	copy(names, def.Features)
	values := make([]float64, len(names))
	if stats.n > 0 {
		raw := def.Extract(stats)
		for i := range values {
			if i < len(raw) {
				values[i] = sanitize(raw[i])
			}
		}
	}
	return domain.FeatureVector{Names: names, Values: values}
}

// orderStats is the shared aggregation every axis reads from.
type orderStats struct {
	orders     []domain.OrderRecord
	n          int
	now        time.Time
	tenureDays float64
	windowDays float64
	sinceLast  float64
	offsets    []float64 // days since first order, per order
	intervals  []float64 // days between consecutive orders
	values     []float64
}

func newOrderStats(orders []domain.OrderRecord, now time.Time, minWindow float64) *orderStats {
	kept := make([]domain.OrderRecord, 0, len(orders))
	for _, o := range orders {
		if o.PlacedAt.After(now) {
			continue
		}
		kept = append(kept, o)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].PlacedAt.Before(kept[j].PlacedAt) })

	s := &orderStats{orders: kept, n: len(kept), now: now}
	if s.n == 0 {
		return s
	}

	first := kept[0].PlacedAt
	last := kept[s.n-1].PlacedAt
	s.tenureDays = days(now.Sub(first))
	s.sinceLast = days(now.Sub(last))
	s.windowDays = math.Max(s.tenureDays, minWindow)

	s.offsets = make([]float64, s.n)
	s.values = make([]float64, s.n)
	for i, o := range kept {
		s.offsets[i] = days(o.PlacedAt.Sub(first))
		s.values[i] = o.TotalAmount
		if i > 0 {
			s.intervals = append(s.intervals, days(o.PlacedAt.Sub(kept[i-1].PlacedAt)))
		}
	}
	return s
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// coefficientOfVariation is std/mean over at least two observations.
func coefficientOfVariation(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m, sd := stat.PopMeanStdDev(xs, nil)
	return ratio(sd, m)
}

// slope fits y = a + b*x and returns b, or 0 below minTrendObservations or
// when x carries no spread.
func slope(x, y []float64) float64 {
	if len(x) < minTrendObservations || len(x) != len(y) {
		return 0
	}
	if stat.Variance(x, nil) == 0 {
		return 0
	}
	_, b := stat.LinearRegression(x, y, nil, false)
	return sanitize(b)
}

// entropy is the Shannon entropy (nats) of the given counts; one bucket is 0.
func entropy(counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 || len(counts) < 2 {
		return 0
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / total
	}
	return stat.Entropy(p)
}

func (s *orderStats) ordersPerMonth() float64 {
	return float64(s.n) / (s.windowDays / daysPerMonth)
}

func (s *orderStats) grossAmount(o domain.OrderRecord) float64 {
	return o.TotalAmount + o.DiscountAmount
}

func (s *orderStats) categoryCounts() (labels []string, counts []float64) {
	byCat := map[string]float64{}
	for _, o := range s.orders {
		for _, it := range o.Items {
			q := float64(it.Quantity)
			if q <= 0 {
				q = 1
			}
			cat := it.Category
			if cat == "" {
				cat = "uncategorized"
			}
			byCat[cat] += q
		}
	}
	for c := range byCat {
		labels = append(labels, c)
	}
	sort.Strings(labels)
	counts = make([]float64, len(labels))
	for i, c := range labels {
		counts[i] = byCat[c]
	}
	return labels, counts
}
