package segmentation

import (
	"fmt"
	"math/rand"
	"time"

	"customerSegments/domain"

	"gonum.org/v1/gonum/mat"
)

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func order(customerID string, daysAgo int, total float64) domain.OrderRecord {
	return domain.OrderRecord{
		ID:          fmt.Sprintf("%s-%d", customerID, daysAgo),
		CustomerID:  customerID,
		PlacedAt:    testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		TotalAmount: total,
		Channel:     domain.ChannelOnline,
	}
}

// regularHistory places n orders every gap days, the newest one lastDaysAgo
// days before testNow.
func regularHistory(customerID string, n, gap, lastDaysAgo int, total float64) domain.CustomerHistory {
	h := domain.CustomerHistory{CustomerID: customerID}
	for i := 0; i < n; i++ {
		h.Orders = append(h.Orders, order(customerID, lastDaysAgo+i*gap, total))
	}
	return h
}

// blobs draws size[i] points around centers[i] with uniform jitter.
func blobs(seed int64, centers [][]float64, sizes []int, jitter float64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	var rows [][]float64
	for c, center := range centers {
		for i := 0; i < sizes[c]; i++ {
			p := make([]float64, len(center))
			for j, v := range center {
				p[j] = v + (rng.Float64()*2-1)*jitter
			}
			rows = append(rows, p)
		}
	}
	return denseFromRows(rows, len(centers[0]))
}

// grid places side×side points with the given spacing around center.
func grid(center []float64, side int, spacing float64) [][]float64 {
	var rows [][]float64
	offset := float64(side-1) * spacing / 2
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			rows = append(rows, []float64{
				center[0] + float64(i)*spacing - offset,
				center[1] + float64(j)*spacing - offset,
			})
		}
	}
	return rows
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.KMeansRestarts = 4
	return cfg
}

// brokenDescribeRegistry is the built-in registry with axis's Describe
// panicking, which fails that axis whenever fallback naming runs.
func brokenDescribeRegistry(axis string) *AxisRegistry {
	reg := NewAxisRegistry()
	for _, def := range builtinAxes() {
		if def.Name == axis {
			def.Describe = func(string, float64) string { panic("describe " + axis) }
		}
		if err := reg.Register(def); err != nil {
			panic(err)
		}
	}
	return reg
}
