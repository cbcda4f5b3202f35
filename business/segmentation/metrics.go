package segmentation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	axisSilhouette = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "segmentation_axis_silhouette",
			Help: "Silhouette score of the selected clustering per tenant and axis.",
		},
		[]string{"tenant", "axis"},
	)

	axisSegments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "segmentation_axis_segments",
			Help: "Number of leaf segments produced per tenant and axis by the last run.",
		},
		[]string{"tenant", "axis"},
	)

	axisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmentation_axis_runs_total",
			Help: "Axis discovery outcomes by axis and status (ok, below_target, skipped, failed).",
		},
		[]string{"axis", "status"},
	)

	namingFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segmentation_naming_fallbacks_total",
			Help: "Count of segments named by the heuristic after the naming collaborator failed.",
		},
		[]string{"axis"},
	)
)

func init() {
	prometheus.MustRegister(axisSilhouette, axisSegments, axisRunsTotal, namingFallbacks)
}
