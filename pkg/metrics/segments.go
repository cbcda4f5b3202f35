package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of on-demand customer scoring
	ScoreLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "segments_score_latency_seconds",
		Help:    "Latency of on-demand customer scoring",
		Buckets: prometheus.DefBuckets,
	})

	// On-demand scoring requests by outcome
	ScoreRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "segments_score_requests_total",
		Help: "Total number of on-demand scoring requests",
	}, []string{"status"})

	// Wall time of a full discovery job including persistence
	DiscoveryJobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "segments_discovery_job_duration_seconds",
		Help:    "Duration of discovery jobs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	DiscoveryJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "segments_discovery_jobs_total",
		Help: "Discovery jobs by outcome",
	}, []string{"status"})

	ProfilesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "segments_profiles_written_total",
		Help: "Customer profiles written by discovery jobs",
	})
)

func Init() {
	prometheus.MustRegister(
		ScoreLatency,
		ScoreRequests,
		DiscoveryJobDuration,
		DiscoveryJobs,
		ProfilesWritten,
	)
}
