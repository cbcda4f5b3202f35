package segmentation

import (
	"fmt"
	"runtime"
	"time"

	"customerSegments/domain"
)

type ClusterMode string

const (
	ModeKMeans ClusterMode = "kmeans"
	ModeFuzzy  ClusterMode = "fuzzy"
)

type SelectionPolicy string

const (
	// PolicySilhouette picks the k with the best separation only.
	PolicySilhouette SelectionPolicy = "silhouette"
	// PolicyBalanced rejects k values with a dominant or negligible cluster.
	PolicyBalanced SelectionPolicy = "balanced"
)

// Config holds every tunable of the engine. It is built once at start-up and
// passed by value; nothing in this package reads the environment.
type Config struct {
	MinK             int
	MaxK             int
	MinSilhouette    float64
	MinPopulation    int
	WinsorPercentile float64 // 0 disables clipping
	Scaler           domain.ScalerType
	MaxDominantShare float64
	MinSegmentShare  float64
	Policy           SelectionPolicy

	Mode              ClusterMode
	Fuzziness         float64
	FuzzyMaxIter      int
	FuzzyTolerance    float64
	KMeansRestarts    int
	KMeansMaxIter     int
	Seed              int64
	SilhouetteSamples int

	Subdivide           bool
	MaxDepth            int
	MinSubsegmentSize   int
	SubdivideShare      float64
	SubdivideMinMembers int
	MaxVariance         float64

	NamingTimeout time.Duration
	Workers       int

	// minimum window used for per-month rates
	MinObservationDays int
}

const (
	defaultMinK                = 2
	defaultMaxK                = 8
	defaultMinSilhouette       = 0.25
	defaultMinPopulation       = 50
	defaultWinsorPercentile    = 99.0
	defaultMaxDominantShare    = 0.5
	defaultMinSegmentShare     = 0.03
	defaultFuzziness           = 2.0
	defaultFuzzyMaxIter        = 150
	defaultFuzzyTolerance      = 1e-5
	defaultKMeansRestarts      = 10
	defaultKMeansMaxIter       = 300
	defaultSeed                = 42
	defaultSilhouetteSamples   = 2000
	defaultMaxDepth            = 3
	defaultMinSubsegmentSize   = 30
	defaultSubdivideShare      = 0.6
	defaultSubdivideMinMembers = 100
	defaultMaxVariance         = 4.0
	defaultNamingTimeout       = 3 * time.Second
	defaultMinObservationDays  = 30
)

func DefaultConfig() Config {
	return Config{
		MinK:             defaultMinK,
		MaxK:             defaultMaxK,
		MinSilhouette:    defaultMinSilhouette,
		MinPopulation:    defaultMinPopulation,
		WinsorPercentile: defaultWinsorPercentile,
		Scaler:           domain.ScalerRobust,
		MaxDominantShare: defaultMaxDominantShare,
		MinSegmentShare:  defaultMinSegmentShare,
		Policy:           PolicyBalanced,

		Mode:              ModeKMeans,
		Fuzziness:         defaultFuzziness,
		FuzzyMaxIter:      defaultFuzzyMaxIter,
		FuzzyTolerance:    defaultFuzzyTolerance,
		KMeansRestarts:    defaultKMeansRestarts,
		KMeansMaxIter:     defaultKMeansMaxIter,
		Seed:              defaultSeed,
		SilhouetteSamples: defaultSilhouetteSamples,

		Subdivide:           true,
		MaxDepth:            defaultMaxDepth,
		MinSubsegmentSize:   defaultMinSubsegmentSize,
		SubdivideShare:      defaultSubdivideShare,
		SubdivideMinMembers: defaultSubdivideMinMembers,
		MaxVariance:         defaultMaxVariance,

		NamingTimeout:      defaultNamingTimeout,
		Workers:            runtime.NumCPU(),
		MinObservationDays: defaultMinObservationDays,
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.MinK < 2 {
		return fmt.Errorf("min k must be >= 2, got %d", c.MinK)
	}
	if c.MaxK < c.MinK {
		return fmt.Errorf("max k (%d) below min k (%d)", c.MaxK, c.MinK)
	}
	if c.WinsorPercentile != 0 && (c.WinsorPercentile <= 50 || c.WinsorPercentile >= 100) {
		return fmt.Errorf("winsor percentile must be in (50, 100), got %v", c.WinsorPercentile)
	}
	if c.Scaler != domain.ScalerRobust && c.Scaler != domain.ScalerStandard {
		return fmt.Errorf("unknown scaler %q", c.Scaler)
	}
	if c.Mode != ModeKMeans && c.Mode != ModeFuzzy {
		return fmt.Errorf("unknown cluster mode %q", c.Mode)
	}
	if c.Policy != PolicyBalanced && c.Policy != PolicySilhouette {
		return fmt.Errorf("unknown selection policy %q", c.Policy)
	}
	if c.Mode == ModeFuzzy && c.Fuzziness <= 1 {
		return fmt.Errorf("fuzziness must be > 1, got %v", c.Fuzziness)
	}
	if c.MaxDominantShare <= 0 || c.MaxDominantShare > 1 {
		return fmt.Errorf("max dominant share must be in (0, 1], got %v", c.MaxDominantShare)
	}
	if c.MinSegmentShare < 0 || c.MinSegmentShare >= c.MaxDominantShare {
		return fmt.Errorf("min segment share must be in [0, max dominant share), got %v", c.MinSegmentShare)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", c.MaxDepth)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
