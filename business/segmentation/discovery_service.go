package segmentation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"customerSegments/domain"
	"customerSegments/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

type AxisStatus string

const (
	AxisOK          AxisStatus = "ok"
	AxisBelowTarget AxisStatus = "below_target"
	AxisSkipped     AxisStatus = "skipped"
	AxisFailed      AxisStatus = "failed"
)

// hybridThreshold is the top soft membership below which a customer has no
// single home cluster in fuzzy mode.
const hybridThreshold = 0.5

// AxisDiagnostics is the per-axis quality summary emitted by every run.
type AxisDiagnostics struct {
	Axis               string           `json:"axis"`
	Status             AxisStatus       `json:"status"`
	Population         int              `json:"population"`
	K                  int              `json:"k"`
	Silhouette         float64          `json:"silhouette"`
	LargestShare       float64          `json:"largest_share"`
	SmallestShare      float64          `json:"smallest_share"`
	SizeCV             float64          `json:"size_cv"`
	ClusterSizes       []int            `json:"cluster_sizes"`
	QualityBelowTarget bool             `json:"quality_below_target"`
	Leaves             int              `json:"leaves"`
	Candidates         []QualityMetrics `json:"candidates,omitempty"`
	Duration           time.Duration    `json:"duration"`
	Err                error            `json:"-"`
	Error              string           `json:"error,omitempty"`
}

type AxisResult struct {
	Axis        string                     `json:"axis"`
	Segments    []domain.DiscoveredSegment `json:"segments"`
	Diagnostics AxisDiagnostics            `json:"diagnostics"`
	// Hybrids lists customers whose top soft membership stays below 0.5.
	// Only filled in fuzzy mode.
	Hybrids []string `json:"hybrids,omitempty"`
}

// DiscoveryResult is everything one run produced, kept in memory even when
// persisting it later fails.
type DiscoveryResult struct {
	RunID       string                                     `json:"run_id"`
	TenantID    string                                     `json:"tenant_id"`
	StartedAt   time.Time                                  `json:"started_at"`
	FinishedAt  time.Time                                  `json:"finished_at"`
	AxisOrder   []string                                   `json:"axis_order"`
	Axes        map[string]*AxisResult                     `json:"axes"`
	CustomerIDs []string                                   `json:"customer_ids"`
	Features    map[string]map[string]domain.FeatureVector `json:"-"`
}

// Segments groups the produced segments by axis, failed axes excluded.
func (r *DiscoveryResult) Segments() map[string][]domain.DiscoveredSegment {
	out := make(map[string][]domain.DiscoveredSegment, len(r.Axes))
	for axis, ar := range r.Axes {
		if ar.Diagnostics.Status == AxisFailed {
			continue
		}
		out[axis] = ar.Segments
	}
	return out
}

func (r *DiscoveryResult) FailedAxes() []string {
	var out []string
	for _, axis := range r.AxisOrder {
		if ar, ok := r.Axes[axis]; ok && ar.Diagnostics.Status == AxisFailed {
			out = append(out, axis)
		}
	}
	return out
}

type DiscoveryService struct {
	cfg         Config
	registry    *AxisRegistry
	extractor   *FeatureExtractor
	pre         Preprocessor
	selector    *Selector
	subdivider  *Subdivider
	interpreter *Interpreter
}

// NewDiscoveryService wires the pipeline. namer may be nil.
func NewDiscoveryService(cfg Config, registry *AxisRegistry, namer Namer) (*DiscoveryService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmentation config: %w", err)
	}
	if registry == nil {
		registry = DefaultAxisRegistry()
	}
	clusterer := NewClusterer(cfg)
	return &DiscoveryService{
		cfg:         cfg,
		registry:    registry,
		extractor:   NewFeatureExtractor(registry, cfg.MinObservationDays),
		pre:         NewPreprocessor(cfg),
		selector:    NewSelector(cfg, clusterer),
		subdivider:  NewSubdivider(cfg, clusterer),
		interpreter: NewInterpreter(namer, registry, cfg.NamingTimeout),
	}, nil
}

func (s *DiscoveryService) Registry() *AxisRegistry {
	return s.registry
}

func (s *DiscoveryService) Extractor() *FeatureExtractor {
	return s.extractor
}

// Discover runs feature extraction and every axis for one tenant population.
// Axes run in parallel and fail independently; the returned error is only
// set when the context is cancelled.
func (s *DiscoveryService) Discover(ctx context.Context, tenantID string, histories []domain.CustomerHistory, now time.Time) (*DiscoveryResult, error) {
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	res := &DiscoveryResult{
		RunID:     runID,
		TenantID:  tenantID,
		StartedAt: time.Now(),
		AxisOrder: s.registry.Names(),
		Axes:      make(map[string]*AxisResult),
		Features:  make(map[string]map[string]domain.FeatureVector, len(histories)),
	}

	sorted := make([]domain.CustomerHistory, len(histories))
	copy(sorted, histories)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CustomerID < sorted[j].CustomerID })

	features := make([]map[string]domain.FeatureVector, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.workers())
	for i := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			features[i] = s.extractor.ExtractAll(sorted[i], now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	res.CustomerIDs = make([]string, len(sorted))
	for i, h := range sorted {
		res.CustomerIDs[i] = h.CustomerID
		res.Features[h.CustomerID] = features[i]
	}

	results := make([]*AxisResult, len(res.AxisOrder))
	ag := new(errgroup.Group)
	ag.SetLimit(s.cfg.workers())
	for i, axis := range res.AxisOrder {
		ag.Go(func() error {
			results[i] = s.runAxis(ctx, tenantID, runID, axis, res.CustomerIDs, features)
			return nil
		})
	}
	_ = ag.Wait()

	for _, ar := range results {
		res.Axes[ar.Axis] = ar
	}
	res.FinishedAt = time.Now()

	logger.Info("discovery_run_finished",
		"run_id", runID,
		"tenant_id", tenantID,
		"customers", len(sorted),
		"axes", len(res.AxisOrder),
		"failed_axes", res.FailedAxes(),
		"duration", res.FinishedAt.Sub(res.StartedAt).String(),
	)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// runAxis isolates one axis: errors and panics end up in its diagnostics.
func (s *DiscoveryService) runAxis(ctx context.Context, tenantID, runID, axis string, customerIDs []string, features []map[string]domain.FeatureVector) (ar *AxisResult) {
	start := time.Now()
	ar = &AxisResult{Axis: axis, Diagnostics: AxisDiagnostics{Axis: axis, Population: len(customerIDs)}}

	defer func() {
		if r := recover(); r != nil {
			ar.Segments = nil
			ar.Diagnostics.Err = fmt.Errorf("axis %s panicked: %v", axis, r)
		}
		d := &ar.Diagnostics
		d.Duration = time.Since(start)
		switch {
		case d.Err != nil:
			d.Status = AxisFailed
			d.Error = d.Err.Error()
		case d.Status == "":
			d.Status = AxisOK
			if d.QualityBelowTarget {
				d.Status = AxisBelowTarget
			}
		}
		ar.Diagnostics.Leaves = len(ar.Segments)

		axisRunsTotal.WithLabelValues(axis, string(d.Status)).Inc()
		axisSegments.WithLabelValues(tenantID, axis).Set(float64(len(ar.Segments)))
		if d.Status == AxisOK || d.Status == AxisBelowTarget {
			axisSilhouette.WithLabelValues(tenantID, axis).Set(d.Silhouette)
		}
		logger.Info("axis_quality",
			"run_id", runID,
			"tenant_id", tenantID,
			"axis", axis,
			"status", d.Status,
			"population", d.Population,
			"k", d.K,
			"silhouette", d.Silhouette,
			"largest_share", d.LargestShare,
			"size_cv", d.SizeCV,
			"quality_below_target", d.QualityBelowTarget,
			"leaves", d.Leaves,
			"error", d.Error,
		)
	}()

	if err := ctx.Err(); err != nil {
		ar.Diagnostics.Err = err
		return ar
	}
	segs, hybrids, err := s.discoverAxis(ctx, tenantID, runID, axis, customerIDs, features, &ar.Diagnostics)
	if errors.Is(err, ErrInsufficientData) {
		ar.Diagnostics.Status = AxisSkipped
		ar.Diagnostics.Error = err.Error()
		ar.Segments = []domain.DiscoveredSegment{}
		return ar
	}
	if err != nil {
		ar.Diagnostics.Err = err
		return ar
	}
	ar.Segments = segs
	ar.Hybrids = hybrids
	return ar
}

func (s *DiscoveryService) discoverAxis(ctx context.Context, tenantID, runID, axis string, customerIDs []string, features []map[string]domain.FeatureVector, diag *AxisDiagnostics) ([]domain.DiscoveredSegment, []string, error) {
	def, ok := s.registry.Axis(axis)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownAxis, axis)
	}
	n := len(customerIDs)
	if n < s.cfg.MinPopulation || n == 0 {
		return nil, nil, fmt.Errorf("%w: %d customers, need %d", ErrInsufficientData, n, s.cfg.MinPopulation)
	}

	rows := make([][]float64, n)
	for i, f := range features {
		rows[i] = alignFeatures(f[axis], def.Features)
	}
	raw := denseFromRows(rows, len(def.Features))
	scaled, params := s.pre.FitTransform(raw)

	sel, err := s.selector.SelectK(scaled, s.cfg.MinK, s.cfg.MaxK)
	if err != nil {
		return nil, nil, fmt.Errorf("select k for %s: %w", axis, err)
	}
	if sel.Skipped {
		return nil, nil, fmt.Errorf("%w: %d samples cannot form %d clusters", ErrInsufficientData, n, s.cfg.MinK)
	}

	diag.K = sel.K
	diag.Silhouette = sel.Metrics.Silhouette
	diag.LargestShare = sel.Metrics.LargestShare
	diag.SmallestShare = sel.Metrics.SmallestShare
	diag.SizeCV = sel.Metrics.SizeCV
	diag.ClusterSizes = sel.Metrics.ClusterSizes
	diag.QualityBelowTarget = sel.QualityBelowTarget
	diag.Candidates = sel.Candidates

	members := make([][]int, sel.K)
	for i, l := range sel.Result.Labels {
		members[l] = append(members[l], i)
	}

	var leaves []domain.DiscoveredSegment
	for c := 0; c < sel.K; c++ {
		if len(members[c]) == 0 {
			continue
		}
		seg := domain.DiscoveredSegment{
			ID:                 uuid.NewString(),
			TenantID:           tenantID,
			RunID:              runID,
			Axis:               axis,
			Name:               fmt.Sprintf("%s_%d", axis, c+1),
			Center:             append([]float64(nil), sel.Result.Centers.RawRowView(c)...),
			FeatureNames:       append([]string(nil), def.Features...),
			Scaler:             params,
			PopulationCount:    len(members[c]),
			PopulationPct:      100 * float64(len(members[c])) / float64(n),
			QualityBelowTarget: sel.QualityBelowTarget,
		}
		if !s.cfg.Subdivide {
			leaves = append(leaves, seg)
			continue
		}
		for _, leaf := range s.subdivider.MaybeSubdivide(seg, subsetRows(scaled, members[c]), n) {
			if leaf.ID == "" {
				leaf.ID = uuid.NewString()
			}
			leaves = append(leaves, leaf)
		}
	}

	if err := s.nameSegments(ctx, axis, leaves, raw); err != nil {
		return nil, nil, err
	}
	return leaves, s.hybrids(sel.Result, customerIDs), nil
}

// nameSegments interprets each leaf in order and keeps names unique within
// the axis.
func (s *DiscoveryService) nameSegments(ctx context.Context, axis string, segs []domain.DiscoveredSegment, population *mat.Dense) error {
	used := make(map[string]bool, len(segs))
	now := time.Now()
	for i := range segs {
		center, err := InverseTransform(segs[i].Center, segs[i].Scaler)
		if err != nil {
			return fmt.Errorf("invert center of %s: %w", segs[i].Name, err)
		}
		resp := s.interpreter.Interpret(ctx, axis, center, segs[i].FeatureNames, population, segs[i].PopulationPct)
		segs[i].Name = uniqueName(resp.Name, used)
		segs[i].Description = resp.Description
		segs[i].CreatedAt = now
	}
	return nil
}

func (s *DiscoveryService) hybrids(res ClusterResult, customerIDs []string) []string {
	if res.Memberships == nil {
		return nil
	}
	var out []string
	for i, id := range customerIDs {
		row := res.Memberships.RawRowView(i)
		if row[argmax(row)] < hybridThreshold {
			out = append(out, id)
		}
	}
	return out
}

// ScoreAll assigns memberships for every customer of the run against the
// segments it just produced.
func (s *DiscoveryService) ScoreAll(ctx context.Context, res *DiscoveryResult) ([]domain.CustomerMultiAxisProfile, error) {
	return s.ScoreWith(ctx, res, res.Segments())
}

// ScoreWith scores every customer of the run against segments, which may
// hold axes the run did not produce.
func (s *DiscoveryService) ScoreWith(ctx context.Context, res *DiscoveryResult, segments map[string][]domain.DiscoveredSegment) ([]domain.CustomerMultiAxisProfile, error) {
	profiles := make([]domain.CustomerMultiAxisProfile, len(res.CustomerIDs))
	now := res.FinishedAt
	if now.IsZero() {
		now = time.Now()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.workers())
	for i, id := range res.CustomerIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			profiles[i] = BuildProfile(res.TenantID, id, res.AxisOrder, res.Features[id], segments, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score customers: %w", err)
	}
	return profiles, nil
}
