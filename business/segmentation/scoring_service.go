package segmentation

import (
	"context"
	"fmt"
	"time"

	"customerSegments/domain"
	"customerSegments/pkg/dbctx"
	"customerSegments/pkg/logger"
)

// ScoringService scores single customers on demand against the stored
// segment set. It never refits anything.
type ScoringService struct {
	histories HistoryStore
	segments  SegmentStore
	profiles  ProfileStore
	cache     SegmentCache
	registry  *AxisRegistry
	extractor *FeatureExtractor
}

// NewScoringService accepts a nil cache.
func NewScoringService(cfg Config, registry *AxisRegistry, histories HistoryStore, segments SegmentStore, profiles ProfileStore, cache SegmentCache) *ScoringService {
	if registry == nil {
		registry = DefaultAxisRegistry()
	}
	return &ScoringService{
		histories: histories,
		segments:  segments,
		profiles:  profiles,
		cache:     cache,
		registry:  registry,
		extractor: NewFeatureExtractor(registry, cfg.MinObservationDays),
	}
}

// LoadSegments returns the tenant's segments grouped by axis, from the cache
// when possible. Cache failures only cost a database read.
func (s *ScoringService) LoadSegments(ctx context.Context, tenantID string) (map[string][]domain.DiscoveredSegment, error) {
	if s.cache != nil {
		segs, ok, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			logger.Warn("segment_cache_get_failed", "tenant_id", tenantID, "error", err)
		} else if ok {
			return segs, nil
		}
	}

	list, err := s.segments.ListSegments(dbctx.New(ctx), tenantID, "")
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	grouped := GroupByAxis(list)
	if s.cache != nil && len(grouped) > 0 {
		if err := s.cache.Set(ctx, tenantID, grouped); err != nil {
			logger.Warn("segment_cache_set_failed", "tenant_id", tenantID, "error", err)
		}
	}
	return grouped, nil
}

// ScoreCustomer rebuilds and stores one customer's multi-axis profile.
func (s *ScoringService) ScoreCustomer(ctx context.Context, tenantID, customerID string, now time.Time) (domain.CustomerMultiAxisProfile, error) {
	segments, err := s.LoadSegments(ctx, tenantID)
	if err != nil {
		return domain.CustomerMultiAxisProfile{}, err
	}
	if len(segments) == 0 {
		return domain.CustomerMultiAxisProfile{}, fmt.Errorf("tenant %s: %w", tenantID, ErrNoSegments)
	}

	history, err := s.histories.CustomerHistory(dbctx.New(ctx), tenantID, customerID)
	if err != nil {
		return domain.CustomerMultiAxisProfile{}, fmt.Errorf("load history: %w", err)
	}
	history.CustomerID = customerID

	features := s.extractor.ExtractAll(history, now)
	profile := BuildProfile(tenantID, customerID, s.registry.Names(), features, segments, now)
	if len(profile.Axes) == 0 {
		return profile, fmt.Errorf("customer %s: %w", customerID, ErrNoSegments)
	}

	if err := s.profiles.UpsertProfiles(dbctx.New(ctx), tenantID, []domain.CustomerMultiAxisProfile{profile}); err != nil {
		return profile, fmt.Errorf("save profile: %w", err)
	}
	logger.Debug("customer_scored", "tenant_id", tenantID, "customer_id", customerID, "axes", len(profile.Axes))
	return profile, nil
}

// Profile returns the stored profile without rescoring.
func (s *ScoringService) Profile(ctx context.Context, tenantID, customerID string) (domain.CustomerMultiAxisProfile, error) {
	return s.profiles.GetProfile(dbctx.New(ctx), tenantID, customerID)
}

func (s *ScoringService) Segments(ctx context.Context, tenantID, axis string) ([]domain.DiscoveredSegment, error) {
	if axis != "" {
		if _, ok := s.registry.Axis(axis); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAxis, axis)
		}
	}
	return s.segments.ListSegments(dbctx.New(ctx), tenantID, axis)
}
