package segmentation

import (
	"context"

	"customerSegments/domain"
	"customerSegments/pkg/dbctx"
)

// ---- Repository interfaces ----
//
// Store calls take a dbctx.Context. Whoever opened the transaction in it
// commits it; repositories never do.

type HistoryStore interface {
	CustomerHistory(dc dbctx.Context, tenantID, customerID string) (domain.CustomerHistory, error)
	TenantHistories(dc dbctx.Context, tenantID string) ([]domain.CustomerHistory, error)
}

type SegmentStore interface {
	// ReplaceAxisSegments drops every stored segment of the axis and writes
	// segments in their place.
	ReplaceAxisSegments(dc dbctx.Context, tenantID, axis string, segments []domain.DiscoveredSegment) error
	// ListSegments returns all axes when axis is empty.
	ListSegments(dc dbctx.Context, tenantID, axis string) ([]domain.DiscoveredSegment, error)
}

type ProfileStore interface {
	UpsertProfiles(dc dbctx.Context, tenantID string, profiles []domain.CustomerMultiAxisProfile) error
	GetProfile(dc dbctx.Context, tenantID, customerID string) (domain.CustomerMultiAxisProfile, error)
}

// SegmentCache holds a tenant's segment set grouped by axis.
type SegmentCache interface {
	Get(ctx context.Context, tenantID string) (map[string][]domain.DiscoveredSegment, bool, error)
	Set(ctx context.Context, tenantID string, segments map[string][]domain.DiscoveredSegment) error
	Invalidate(ctx context.Context, tenantID string) error
}

// GroupByAxis buckets segments by axis, keeping their order.
func GroupByAxis(segments []domain.DiscoveredSegment) map[string][]domain.DiscoveredSegment {
	out := make(map[string][]domain.DiscoveredSegment)
	for _, s := range segments {
		out[s.Axis] = append(out[s.Axis], s)
	}
	return out
}
