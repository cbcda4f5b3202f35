package segmentation

import (
	"fmt"
	"strings"
	"time"

	"customerSegments/domain"
	"customerSegments/pkg/logger"
)

// BuildProfile scores a customer on every axis in order that has segments.
// Axes whose segments cannot be scored are left out of the profile.
func BuildProfile(tenantID, customerID string, axes []string, features map[string]domain.FeatureVector, segments map[string][]domain.DiscoveredSegment, now time.Time) domain.CustomerMultiAxisProfile {
	p := domain.CustomerMultiAxisProfile{
		TenantID:   tenantID,
		CustomerID: customerID,
		Axes:       make(map[string]domain.CustomerAxisProfile),
		UpdatedAt:  now,
	}

	var parts []string
	for _, axis := range axes {
		segs := segments[axis]
		if len(segs) == 0 {
			continue
		}
		ap, err := BuildAxisProfile(customerID, features[axis], segs)
		if err != nil {
			logger.Warn("axis_profile_skipped", "tenant_id", tenantID, "customer_id", customerID, "axis", axis, "error", err)
			continue
		}
		ap.Axis = axis
		ap.UpdatedAt = now
		p.Axes[axis] = ap
		parts = append(parts, fmt.Sprintf("%s: %s", axisTitle(axis), humanize(ap.DominantSegment)))
	}
	p.Interpretation = strings.Join(parts, "; ")
	return p
}

func axisTitle(axis string) string {
	words := strings.Fields(humanize(axis))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
