package domain

import "time"

type MembershipStrength string

const (
	StrengthStrong   MembershipStrength = "strong"
	StrengthBalanced MembershipStrength = "balanced"
	StrengthWeak     MembershipStrength = "weak"
)

type CustomerAxisProfile struct {
	CustomerID      string             `json:"customer_id"`
	Axis            string             `json:"axis"`
	Memberships     map[string]float64 `json:"memberships"`
	DominantSegment string             `json:"dominant_segment"`
	TopSegments     []string           `json:"top_segments"`
	Strength        MembershipStrength `json:"strength"`
	Features        map[string]float64 `json:"features"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type CustomerMultiAxisProfile struct {
	TenantID       string                         `json:"tenant_id"`
	CustomerID     string                         `json:"customer_id"`
	Axes           map[string]CustomerAxisProfile `json:"axes"`
	Interpretation string                         `json:"interpretation,omitempty"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// DominantSegments maps each axis to its dominant segment name.
func (p CustomerMultiAxisProfile) DominantSegments() map[string]string {
	out := make(map[string]string, len(p.Axes))
	for axis, ap := range p.Axes {
		out[axis] = ap.DominantSegment
	}
	return out
}
