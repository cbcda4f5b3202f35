package domain

import "time"

type ScalerType string

const (
	ScalerStandard ScalerType = "standard"
	ScalerRobust   ScalerType = "robust"
)

// ScalerParams describes how an axis matrix was transformed before clustering.
// Center/Scale hold mean/std for the standard family and median/IQR for the
// robust one. ClipLower/ClipUpper are empty when winsorization was disabled.
type ScalerParams struct {
	Type      ScalerType `json:"type"`
	Center    []float64  `json:"center"`
	Scale     []float64  `json:"scale"`
	ClipLower []float64  `json:"clip_lower,omitempty"`
	ClipUpper []float64  `json:"clip_upper,omitempty"`
}

func (p *ScalerParams) Dim() int {
	if p == nil {
		return 0
	}
	return len(p.Center)
}

func (p *ScalerParams) Winsorized() bool {
	return p != nil && len(p.ClipLower) > 0 && len(p.ClipUpper) > 0
}

// DiscoveredSegment is one cluster on one axis. Center is expressed in the
// coordinate space produced by Scaler, never in raw feature units.
type DiscoveredSegment struct {
	ID                 string        `json:"id"`
	TenantID           string        `json:"tenant_id"`
	RunID              string        `json:"run_id"`
	Axis               string        `json:"axis"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Center             []float64     `json:"center"`
	FeatureNames       []string      `json:"feature_names"`
	Scaler             *ScalerParams `json:"scaler"`
	PopulationCount    int           `json:"population_count"`
	PopulationPct      float64       `json:"population_pct"`
	ParentID           string        `json:"parent_id,omitempty"`
	Depth              int           `json:"depth"`
	QualityBelowTarget bool          `json:"quality_below_target"`
	CreatedAt          time.Time     `json:"created_at"`
}

// FeatureVector keeps feature names and values in the order the axis defines.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

func (v FeatureVector) Get(name string) float64 {
	for i, n := range v.Names {
		if n == name && i < len(v.Values) {
			return v.Values[i]
		}
	}
	return 0
}

func (v FeatureVector) AsMap() map[string]float64 {
	out := make(map[string]float64, len(v.Names))
	for i, n := range v.Names {
		if i < len(v.Values) {
			out[n] = v.Values[i]
		}
	}
	return out
}
