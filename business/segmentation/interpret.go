package segmentation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"customerSegments/pkg/logger"

	"gonum.org/v1/gonum/mat"
)

const (
	maxNameLength        = 40
	maxDescriptionLength = 200
	highPercentile       = 75.0
	lowPercentile        = 25.0
)

// NamingRequest is what the text-generation collaborator sees for one
// cluster. Center is in original feature units; Percentiles holds the rank
// (0..100) of each center value within the axis population.
type NamingRequest struct {
	Axis          string             `json:"axis"`
	FeatureNames  []string           `json:"feature_names"`
	Center        map[string]float64 `json:"center"`
	Percentiles   map[string]float64 `json:"percentiles"`
	PopulationPct float64            `json:"population_pct"`
}

type NamingResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Namer generates a segment name. Implementations may be slow or fail;
// the Interpreter bounds every call and falls back on error.
type Namer interface {
	NameSegment(ctx context.Context, req NamingRequest) (NamingResponse, error)
}

type Interpreter struct {
	namer    Namer
	registry *AxisRegistry
	timeout  time.Duration
}

// NewInterpreter accepts a nil namer, in which case only heuristic names are
// produced.
func NewInterpreter(namer Namer, registry *AxisRegistry, timeout time.Duration) *Interpreter {
	if timeout <= 0 {
		timeout = defaultNamingTimeout
	}
	return &Interpreter{namer: namer, registry: registry, timeout: timeout}
}

// Interpret names one cluster. center is in original units and population is
// the raw axis matrix used for percentile context. It never fails.
func (in *Interpreter) Interpret(ctx context.Context, axis string, center []float64, featureNames []string, population *mat.Dense, populationPct float64) NamingResponse {
	req := NamingRequest{
		Axis:          axis,
		FeatureNames:  featureNames,
		Center:        make(map[string]float64, len(featureNames)),
		Percentiles:   make(map[string]float64, len(featureNames)),
		PopulationPct: populationPct,
	}
	for j, f := range featureNames {
		if j >= len(center) {
			break
		}
		req.Center[f] = center[j]
		pct := 50.0
		if population != nil {
			if _, c := population.Dims(); j < c {
				pct = percentileRank(sortedColumn(population, j), center[j])
			}
		}
		req.Percentiles[f] = pct
	}

	if in.namer != nil {
		resp, err := in.callNamer(ctx, req)
		if err == nil {
			name := SanitizeName(resp.Name)
			if name != "" {
				return NamingResponse{Name: name, Description: truncate(strings.TrimSpace(resp.Description), maxDescriptionLength)}
			}
			err = fmt.Errorf("empty name after sanitizing %q", resp.Name)
		}
		namingFallbacks.WithLabelValues(axis).Inc()
		logger.Warn("segment_naming_fallback", "run_id", RunIDFromContext(ctx), "axis", axis, "error", err)
	}
	return in.fallback(req)
}

// callNamer bounds one collaborator call and turns a panic into an error.
func (in *Interpreter) callNamer(ctx context.Context, req NamingRequest) (resp NamingResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("namer panicked: %v", r)
		}
	}()
	cctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()
	return in.namer.NameSegment(cctx, req)
}

// fallback names a cluster after its most extreme feature, the one whose
// percentile is furthest from the median.
func (in *Interpreter) fallback(req NamingRequest) NamingResponse {
	feature := ""
	pct := 50.0
	best := -1.0
	for _, f := range req.FeatureNames {
		p, ok := req.Percentiles[f]
		if !ok {
			continue
		}
		if d := math.Abs(p - 50); d > best {
			best, feature, pct = d, f, p
		}
	}

	level := "medium"
	switch {
	case pct >= highPercentile:
		level = "high"
	case pct <= lowPercentile:
		level = "low"
	}

	name := SanitizeName(level + "_" + req.Axis)
	if feature == "" {
		return NamingResponse{Name: name, Description: fmt.Sprintf("Customers at a %s level of %s.", level, humanize(req.Axis))}
	}

	phrase := in.describe(req.Axis, feature, req.Center[feature])
	desc := fmt.Sprintf("Customers with %s %s: %s (percentile %.0f).", level, humanize(feature), phrase, pct)
	return NamingResponse{Name: name, Description: truncate(desc, maxDescriptionLength)}
}

func (in *Interpreter) describe(axis, feature string, value float64) string {
	if in.registry != nil {
		if def, ok := in.registry.Axis(axis); ok && def.Describe != nil {
			return def.Describe(feature, value)
		}
	}
	return fmt.Sprintf("%s of %.2f", humanize(feature), value)
}

var (
	nameSeparators = regexp.MustCompile(`[\s\-]+`)
	nameInvalid    = regexp.MustCompile(`[^a-z0-9_]`)
	nameRepeats    = regexp.MustCompile(`_+`)
)

// SanitizeName makes a generated name identifier-safe: lower case, words
// joined by underscores, nothing but [a-z0-9_], at most 40 characters.
func SanitizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nameSeparators.ReplaceAllString(s, "_")
	s = nameInvalid.ReplaceAllString(s, "")
	s = nameRepeats.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], "_")
	}
	return s
}

// uniqueName appends _2, _3, ... until name is unused, recording the result.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	used[candidate] = true
	return candidate
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
