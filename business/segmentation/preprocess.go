package segmentation

import (
	"fmt"

	"customerSegments/domain"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Preprocessor winsorizes and scales an axis matrix. FitTransform is only used
// during discovery; Transform is used for both discovery and inference so the
// two never drift apart.
type Preprocessor struct {
	scaler           domain.ScalerType
	winsorPercentile float64
}

func NewPreprocessor(cfg Config) Preprocessor {
	return Preprocessor{scaler: cfg.Scaler, winsorPercentile: cfg.WinsorPercentile}
}

// FitTransform learns scaler parameters from X and returns X in scaled space.
func (p Preprocessor) FitTransform(X *mat.Dense) (*mat.Dense, *domain.ScalerParams) {
	r, c := X.Dims()
	clean := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		clean.SetRow(i, sanitizeSlice(X.RawRowView(i)))
	}

	params := &domain.ScalerParams{
		Type:   p.scaler,
		Center: make([]float64, c),
		Scale:  make([]float64, c),
	}
	if p.winsorPercentile > 0 {
		params.ClipLower = make([]float64, c)
		params.ClipUpper = make([]float64, c)
	}

	for j := 0; j < c; j++ {
		col := sortedColumn(clean, j)
		if params.Winsorized() {
			lo := quantile(col, (100-p.winsorPercentile)/100)
			hi := quantile(col, p.winsorPercentile/100)
			params.ClipLower[j] = lo
			params.ClipUpper[j] = hi
			for i := range col {
				col[i] = clip(col[i], lo, hi)
			}
		}

		switch p.scaler {
		case domain.ScalerStandard:
			m, sd := stat.PopMeanStdDev(col, nil)
			params.Center[j] = m
			params.Scale[j] = nonZeroScale(sd)
		default:
			params.Center[j] = quantile(col, 0.5)
			params.Scale[j] = nonZeroScale(quantile(col, 0.75) - quantile(col, 0.25))
		}
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		z, _ := Transform(clean.RawRowView(i), params)
		out.SetRow(i, z)
	}
	return out, params
}

// Transform applies stored scaler parameters to one raw vector. The
// parameters are never refit here.
func Transform(v []float64, params *domain.ScalerParams) ([]float64, error) {
	if params == nil {
		return nil, ErrMissingScaler
	}
	if len(v) != len(params.Center) || len(params.Scale) != len(params.Center) {
		return nil, fmt.Errorf("%w: vector has %d features, scaler %d", ErrDimensionMismatch, len(v), len(params.Center))
	}
	winsorized := len(params.ClipLower) == len(v) && len(params.ClipUpper) == len(v)

	out := make([]float64, len(v))
	for j, x := range v {
		x = sanitize(x)
		if winsorized {
			x = clip(x, params.ClipLower[j], params.ClipUpper[j])
		}
		out[j] = (x - params.Center[j]) / nonZeroScale(params.Scale[j])
	}
	return out, nil
}

// InverseTransform maps a scaled point back to original feature units.
// Clipping is not invertible, so the result stays within the clip bounds.
func InverseTransform(z []float64, params *domain.ScalerParams) ([]float64, error) {
	if params == nil {
		return nil, ErrMissingScaler
	}
	if len(z) != len(params.Center) {
		return nil, fmt.Errorf("%w: point has %d dims, scaler %d", ErrDimensionMismatch, len(z), len(params.Center))
	}
	out := make([]float64, len(z))
	for j := range z {
		out[j] = z[j]*nonZeroScale(params.Scale[j]) + params.Center[j]
	}
	return out, nil
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// nonZeroScale keeps zero-variance features from dividing by zero.
func nonZeroScale(s float64) float64 {
	if s == 0 || s != s {
		return 1
	}
	return s
}
