package estimator

// Default model constants reproduce the factors the dashboard has always used.
const (
	DefaultShadingFactor     = 0.8
	DefaultAccessPathsFactor = 0.9
	DefaultRevenueRate       = 0.10
)

// Model holds the fixed engineering and financial factors applied to every
// estimate. A Model is a plain value: it is passed explicitly to Estimate and
// never read from package state, so callers can run several models side by
// side (for example a scenario file that overrides the shading factor).
type Model struct {
	// ShadingFactor is the fraction of usable land not lost to panel shading.
	ShadingFactor float64 `json:"shading_factor" yaml:"shading_factor" validate:"finite,gt=0,lte=1"`

	// AccessPathsFactor is the fraction of land left after maintenance paths.
	AccessPathsFactor float64 `json:"access_paths_factor" yaml:"access_paths_factor" validate:"finite,gt=0,lte=1"`

	// RevenueRate is the currency earned per kWh when the input does not
	// carry its own kwh_payment.
	RevenueRate float64 `json:"revenue_rate" yaml:"revenue_rate" validate:"finite,gte=0"`
}

// DefaultModel returns the stock factors.
func DefaultModel() Model {
	return Model{
		ShadingFactor:     DefaultShadingFactor,
		AccessPathsFactor: DefaultAccessPathsFactor,
		RevenueRate:       DefaultRevenueRate,
	}
}

// Validate checks every factor against its allowed range. Failures are
// returned as a *types.AppError with code validation_invalid_model that wraps
// ErrInvalidModel.
func (m Model) Validate() error {
	if violations := validateFields(m); len(violations) > 0 {
		return newFieldError(errInvalidModel, violations)
	}
	return nil
}

// Override returns a copy of m with each non-nil factor replaced.
func (m Model) Override(shading, accessPaths, revenueRate *float64) Model {
	out := m
	if shading != nil {
		out.ShadingFactor = *shading
	}
	if accessPaths != nil {
		out.AccessPathsFactor = *accessPaths
	}
	if revenueRate != nil {
		out.RevenueRate = *revenueRate
	}
	return out
}
