package estimator

import (
	"errors"
	"fmt"

	"solarfarm/internal/types"
)

// Sweep step bounds.
const (
	MinSweepSteps = 2
	MaxSweepSteps = 200
)

// SweepPoint is the estimate at one value of the swept parameter.
type SweepPoint struct {
	Value         float64      `json:"value"`
	NumPanels     float64      `json:"num_panels"`
	AnnualRevenue float64      `json:"annual_revenue"`
	InitialCost   float64      `json:"initial_cost"`
	PayoffYears   float64      `json:"payoff_years"`
	PayoffStatus  PayoffStatus `json:"payoff_status,omitempty"`
	Error         *ItemError   `json:"error,omitempty"`
}

// SweepSeries is a parameter swept across its full range with everything
// else held at the base scenario.
type SweepSeries struct {
	Parameter Parameter    `json:"parameter"`
	Base      Input        `json:"base"`
	Points    []SweepPoint `json:"points"`
}

// Sweep varies param from its descriptor minimum to maximum in steps evenly
// spaced values, both ends included. Points where revenue is exactly zero
// are kept with Error set; any other failure (an invalid base scenario, for
// instance) aborts the sweep.
func Sweep(model Model, base Input, param string, steps int) (*SweepSeries, error) {
	p, err := Describe(param)
	if err != nil {
		return nil, err
	}
	if steps < MinSweepSteps || steps > MaxSweepSteps {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationOutOfRange,
			fmt.Sprintf("steps must be between %d and %d", MinSweepSteps, MaxSweepSteps),
			nil,
			map[string]any{"steps": steps},
		)
	}

	series := &SweepSeries{
		Parameter: p,
		Base:      base,
		Points:    make([]SweepPoint, 0, steps),
	}

	span := p.Max - p.Min
	for i := 0; i < steps; i++ {
		v := p.Min + span*float64(i)/float64(steps-1)
		if i == steps-1 {
			v = p.Max
		}

		point := SweepPoint{Value: v}
		res, err := Estimate(model, p.With(base, v))
		switch {
		case err == nil:
			point.NumPanels = res.NumPanels
			point.AnnualRevenue = res.AnnualRevenue
			point.InitialCost = res.InitialCost
			point.PayoffYears = res.PayoffYears
			point.PayoffStatus = res.PayoffStatus
		case errors.Is(err, ErrZeroRevenue):
			point.Error = NewItemError(err)
		default:
			return nil, err
		}
		series.Points = append(series.Points, point)
	}

	return series, nil
}
