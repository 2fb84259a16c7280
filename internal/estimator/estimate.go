// Package estimator computes solar-farm economics from land, panel, cost and
// sunlight parameters. Estimate is a pure function: it performs no I/O, keeps
// no state and returns a fresh Result on every call.
package estimator

import (
	"fmt"
	"math"

	"solarfarm/internal/types"
)

const (
	// AcreToM2 converts acres to square metres.
	AcreToM2 = 4046.86

	// DaysPerYear is used to annualise daily production.
	DaysPerYear = 365
)

// PayoffStatus tells whether the initial cost is ever recovered.
type PayoffStatus string

const (
	PayoffReachable PayoffStatus = "reachable"
	PayoffNever     PayoffStatus = "never"
)

// RateSource records where the applied per-kWh rate came from.
type RateSource string

const (
	RateFromInput RateSource = "input"
	RateFromModel RateSource = "model_default"
)

// WarningCode identifies a non-fatal condition attached to a Result.
type WarningCode string

const WarnNegativeRevenue WarningCode = "negative_revenue"

// Warning is a non-fatal note about a computed Result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Input is one scenario. Units: acres, m², kW, percent, hours/day and
// currency. KWhPayment is optional; when nil the model's RevenueRate applies.
type Input struct {
	LandArea           float64  `json:"land_area" yaml:"land_area" validate:"finite,gt=0"`
	LandCost           float64  `json:"land_cost" yaml:"land_cost" validate:"finite,gte=0"`
	PanelArea          float64  `json:"panel_area" yaml:"panel_area" validate:"finite,gt=0"`
	PanelPower         float64  `json:"panel_power" yaml:"panel_power" validate:"finite,gt=0"`
	LandDensity        float64  `json:"land_density" yaml:"land_density" validate:"finite,gt=0,lte=100"`
	SunlightHours      float64  `json:"sunlight_hours" yaml:"sunlight_hours" validate:"finite,gte=0"`
	PanelCost          float64  `json:"panel_cost" yaml:"panel_cost" validate:"finite,gte=0"`
	Maintenance        float64  `json:"maintenance" yaml:"maintenance" validate:"finite,gte=0"`
	KWhPayment         *float64 `json:"kwh_payment,omitempty" yaml:"kwh_payment,omitempty" validate:"omitempty,finite,gte=0"`
	AdditionalCosts    float64  `json:"additional_costs" yaml:"additional_costs" validate:"finite,gte=0"`
	ContingencyPercent float64  `json:"contingency_percent,omitempty" yaml:"contingency_percent,omitempty" validate:"finite,gte=0,lte=100"`
}

// Validate checks every field against its domain constraint. The returned
// error is a *types.AppError with code validation_invalid_input wrapping
// ErrInvalidInput; its details list every failing field.
func (in Input) Validate() error {
	if violations := validateFields(in); len(violations) > 0 {
		return newFieldError(errInvalidInput, violations)
	}
	return nil
}

// Result holds the derived quantities for one Input.
type Result struct {
	LandAreaM2      float64      `json:"land_area_m2"`
	UsableAreaM2    float64      `json:"usable_area_m2"`
	NumPanels       float64      `json:"num_panels"`
	TotalCapacityKW float64      `json:"total_capacity_kw"`
	DailyEnergyKWh  float64      `json:"daily_energy_kwh"`
	AnnualEnergyKWh float64      `json:"annual_energy_kwh"`
	AnnualRevenue   float64      `json:"annual_revenue"`
	InitialCost     float64      `json:"initial_cost"`
	PayoffYears     float64      `json:"payoff_years"`
	PayoffStatus    PayoffStatus `json:"payoff_status"`
	KWhPayment      float64      `json:"kwh_payment"`
	RateSource      RateSource   `json:"rate_source"`
	Warnings        []Warning    `json:"warnings,omitempty"`
}

// Estimate runs the economics model for a single scenario.
//
// Panel counts are fractional; nothing is rounded here. When annual revenue
// is exactly zero the payoff period is undefined and Estimate returns an
// estimate_zero_revenue error wrapping ErrZeroRevenue. Negative revenue
// yields a Result with PayoffNever, PayoffYears 0 and a negative_revenue
// warning. Inputs that are individually valid but overflow a derived
// quantity to ±Inf or NaN fail with validation_value_out_of_range wrapping
// ErrInvalidInput.
func Estimate(model Model, in Input) (*Result, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rate, source := model.RevenueRate, RateFromModel
	if in.KWhPayment != nil {
		rate, source = *in.KWhPayment, RateFromInput
	}

	landAreaM2 := in.LandArea * AcreToM2
	densityFraction := in.LandDensity / 100
	usableAreaM2 := landAreaM2 * densityFraction * model.ShadingFactor * model.AccessPathsFactor
	numPanels := usableAreaM2 / in.PanelArea
	capacityKW := numPanels * in.PanelPower
	dailyKWh := capacityKW * in.SunlightHours
	annualKWh := dailyKWh * DaysPerYear
	annualRevenue := annualKWh*rate - in.Maintenance

	initialCost := numPanels*in.PanelCost + in.AdditionalCosts + in.LandCost
	if in.ContingencyPercent > 0 {
		initialCost += initialCost * in.ContingencyPercent / 100
	}

	derived := []derivedValue{
		{"land_area_m2", landAreaM2},
		{"usable_area_m2", usableAreaM2},
		{"num_panels", numPanels},
		{"total_capacity_kw", capacityKW},
		{"daily_energy_kwh", dailyKWh},
		{"annual_energy_kwh", annualKWh},
		{"annual_revenue", annualRevenue},
		{"initial_cost", initialCost},
	}
	for _, d := range derived {
		if math.IsNaN(d.value) || math.IsInf(d.value, 0) {
			return nil, overflowError(d.name)
		}
	}

	res := &Result{
		LandAreaM2:      landAreaM2,
		UsableAreaM2:    usableAreaM2,
		NumPanels:       numPanels,
		TotalCapacityKW: capacityKW,
		DailyEnergyKWh:  dailyKWh,
		AnnualEnergyKWh: annualKWh,
		AnnualRevenue:   annualRevenue,
		InitialCost:     initialCost,
		KWhPayment:      rate,
		RateSource:      source,
	}

	switch {
	case annualRevenue > 0:
		res.PayoffYears = initialCost / annualRevenue
		if math.IsInf(res.PayoffYears, 0) {
			return nil, overflowError("payoff_years")
		}
		res.PayoffStatus = PayoffReachable
	case annualRevenue < 0:
		res.PayoffStatus = PayoffNever
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnNegativeRevenue,
			Message: fmt.Sprintf("maintenance exceeds energy revenue by %.2f per year; the initial cost is never recovered", -annualRevenue),
		})
	default:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeEstimateZeroRevenue,
			"annual revenue is zero; payoff period is undefined",
			ErrZeroRevenue,
			map[string]any{
				"annual_energy_kwh": annualKWh,
				"kwh_payment":       rate,
				"maintenance":       in.Maintenance,
			},
		)
	}

	return res, nil
}

type derivedValue struct {
	name  string
	value float64
}

func overflowError(name string) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationOutOfRange,
		fmt.Sprintf("inputs overflow %s to a non-finite value", name),
		ErrInvalidInput,
		map[string]any{"derived_field": name},
	)
}
