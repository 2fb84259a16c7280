package estimator

import (
	"fmt"

	"solarfarm/internal/types"
)

// Parameter keys, matching the JSON field names of Input.
const (
	ParamLandArea           = "land_area"
	ParamLandCost           = "land_cost"
	ParamPanelArea          = "panel_area"
	ParamPanelPower         = "panel_power"
	ParamLandDensity        = "land_density"
	ParamSunlightHours      = "sunlight_hours"
	ParamPanelCost          = "panel_cost"
	ParamMaintenance        = "maintenance"
	ParamKWhPayment         = "kwh_payment"
	ParamAdditionalCosts    = "additional_costs"
	ParamContingencyPercent = "contingency_percent"
)

// Unit describes how a parameter value is displayed.
type Unit string

const (
	UnitAcres    Unit = "acres"
	UnitCurrency Unit = "currency"
	UnitM2       Unit = "m2"
	UnitKW       Unit = "kW"
	UnitPercent  Unit = "percent"
	UnitHours    Unit = "hours/day"
	UnitPerKWh   Unit = "currency/kWh"
	UnitPerYear  Unit = "currency/year"
)

// Parameter describes one adjustable input: its label, unit and the
// range and step of the control that edits it.
type Parameter struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Unit    Unit    `json:"unit"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`

	get func(Input) float64
	set func(*Input, float64)
}

// Value reads this parameter from in. An absent kwh_payment reads as 0.
func (p Parameter) Value(in Input) float64 { return p.get(in) }

// With returns a copy of in with this parameter set to v.
func (p Parameter) With(in Input, v float64) Input {
	p.set(&in, v)
	return in
}

var parameters = []Parameter{
	{
		Key: ParamLandArea, Label: "Land Area", Unit: UnitAcres,
		Min: 1, Max: 80, Step: 1, Default: 13,
		get: func(in Input) float64 { return in.LandArea },
		set: func(in *Input, v float64) { in.LandArea = v },
	},
	{
		Key: ParamLandCost, Label: "Land Cost", Unit: UnitCurrency,
		Min: 10000, Max: 200000, Step: 10000, Default: 90000,
		get: func(in Input) float64 { return in.LandCost },
		set: func(in *Input, v float64) { in.LandCost = v },
	},
	{
		Key: ParamPanelArea, Label: "Panel Surface Area", Unit: UnitM2,
		Min: 1, Max: 10, Step: 0.1, Default: 2,
		get: func(in Input) float64 { return in.PanelArea },
		set: func(in *Input, v float64) { in.PanelArea = v },
	},
	{
		Key: ParamPanelPower, Label: "Power Output per Panel", Unit: UnitKW,
		Min: 0.1, Max: 1, Step: 0.01, Default: 0.4,
		get: func(in Input) float64 { return in.PanelPower },
		set: func(in *Input, v float64) { in.PanelPower = v },
	},
	{
		Key: ParamLandDensity, Label: "Land Utilization Density", Unit: UnitPercent,
		Min: 50, Max: 90, Step: 1, Default: 60,
		get: func(in Input) float64 { return in.LandDensity },
		set: func(in *Input, v float64) { in.LandDensity = v },
	},
	{
		Key: ParamSunlightHours, Label: "Daily Hours of Sunlight", Unit: UnitHours,
		Min: 1, Max: 12, Step: 0.1, Default: 3.8,
		get: func(in Input) float64 { return in.SunlightHours },
		set: func(in *Input, v float64) { in.SunlightHours = v },
	},
	{
		Key: ParamPanelCost, Label: "Cost per Panel", Unit: UnitCurrency,
		Min: 100, Max: 1000, Step: 10, Default: 150,
		get: func(in Input) float64 { return in.PanelCost },
		set: func(in *Input, v float64) { in.PanelCost = v },
	},
	{
		Key: ParamMaintenance, Label: "Annual Maintenance/Insurance", Unit: UnitPerYear,
		Min: 1000, Max: 50000, Step: 5000, Default: 10000,
		get: func(in Input) float64 { return in.Maintenance },
		set: func(in *Input, v float64) { in.Maintenance = v },
	},
	{
		Key: ParamKWhPayment, Label: "Revenue per kWH", Unit: UnitPerKWh,
		Min: 0, Max: 0.5, Step: 0.01, Default: 0.06,
		get: func(in Input) float64 {
			if in.KWhPayment == nil {
				return 0
			}
			return *in.KWhPayment
		},
		set: func(in *Input, v float64) { in.KWhPayment = &v },
	},
	{
		Key: ParamAdditionalCosts, Label: "Additional Costs (Inverters, Wiring, Labor, etc.)", Unit: UnitCurrency,
		Min: 1000, Max: 510000, Step: 500, Default: 200000,
		get: func(in Input) float64 { return in.AdditionalCosts },
		set: func(in *Input, v float64) { in.AdditionalCosts = v },
	},
	{
		Key: ParamContingencyPercent, Label: "Contingency", Unit: UnitPercent,
		Min: 0, Max: 50, Step: 1, Default: 0,
		get: func(in Input) float64 { return in.ContingencyPercent },
		set: func(in *Input, v float64) { in.ContingencyPercent = v },
	},
}

var parameterIndex = func() map[string]int {
	idx := make(map[string]int, len(parameters))
	for i, p := range parameters {
		idx[p.Key] = i
	}
	return idx
}()

// Parameters returns the descriptors in display order. The slice is a copy.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameters))
	copy(out, parameters)
	return out
}

// Describe looks up one descriptor by key. Unknown keys produce a
// validation_unknown_parameter error.
func Describe(key string) (Parameter, error) {
	i, ok := parameterIndex[key]
	if !ok {
		return Parameter{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationUnknownParam,
			fmt.Sprintf("unknown parameter %q", key),
			nil,
			map[string]any{"parameter": key},
		)
	}
	return parameters[i], nil
}

// DefaultInput builds the scenario every control starts at.
func DefaultInput() Input {
	var in Input
	for _, p := range parameters {
		in = p.With(in, p.Default)
	}
	return in
}
