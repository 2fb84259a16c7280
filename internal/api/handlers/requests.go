package handlers

import (
	"fmt"
	"strconv"

	"solarfarm/internal/estimator"
	"solarfarm/internal/types"
)

// EstimateRequest is the JSON body of POST /v1/estimates and one element
// of a batch. Pointer fields distinguish "absent" from zero. sunlight_hours
// may be left out when city_id is given.
type EstimateRequest struct {
	LandArea           *float64 `json:"land_area" validate:"required,finite,gt=0"`
	LandCost           *float64 `json:"land_cost" validate:"required,finite,gte=0"`
	PanelArea          *float64 `json:"panel_area" validate:"required,finite,gt=0"`
	PanelPower         *float64 `json:"panel_power" validate:"required,finite,gt=0"`
	LandDensity        *float64 `json:"land_density" validate:"required,finite,gt=0,lte=100"`
	SunlightHours      *float64 `json:"sunlight_hours" validate:"omitempty,finite,gte=0"`
	PanelCost          *float64 `json:"panel_cost" validate:"required,finite,gte=0"`
	Maintenance        *float64 `json:"maintenance" validate:"required,finite,gte=0"`
	KWhPayment         *float64 `json:"kwh_payment,omitempty" validate:"omitempty,finite,gte=0"`
	AdditionalCosts    *float64 `json:"additional_costs" validate:"required,finite,gte=0"`
	ContingencyPercent *float64 `json:"contingency_percent,omitempty" validate:"omitempty,finite,gte=0,lte=100"`
	CityID             string   `json:"city_id,omitempty" validate:"omitempty,city_id"`
}

// needsSunlight reports whether sunlight_hours has to come from city_id.
func (r *EstimateRequest) needsSunlight() bool {
	return r.SunlightHours == nil
}

// checkSunlightSource rejects requests with neither sunlight_hours nor city_id.
func (r *EstimateRequest) checkSunlightSource() error {
	if r.SunlightHours != nil || r.CityID != "" {
		return nil
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"sunlight_hours is required unless city_id is given",
		nil,
		map[string]any{"field": "sunlight_hours"},
	)
}

// ToInput converts a validated request. sunlightHours is used when the
// request carries none.
func (r *EstimateRequest) ToInput(sunlightHours float64) estimator.Input {
	in := estimator.Input{
		LandArea:        *r.LandArea,
		LandCost:        *r.LandCost,
		PanelArea:       *r.PanelArea,
		PanelPower:      *r.PanelPower,
		LandDensity:     *r.LandDensity,
		SunlightHours:   sunlightHours,
		PanelCost:       *r.PanelCost,
		Maintenance:     *r.Maintenance,
		KWhPayment:      r.KWhPayment,
		AdditionalCosts: *r.AdditionalCosts,
	}
	if r.SunlightHours != nil {
		in.SunlightHours = *r.SunlightHours
	}
	if r.ContingencyPercent != nil {
		in.ContingencyPercent = *r.ContingencyPercent
	}
	return in
}

// ValidationWarnings flags values that are legal but outside the range of
// the dashboard control for that parameter.
func (r *EstimateRequest) ValidationWarnings() []string {
	values := map[string]*float64{
		estimator.ParamLandArea:           r.LandArea,
		estimator.ParamLandCost:           r.LandCost,
		estimator.ParamPanelArea:          r.PanelArea,
		estimator.ParamPanelPower:         r.PanelPower,
		estimator.ParamLandDensity:        r.LandDensity,
		estimator.ParamSunlightHours:      r.SunlightHours,
		estimator.ParamPanelCost:          r.PanelCost,
		estimator.ParamMaintenance:        r.Maintenance,
		estimator.ParamKWhPayment:         r.KWhPayment,
		estimator.ParamAdditionalCosts:    r.AdditionalCosts,
		estimator.ParamContingencyPercent: r.ContingencyPercent,
	}

	var warnings []string
	for _, p := range estimator.Parameters() {
		v := values[p.Key]
		if v == nil || (*v >= p.Min && *v <= p.Max) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s %s is outside the usual range %s to %s",
			p.Key, formatNumber(*v), formatNumber(p.Min), formatNumber(p.Max)))
	}
	return warnings
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BatchRequest is the JSON body of POST /v1/estimates/batch.
type BatchRequest struct {
	Scenarios []EstimateRequest `json:"scenarios" validate:"required,min=1"`
}
