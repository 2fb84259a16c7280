// Package report turns estimates into display-ready text: the summary
// lines, parameter badges, the overview bar chart and CSV exports of
// sweeps. Numbers are grouped and rounded with golang.org/x/text so the
// output matches the locale of the Formatter.
package report

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"solarfarm/internal/estimator"
)

const currencySymbol = "$"

// ChartTitle and ChartYAxis label the overview chart.
const (
	ChartTitle = "Solar Panel System Overview"
	ChartYAxis = "Value"
)

// Line is one labelled value of the summary.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (l Line) String() string { return l.Label + ": " + l.Value }

// Badge shows the current value of an input parameter.
type Badge struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Bar is one bar of the overview chart.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is the overview bar chart series.
type Chart struct {
	Title string `json:"title"`
	YAxis string `json:"yaxis"`
	Bars  []Bar  `json:"bars"`
}

// Formatter renders numbers for one locale.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{p: message.NewPrinter(tag)}
}

var english = NewFormatter(language.English)

// Summarize renders res with English number formatting.
func Summarize(in estimator.Input, res *estimator.Result) []Line {
	return english.Summarize(in, res)
}

// Badges renders the input badges with English number formatting.
func Badges(in estimator.Input) []Badge {
	return english.Badges(in)
}

// Summarize returns the summary lines in display order. Years Until Payoff
// reads "never" when revenue cannot cover the initial cost.
func (f *Formatter) Summarize(in estimator.Input, res *estimator.Result) []Line {
	payoff := "never"
	if res.PayoffStatus != estimator.PayoffNever {
		payoff = f.p.Sprintf("%.1f", res.PayoffYears)
	}

	return []Line{
		{"Land Area", f.p.Sprintf("%s acres (%.2f m²)", trimFloat(in.LandArea), res.LandAreaM2)},
		{"Number of Panels", f.p.Sprintf("%.0f", res.NumPanels)},
		{"Total System Capacity", f.p.Sprintf("%.2f kW", res.TotalCapacityKW)},
		{"Daily Energy Production", f.p.Sprintf("%.2f kWh", res.DailyEnergyKWh)},
		{"Annual Revenue", f.money(res.AnnualRevenue, 2)},
		{"kWh Payment", f.money(res.KWhPayment, 2)},
		{"Initial Cost", f.money(res.InitialCost, 2)},
		{"Years Until Payoff", payoff},
	}
}

// Badges returns one badge per parameter in descriptor order. An absent
// kwh_payment is shown as "model default".
func (f *Formatter) Badges(in estimator.Input) []Badge {
	params := estimator.Parameters()
	out := make([]Badge, 0, len(params))
	for _, p := range params {
		value := f.unitValue(p, p.Value(in))
		if p.Key == estimator.ParamKWhPayment && in.KWhPayment == nil {
			value = "model default"
		}
		out = append(out, Badge{Key: p.Key, Label: p.Label, Value: value})
	}
	return out
}

func (f *Formatter) unitValue(p estimator.Parameter, v float64) string {
	switch p.Unit {
	case estimator.UnitAcres:
		return f.p.Sprintf("%s acres", trimFloat(v))
	case estimator.UnitCurrency:
		return f.money(v, 0)
	case estimator.UnitM2:
		return f.p.Sprintf("%s m²", trimFloat(v))
	case estimator.UnitKW:
		return f.p.Sprintf("%s kW", trimFloat(v))
	case estimator.UnitPercent:
		return trimFloat(v) + "%"
	case estimator.UnitHours:
		return trimFloat(v) + " h"
	case estimator.UnitPerKWh:
		return f.money(v, 2) + "/kWh"
	case estimator.UnitPerYear:
		return f.money(v, 0) + "/yr"
	default:
		return trimFloat(v)
	}
}

// money formats v with zero or two decimals and the currency symbol in
// front of the unsigned amount, so -1.5 renders as -$1.50.
func (f *Formatter) money(v float64, decimals int) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	if decimals == 0 {
		return sign + currencySymbol + f.p.Sprintf("%.0f", v)
	}
	return sign + currencySymbol + f.p.Sprintf("%.2f", v)
}

// BuildChart returns the overview bar series of res.
func BuildChart(res *estimator.Result) Chart {
	return Chart{
		Title: ChartTitle,
		YAxis: ChartYAxis,
		Bars: []Bar{
			{"Panels", res.NumPanels},
			{"Capacity (kW)", res.TotalCapacityKW},
			{"Daily Energy (kWh)", res.DailyEnergyKWh},
			{"Annual Revenue ($)", res.AnnualRevenue},
		},
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
