package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"solarfarm/internal/estimator"
	"solarfarm/internal/report"
	"solarfarm/internal/scenario"
)

// flagName turns a parameter key such as land_area into land-area.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

type estimateOptions struct {
	scenarioPath string
	city         string
	asJSON       bool
	pdfPath      string
	values       map[string]*float64
}

type estimateOutput struct {
	Name    string            `json:"name,omitempty"`
	CityID  string            `json:"city_id,omitempty"`
	Input   estimator.Input   `json:"input"`
	Result  *estimator.Result `json:"result"`
	Summary []report.Line     `json:"summary"`
	Badges  []report.Badge    `json:"badges"`
}

func (c *cli) estimateCmd() *cobra.Command {
	opts := &estimateOptions{values: make(map[string]*float64)}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate one scenario",
		Long: `Estimate one scenario. Every parameter starts at its default; a scenario
file replaces those defaults and individual flags override both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runEstimate(cmd, opts)
		},
	}

	for _, p := range estimator.Parameters() {
		opts.values[p.Key] = cmd.Flags().Float64(flagName(p.Key), p.Default, fmt.Sprintf("%s (%s)", p.Label, p.Unit))
	}
	cmd.Flags().StringVar(&opts.scenarioPath, "scenario", "", "YAML scenario file")
	cmd.Flags().StringVar(&opts.city, "city", "", "take sunlight hours from this city unless --sunlight-hours is set")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of the summary")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "also write a PDF report to this file")
	return cmd
}

// loadScenario resolves the scenario the estimate and sweep commands start
// from: the file when given, defaults otherwise.
func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return &scenario.Scenario{Input: estimator.DefaultInput()}, nil
	}
	return scenario.Load(path)
}

func (c *cli) runEstimate(cmd *cobra.Command, opts *estimateOptions) error {
	sc, err := loadScenario(opts.scenarioPath)
	if err != nil {
		return err
	}

	in := sc.Input
	for _, p := range estimator.Parameters() {
		if cmd.Flags().Changed(flagName(p.Key)) {
			in = p.With(in, *opts.values[p.Key])
		}
	}

	cityID := sc.CityID
	if opts.city != "" {
		cityID = opts.city
	}
	if cityID != "" && !cmd.Flags().Changed(flagName(estimator.ParamSunlightHours)) {
		hours, err := c.table.SunlightHours(cmd.Context(), cityID)
		if err != nil {
			return err
		}
		c.logger.Debug("sunlight hours from city", "city_id", cityID, "sunlight_hours", hours)
		in.SunlightHours = hours
	}

	res, err := estimator.Estimate(sc.ApplyModel(estimator.DefaultModel()), in)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		c.logger.Warn("estimate warning", "code", w.Code, "message", w.Message)
	}

	out := estimateOutput{
		Name:    sc.Name,
		CityID:  cityID,
		Input:   in,
		Result:  res,
		Summary: c.formatter.Summarize(in, res),
		Badges:  c.formatter.Badges(in),
	}
	if opts.pdfPath != "" {
		title := sc.Name
		if title == "" && cityID != "" {
			title = report.ChartTitle + " - " + cityID
		}
		if err := writeFile(opts.pdfPath, func(w io.Writer) error {
			return c.formatter.WriteSummaryPDF(w, title, in, res)
		}); err != nil {
			return err
		}
		c.logger.Info("pdf report written", "path", opts.pdfPath)
	}

	if opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeSummary(cmd.OutOrStdout(), out)
}

func writeSummary(w io.Writer, out estimateOutput) error {
	if out.Name != "" {
		if _, err := fmt.Fprintf(w, "Scenario: %s\n", out.Name); err != nil {
			return err
		}
	}
	for _, line := range out.Summary {
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return err
		}
	}
	for _, warn := range out.Result.Warnings {
		if _, err := fmt.Fprintf(w, "Warning: %s\n", warn.Message); err != nil {
			return err
		}
	}
	return nil
}

// writeFile creates path and fills it with render. The file is removed
// when rendering fails.
func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
