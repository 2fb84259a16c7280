package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solarfarm/internal/estimator"
	"solarfarm/internal/report"
)

func (c *cli) sweepCmd() *cobra.Command {
	var (
		param        string
		steps        int
		asCSV        bool
		asJSON       bool
		xlsxPath     string
		scenarioPath string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Vary one parameter across its range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}

			series, err := estimator.Sweep(sc.ApplyModel(estimator.DefaultModel()), sc.Input, param, steps)
			if err != nil {
				return err
			}
			c.logger.Debug("sweep complete", "param", param, "points", len(series.Points))

			if xlsxPath != "" {
				if err := writeFile(xlsxPath, func(w io.Writer) error {
					return report.WriteSweepXLSX(w, series)
				}); err != nil {
					return err
				}
				c.logger.Info("workbook written", "path", xlsxPath)
			}

			w := cmd.OutOrStdout()
			switch {
			case asCSV:
				return report.WriteSweepCSV(w, series)
			case asJSON:
				return writeJSON(w, series)
			default:
				return c.writeSweepTable(w, series)
			}
		},
	}

	cmd.Flags().StringVar(&param, "param", "", "parameter key to sweep (see 'solarcalc params')")
	cmd.Flags().IntVar(&steps, "steps", 20, "number of evenly spaced values, both ends included")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print CSV")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an Excel workbook to this file")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file used as the base")
	_ = cmd.MarkFlagRequired("param")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")
	return cmd
}

func (c *cli) writeSweepTable(w io.Writer, series *estimator.SweepSeries) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tPanels\tAnnual Revenue\tInitial Cost\tPayoff (years)\n", series.Parameter.Label)
	for _, pt := range series.Points {
		payoff := "never"
		switch {
		case pt.Error != nil:
			payoff = pt.Error.Code
		case pt.PayoffStatus != estimator.PayoffNever:
			payoff = fmt.Sprintf("%.1f", pt.PayoffYears)
		}
		fmt.Fprintf(tw, "%g\t%.0f\t%.2f\t%.2f\t%s\n", pt.Value, pt.NumPanels, pt.AnnualRevenue, pt.InitialCost, payoff)
	}
	return tw.Flush()
}
