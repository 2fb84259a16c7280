package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"solarfarm/internal/estimator"
	"solarfarm/internal/sunlight"
)

func (c *cli) citiesCmd() *cobra.Command {
	var (
		region string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List the cities in the sunlight table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cities := make([]sunlight.City, 0, c.table.Len())
			for _, city := range c.table.Cities() {
				if region == "" || strings.EqualFold(city.Region, region) {
					cities = append(cities, city)
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cities)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tName\tRegion\tSunlight (h/day)")
			for _, city := range cities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", city.ID, city.Name, city.Region, city.SunlightHours)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "only list cities in this region")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) paramsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the adjustable parameters with their ranges and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := estimator.Parameters()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), params)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "Key\tFlag\tLabel\tUnit\tMin\tMax\tStep\tDefault")
			for _, p := range params {
				fmt.Fprintf(tw, "%s\t--%s\t%s\t%s\t%g\t%g\t%g\t%g\n",
					p.Key, flagName(p.Key), p.Label, p.Unit, p.Min, p.Max, p.Step, p.Default)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
