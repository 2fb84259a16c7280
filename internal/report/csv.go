package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"solarfarm/internal/estimator"
)

var sweepColumns = []string{"num_panels", "annual_revenue", "initial_cost", "payoff_years", "payoff_status", "error"}

// WriteSweepCSV writes one row per sweep point. The first column is named
// after the swept parameter. Values are written unrounded and unlocalised
// so the file stays machine readable.
func WriteSweepCSV(w io.Writer, series *estimator.SweepSeries) error {
	cw := csv.NewWriter(w)

	header := append([]string{series.Parameter.Key}, sweepColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing sweep header: %w", err)
	}

	for _, pt := range series.Points {
		errCode := ""
		if pt.Error != nil {
			errCode = pt.Error.Code
		}
		row := []string{
			formatCSV(pt.Value),
			formatCSV(pt.NumPanels),
			formatCSV(pt.AnnualRevenue),
			formatCSV(pt.InitialCost),
			formatCSV(pt.PayoffYears),
			string(pt.PayoffStatus),
			errCode,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing sweep row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCSV(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
