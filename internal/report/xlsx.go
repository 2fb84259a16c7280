package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"solarfarm/internal/estimator"
)

// XLSXContentType is the media type of WriteSweepXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sweepSheet      = "Sweep"
	xlsxNumberFmt   = "#,##0.00"
	xlsxColumnWidth = 18
)

// WriteSweepXLSX writes series as a single-sheet workbook with the columns
// of WriteSweepCSV. Numbers are stored as numeric cells; the header row is
// frozen.
func WriteSweepXLSX(w io.Writer, series *estimator.SweepSeries) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sweepSheet); err != nil {
		return fmt.Errorf("naming sweep sheet: %w", err)
	}

	header := append([]string{series.Parameter.Key}, sweepColumns...)
	if err := f.SetSheetRow(sweepSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing sweep header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	numFmt := xlsxNumberFmt
	numberStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating number style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sweepSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("styling sweep header: %w", err)
	}

	for i, pt := range series.Points {
		errCode := ""
		if pt.Error != nil {
			errCode = pt.Error.Code
		}
		row := []any{
			pt.Value,
			pt.NumPanels,
			pt.AnnualRevenue,
			pt.InitialCost,
			pt.PayoffYears,
			string(pt.PayoffStatus),
			errCode,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sweepSheet, cell, &row); err != nil {
			return fmt.Errorf("writing sweep row %d: %w", i+1, err)
		}
	}

	if n := len(series.Points); n > 0 {
		last := fmt.Sprintf("E%d", n+1)
		if err := f.SetCellStyle(sweepSheet, "A2", last, numberStyle); err != nil {
			return fmt.Errorf("styling sweep values: %w", err)
		}
	}

	if err := f.SetColWidth(sweepSheet, "A", lastCol, xlsxColumnWidth); err != nil {
		return err
	}
	if err := f.SetPanes(sweepSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing sweep header: %w", err)
	}

	return f.Write(w)
}
