package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"solarfarm/internal/estimator"
)

// PDFContentType is the media type of WriteSummaryPDF output.
const PDFContentType = "application/pdf"

const (
	pdfFont      = "Arial"
	pdfRowHeight = 7.0
	pdfLabelW    = 65.0
	pdfBarMaxW   = 95.0
)

var (
	pdfAccent = [3]int{68, 114, 196}
	pdfShade  = [3]int{242, 242, 242}
)

// WriteSummaryPDF renders a one-page A4 report with English formatting.
func WriteSummaryPDF(w io.Writer, title string, in estimator.Input, res *estimator.Result) error {
	return english.WriteSummaryPDF(w, title, in, res)
}

// WriteSummaryPDF renders a one-page A4 report: the summary lines, one row
// per input badge, any warnings and the overview chart as horizontal bars.
// Bars are scaled to the largest positive value; negative values draw no
// bar.
func (f *Formatter) WriteSummaryPDF(w io.Writer, title string, in estimator.Input, res *estimator.Result) error {
	if title == "" {
		title = ChartTitle
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")

	section := func(name string) {
		pdf.Ln(4)
		pdf.SetFont(pdfFont, "B", 12)
		pdf.SetTextColor(pdfAccent[0], pdfAccent[1], pdfAccent[2])
		pdf.CellFormat(0, 8, tr(name), "B", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)
	}
	row := func(i int, label, value string) {
		if i%2 == 1 {
			pdf.SetFillColor(pdfShade[0], pdfShade[1], pdfShade[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont(pdfFont, "B", 10)
		pdf.CellFormat(pdfLabelW, pdfRowHeight, tr(label), "", 0, "L", true, 0, "")
		pdf.SetFont(pdfFont, "", 10)
		pdf.CellFormat(0, pdfRowHeight, tr(value), "", 1, "L", true, 0, "")
	}

	section("Results")
	for i, l := range f.Summarize(in, res) {
		row(i, l.Label, l.Value)
	}

	section("Inputs")
	for i, b := range f.Badges(in) {
		row(i, b.Label, b.Value)
	}

	if len(res.Warnings) > 0 {
		section("Warnings")
		pdf.SetFont(pdfFont, "", 10)
		for _, wn := range res.Warnings {
			pdf.MultiCell(0, pdfRowHeight, tr(wn.Message), "", "L", false)
		}
	}

	chart := BuildChart(res)
	section(chart.Title)
	var peak float64
	for _, b := range chart.Bars {
		peak = max(peak, b.Value)
	}
	pdf.SetFillColor(pdfAccent[0], pdfAccent[1], pdfAccent[2])
	for _, b := range chart.Bars {
		pdf.SetFont(pdfFont, "", 10)
		pdf.CellFormat(pdfLabelW, pdfRowHeight, tr(b.Label), "", 0, "L", false, 0, "")

		x, y := pdf.GetXY()
		var width float64
		if peak > 0 && b.Value > 0 {
			width = pdfBarMaxW * b.Value / peak
			pdf.Rect(x, y+1, width, pdfRowHeight-2, "F")
		}
		pdf.SetX(x + width + 2)
		pdf.CellFormat(0, pdfRowHeight, f.p.Sprintf("%.2f", b.Value), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering summary pdf: %w", err)
	}
	return pdf.Output(w)
}
