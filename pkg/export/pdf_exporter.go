package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0
	slotColumn = 38.0
)

// PDFExporter renders a routine as a landscape timetable plus a section table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF document. The grid is optional.
func (e *PDFExporter) Render(data Dataset, grid *Timetable, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	if grid != nil && len(grid.Days) > 0 {
		writeTimetable(pdf, *grid)
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 9)
	colWidth := pageWidth / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTimetable(pdf *gofpdf.Fpdf, grid Timetable) {
	dayWidth := (pageWidth - slotColumn) / float64(len(grid.Days))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(slotColumn, 8, "Time", "1", 0, "C", true, 0, "")
	for _, day := range grid.Days {
		pdf.CellFormat(dayWidth, 8, day, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for _, slot := range grid.Slots {
		lines := 1
		for _, day := range grid.Days {
			if n := len(strings.Split(grid.Cell(slot, day), "\n")); n > lines {
				lines = n
			}
		}
		height := float64(lines) * 4.5
		x, y := pdf.GetXY()
		pdf.Rect(x, y, slotColumn, height, "D")
		pdf.MultiCell(slotColumn, 4.5, slot, "", "C", false)
		for i, day := range grid.Days {
			cellX := x + slotColumn + float64(i)*dayWidth
			pdf.Rect(cellX, y, dayWidth, height, "D")
			pdf.SetXY(cellX, y)
			pdf.MultiCell(dayWidth, 4.5, grid.Cell(slot, day), "", "C", false)
		}
		pdf.SetXY(x, y+height)
	}
}
