package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Timetable is a weekly grid: one row per time slot, one column per day.
type Timetable struct {
	Days  []string
	Slots []string
	// Cells is keyed by slot then day.
	Cells map[string]map[string]string
}

// Cell returns the text for a slot/day pair.
func (t Timetable) Cell(slot, day string) string {
	if t.Cells == nil {
		return ""
	}
	return t.Cells[slot][day]
}

// CSVExporter renders routine tables into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the section table followed, when present, by the weekly grid
// separated by a blank record.
func (e *CSVExporter) Render(data Dataset, grid *Timetable) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	if grid != nil && len(grid.Days) > 0 {
		if err := writer.Write([]string{""}); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
		if err := writer.Write(append([]string{"Time"}, grid.Days...)); err != nil {
			return nil, fmt.Errorf("write timetable header: %w", err)
		}
		for _, slot := range grid.Slots {
			record := []string{slot}
			for _, day := range grid.Days {
				record = append(record, grid.Cell(slot, day))
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write timetable row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
