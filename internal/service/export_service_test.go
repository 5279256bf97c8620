package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	"github.com/noah-isme/usis-routine-api/pkg/export"
)

func exportSections(t *testing.T) []models.Section {
	t.Helper()
	raws := []models.RawSection{
		withRawMid(rawSection("CSE110", "1", "ABC", 30, 0, rawClass("SUNDAY", "8:00 AM", "9:20 AM")), "2024-07-10", "10:00 AM", "12:00 PM"),
		rawSection("CSE220", "2", "DEF", 30, 0, rawClass("TUESDAY", "2:00 PM", "3:20 PM"), rawClass("SUNDAY", "7:00 PM", "8:20 PM")),
	}
	raws[1].LabFaculties = "XYZ"
	raws[1].LabSchedules = models.RawLabSchedules{
		Shape:    models.LabShapeList,
		Meetings: []models.RawMeeting{rawClass("MONDAY", "2:00 PM", "4:50 PM")},
	}
	sections := planner.New(planner.Options{}).DecodeCatalog(raws)
	require.Len(t, sections, 2)
	return sections
}

func TestBuildRoutineDataset(t *testing.T) {
	data := BuildRoutineDataset(exportSections(t))
	require.Len(t, data.Rows, 4)
	assert.Equal(t, "CSE110", data.Rows[0]["Course"])
	assert.Equal(t, "8:00 AM-9:20 AM", data.Rows[0]["Time"])
	assert.Equal(t, "2024-07-10 10:00 AM-12:00 PM", data.Rows[0]["Mid Exam"])

	lab := data.Rows[3]
	assert.Equal(t, "Lab", lab["Type"])
	assert.Equal(t, "XYZ", lab["Faculty"])
	assert.Equal(t, "TBA", lab["Room"])
}

func TestBuildTimetable(t *testing.T) {
	grid := BuildTimetable(exportSections(t))

	assert.Equal(t, []string{"SUNDAY", "MONDAY", "TUESDAY"}, grid.Days)
	assert.Equal(t, "CSE110-1 (Class) UB1", grid.Cell("8:00 AM-9:20 AM", "SUNDAY"))
	assert.Equal(t, "CSE220-2 (Class) UB2", grid.Cell("2:00 PM-3:20 PM", "TUESDAY"))
	assert.Equal(t, "CSE220-2 (Lab) TBA", grid.Cell("2:00 PM-3:20 PM", "MONDAY"))
	assert.Equal(t, "CSE220-2 (Lab) TBA", grid.Cell("3:30 PM-4:50 PM", "MONDAY"))

	require.Len(t, grid.Slots, len(planner.DisplaySlots)+1)
	assert.Equal(t, "7:00 PM-8:20 PM", grid.Slots[len(grid.Slots)-1])
	assert.Equal(t, "CSE220-2 (Class) UB2", grid.Cell("7:00 PM-8:20 PM", "SUNDAY"))
}

func TestExportServiceRender(t *testing.T) {
	svc := NewExportService(ExportConfig{Title: "Summer Routine"}, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC) }
	sections := exportSections(t)

	csvResult, err := svc.Render(context.Background(), sections, "")
	require.NoError(t, err)
	assert.Equal(t, "routine_20240601_103000.csv", csvResult.Filename)
	assert.Equal(t, "text/csv", csvResult.ContentType)
	assert.True(t, bytes.HasPrefix(csvResult.Payload, []byte("Course,Section,Faculty")))

	pdfResult, err := svc.Render(context.Background(), sections, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfResult.ContentType)
	assert.True(t, bytes.HasPrefix(pdfResult.Payload, []byte("%PDF")))

	_, err = svc.Render(context.Background(), nil, "csv")
	assert.Error(t, err)
}
