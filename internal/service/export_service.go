package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
	"github.com/noah-isme/usis-routine-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var routineHeaders = []string{"Course", "Section", "Faculty", "Type", "Day", "Time", "Room", "Mid Exam", "Final Exam"}

type csvRenderer interface {
	Render(data export.Dataset, grid *export.Timetable) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, grid *export.Timetable, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title string
}

// ExportResult is a rendered routine document.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders routines as CSV or PDF documents.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	cfg    ExportConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Class Routine"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, cfg: cfg, logger: logger, now: time.Now}
}

// Render builds the document for sections in the requested format.
func (s *ExportService) Render(ctx context.Context, sections []models.Section, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "routine has no sections")
	}

	dataset := BuildRoutineDataset(sections)
	grid := BuildTimetable(sections)

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset, &grid)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, &grid, s.cfg.Title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render routine")
	}

	s.logger.Debug("routine exported", zap.String("format", format), zap.Int("sections", len(sections)), zap.Int("bytes", len(payload)))
	return &ExportResult{
		Filename:    fmt.Sprintf("routine_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// BuildRoutineDataset lists one row per meeting.
func BuildRoutineDataset(sections []models.Section) export.Dataset {
	rows := make([]map[string]string, 0, len(sections)*2)
	for _, section := range sections {
		for _, m := range planner.AllMeetings(section) {
			faculty := section.Faculty
			if m.Kind == models.MeetingLab && section.LabFaculty != "" {
				faculty = section.LabFaculty
			}
			rows = append(rows, map[string]string{
				"Course":     section.CourseCode,
				"Section":    section.SectionName,
				"Faculty":    faculty,
				"Type":       meetingLabel(m.Kind),
				"Day":        string(m.Day),
				"Time":       meetingTime(m),
				"Room":       m.Room,
				"Mid Exam":   examLabel(section.Exams.Mid),
				"Final Exam": examLabel(section.Exams.Final),
			})
		}
	}
	return export.Dataset{Headers: routineHeaders, Rows: rows}
}

// BuildTimetable lays meetings onto the standard display slots for every
// campus day of the routine. Meetings outside every slot get their own row.
func BuildTimetable(sections []models.Section) export.Timetable {
	_, days := planner.CampusDays(sections)
	grid := export.Timetable{Cells: map[string]map[string]string{}}
	for _, day := range days {
		grid.Days = append(grid.Days, string(day))
	}
	for _, slot := range planner.DisplaySlots {
		grid.Slots = append(grid.Slots, slot.Label)
	}

	place := func(slot, day, text string) {
		if grid.Cells[slot] == nil {
			grid.Cells[slot] = map[string]string{}
		}
		if existing := grid.Cells[slot][day]; existing != "" {
			text = existing + "\n" + text
		}
		grid.Cells[slot][day] = text
	}

	for _, section := range sections {
		for _, m := range planner.AllMeetings(section) {
			if !m.Day.Valid() {
				continue
			}
			text := fmt.Sprintf("%s (%s) %s", section.Label(), meetingLabel(m.Kind), m.Room)
			placed := false
			if !m.Ambiguous {
				for _, slot := range planner.DisplaySlots {
					if planner.Overlaps(m.StartMinutes, m.EndMinutes, slot.Start, slot.End) {
						place(slot.Label, string(m.Day), text)
						placed = true
					}
				}
			}
			if !placed {
				label := meetingTime(m)
				if _, ok := grid.Cells[label]; !ok {
					grid.Slots = append(grid.Slots, label)
				}
				place(label, string(m.Day), text)
			}
		}
	}
	return grid
}

func meetingLabel(kind models.MeetingKind) string {
	if kind == models.MeetingLab {
		return "Lab"
	}
	return "Class"
}

func meetingTime(m models.Meeting) string {
	if m.Ambiguous {
		return strings.TrimSpace(m.StartTime) + "-" + strings.TrimSpace(m.EndTime)
	}
	return planner.FormatMinutes(m.StartMinutes) + "-" + planner.FormatMinutes(m.EndMinutes)
}

func examLabel(slot *models.ExamSlot) string {
	if slot == nil {
		return ""
	}
	date := slot.NormalizedDate
	if date == "" {
		date = slot.Date
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s-%s", date, slot.StartTime, slot.EndTime))
}
