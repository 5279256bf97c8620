package planner

import (
	"fmt"
	"strings"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

const defaultRoom = "TBA"

// DecodeSection converts a raw catalog record into a Section. It never fails:
// problems such as unparseable times or an unknown lab layout are returned as
// warnings and the affected meetings are flagged ambiguous or dropped.
func DecodeSection(raw models.RawSection) (models.Section, []string) {
	section := models.Section{
		CourseCode:    strings.TrimSpace(raw.CourseCode),
		CourseName:    strings.TrimSpace(raw.CourseName),
		SectionID:     raw.SectionID.String(),
		SectionName:   raw.SectionName.String(),
		Faculty:       strings.TrimSpace(raw.Faculties),
		Capacity:      int(raw.Capacity),
		ConsumedSeats: int(raw.ConsumedSeat),
		ClassRoom:     strings.TrimSpace(raw.RoomName),
		LabFaculty:    strings.TrimSpace(raw.LabFaculties),
		LabRoom:       strings.TrimSpace(raw.LabRoomName),
	}

	var warnings []string
	label := section.Label()

	if raw.SectionSchedule != nil {
		for _, rm := range raw.SectionSchedule.ClassSchedules {
			meeting, warn := decodeMeeting(rm, models.MeetingClass, section.ClassRoom)
			if warn != "" {
				warnings = append(warnings, fmt.Sprintf("%s: %s", label, warn))
			}
			section.ClassMeetings = append(section.ClassMeetings, meeting)
		}
	}

	labs, shape := FlattenLabs(raw)
	section.LabMeetings = labs
	section.LabShape = shape
	if shape == models.LabShapeUnrecognized {
		warnings = append(warnings, fmt.Sprintf("%s: unrecognised lab schedule layout", label))
	}
	for _, lab := range labs {
		if lab.Ambiguous {
			warnings = append(warnings, fmt.Sprintf("%s: ambiguous lab meeting %s %s-%s", label, lab.Day, lab.StartTime, lab.EndTime))
		}
	}

	section.Exams = decodeExams(raw)
	return section, warnings
}

// FlattenLabs returns the lab meetings of a record regardless of which layout
// the catalog used. Each meeting falls back to the section lab room, then to
// the room of the wrapping object, then to TBA.
func FlattenLabs(raw models.RawSection) ([]models.Meeting, models.LabShape) {
	shape := raw.LabSchedules.Shape
	if shape == "" {
		shape = models.LabShapeNone
	}
	if shape != models.LabShapeList && shape != models.LabShapeNested {
		return nil, shape
	}

	meetings := make([]models.Meeting, 0, len(raw.LabSchedules.Meetings))
	for _, rm := range raw.LabSchedules.Meetings {
		meeting, _ := decodeMeeting(rm, models.MeetingLab, raw.LabRoomName, raw.LabSchedules.Room)
		meetings = append(meetings, meeting)
	}
	return meetings, shape
}

// AllMeetings returns class meetings followed by lab meetings.
func AllMeetings(section models.Section) []models.Meeting {
	meetings := make([]models.Meeting, 0, len(section.ClassMeetings)+len(section.LabMeetings))
	meetings = append(meetings, section.ClassMeetings...)
	meetings = append(meetings, section.LabMeetings...)
	return meetings
}

func decodeMeeting(rm models.RawMeeting, kind models.MeetingKind, roomFallbacks ...string) (models.Meeting, string) {
	meeting := models.Meeting{
		StartTime: strings.TrimSpace(rm.StartTime),
		EndTime:   strings.TrimSpace(rm.EndTime),
		Kind:      kind,
		Room:      firstNonEmpty(append([]string{rm.Room}, roomFallbacks...)...),
	}
	if meeting.Room == "" {
		meeting.Room = defaultRoom
	}

	day, dayOK := models.ParseDay(rm.Day)
	meeting.Day = day
	start, startOK := ParseMinutes(rm.StartTime)
	end, endOK := ParseMinutes(rm.EndTime)
	meeting.StartMinutes = start
	meeting.EndMinutes = end

	switch {
	case !dayOK:
		meeting.Ambiguous = true
		return meeting, fmt.Sprintf("unknown day %q", rm.Day)
	case !startOK || !endOK:
		meeting.Ambiguous = true
		return meeting, fmt.Sprintf("unparseable %s time %q-%q", kind, rm.StartTime, rm.EndTime)
	case end <= start:
		meeting.Ambiguous = true
		return meeting, fmt.Sprintf("%s meeting ends before it starts %q-%q", kind, rm.StartTime, rm.EndTime)
	}
	return meeting, ""
}

func decodeExams(raw models.RawSection) models.ExamSlots {
	var nested models.RawSectionSchedule
	if raw.SectionSchedule != nil {
		nested = *raw.SectionSchedule
	}
	return models.ExamSlots{
		Mid: buildExamSlot(
			firstNonEmpty(nested.MidExamDate, raw.MidExamDate),
			firstNonEmpty(nested.MidExamStartTime, raw.MidExamStartTime),
			firstNonEmpty(nested.MidExamEndTime, raw.MidExamEndTime),
		),
		Final: buildExamSlot(
			firstNonEmpty(nested.FinalExamDate, raw.FinalExamDate),
			firstNonEmpty(nested.FinalExamStartTime, raw.FinalExamStartTime),
			firstNonEmpty(nested.FinalExamEndTime, raw.FinalExamEndTime),
		),
	}
}

func buildExamSlot(date, start, end string) *models.ExamSlot {
	if date == "" && start == "" && end == "" {
		return nil
	}
	normalized, _ := NormalizeDate(date)
	return &models.ExamSlot{Date: date, NormalizedDate: normalized, StartTime: start, EndTime: end}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
