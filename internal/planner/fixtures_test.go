package planner

import (
	"github.com/noah-isme/usis-routine-api/internal/models"
)

func testMeeting(kind models.MeetingKind, day models.Day, start, end string) models.Meeting {
	s, okStart := ParseMinutes(start)
	e, okEnd := ParseMinutes(end)
	return models.Meeting{
		Day:          day,
		StartTime:    start,
		EndTime:      end,
		StartMinutes: s,
		EndMinutes:   e,
		Room:         "TBA",
		Kind:         kind,
		Ambiguous:    !okStart || !okEnd || e <= s || !day.Valid(),
	}
}

func classAt(day models.Day, start, end string) models.Meeting {
	return testMeeting(models.MeetingClass, day, start, end)
}

func labAt(day models.Day, start, end string) models.Meeting {
	return testMeeting(models.MeetingLab, day, start, end)
}

func testSection(code, name, faculty string, meetings ...models.Meeting) models.Section {
	s := models.Section{
		CourseCode:  code,
		SectionName: name,
		SectionID:   code + "-" + name,
		Faculty:     faculty,
		Capacity:    30,
		LabShape:    models.LabShapeNone,
	}
	for _, m := range meetings {
		if m.Kind == models.MeetingLab {
			s.LabMeetings = append(s.LabMeetings, m)
			s.LabShape = models.LabShapeList
			continue
		}
		s.ClassMeetings = append(s.ClassMeetings, m)
	}
	return s
}

func withMid(s models.Section, date, start, end string) models.Section {
	s.Exams.Mid = &models.ExamSlot{Date: date, StartTime: start, EndTime: end}
	return s
}

func withFinal(s models.Section, date, start, end string) models.Section {
	s.Exams.Final = &models.ExamSlot{Date: date, StartTime: start, EndTime: end}
	return s
}

func full(s models.Section) models.Section {
	s.ConsumedSeats = s.Capacity
	return s
}

func courses(codes ...string) []models.CourseRequest {
	out := make([]models.CourseRequest, 0, len(codes))
	for _, c := range codes {
		out = append(out, models.CourseRequest{CourseCode: c})
	}
	return out
}

func window(start, end string) models.TimeWindow {
	return models.TimeWindow{Start: ParseToMinutes(start), End: ParseToMinutes(end), Label: start + "-" + end}
}

func everyDay() []models.Day {
	return append([]models.Day(nil), models.Week...)
}
