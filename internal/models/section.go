package models

import "strings"

// Day enumerates the weekdays a meeting can fall on.
type Day string

const (
	DaySunday    Day = "SUNDAY"
	DayMonday    Day = "MONDAY"
	DayTuesday   Day = "TUESDAY"
	DayWednesday Day = "WEDNESDAY"
	DayThursday  Day = "THURSDAY"
	DayFriday    Day = "FRIDAY"
	DaySaturday  Day = "SATURDAY"
	DayUnknown   Day = ""
)

// Week lists the weekdays in calendar order.
var Week = []Day{DaySunday, DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

var dayAliases = map[string]Day{
	"SUN": DaySunday,
	"MON": DayMonday,
	"TUE": DayTuesday,
	"WED": DayWednesday,
	"THU": DayThursday,
	"FRI": DayFriday,
	"SAT": DaySaturday,
}

// ParseDay resolves a weekday name case-insensitively.
func ParseDay(raw string) (Day, bool) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return DayUnknown, false
	}
	for _, day := range Week {
		if string(day) == name {
			return day, true
		}
	}
	if day, ok := dayAliases[name]; ok {
		return day, true
	}
	return DayUnknown, false
}

// Index returns the position of the day within the week or -1 when unknown.
func (d Day) Index() int {
	for i, day := range Week {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether the day is one of the seven weekdays.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// MeetingKind distinguishes lecture meetings from lab meetings.
type MeetingKind string

const (
	MeetingClass MeetingKind = "class"
	MeetingLab   MeetingKind = "lab"
)

// Meeting is a weekly recurring block of a section.
type Meeting struct {
	Day          Day         `json:"day"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
	StartMinutes int         `json:"start_minutes"`
	EndMinutes   int         `json:"end_minutes"`
	Room         string      `json:"room"`
	Kind         MeetingKind `json:"kind"`
	// Ambiguous marks meetings whose day or times could not be resolved.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Duration returns the meeting length in minutes.
func (m Meeting) Duration() int {
	return m.EndMinutes - m.StartMinutes
}

// ExamSlot captures a midterm or final exam sitting.
type ExamSlot struct {
	Date           string `json:"date"`
	NormalizedDate string `json:"normalized_date,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// ExamSlots groups the optional exam sittings of a section.
type ExamSlots struct {
	Mid   *ExamSlot `json:"mid,omitempty"`
	Final *ExamSlot `json:"final,omitempty"`
}

// LabShape records which lab-schedule layout a catalog record used.
type LabShape string

const (
	LabShapeNone         LabShape = "none"
	LabShapeList         LabShape = "list"
	LabShapeNested       LabShape = "nested"
	LabShapeUnrecognized LabShape = "unrecognized"
)

// SectionKey identifies a section across catalog records.
type SectionKey struct {
	CourseCode  string
	SectionName string
}

// Section is one offering of a course resolved from the catalog.
type Section struct {
	CourseCode    string    `json:"course_code"`
	CourseName    string    `json:"course_name"`
	SectionID     string    `json:"section_id"`
	SectionName   string    `json:"section_name"`
	Faculty       string    `json:"faculty"`
	Capacity      int       `json:"capacity"`
	ConsumedSeats int       `json:"consumed_seats"`
	ClassRoom     string    `json:"class_room,omitempty"`
	ClassMeetings []Meeting `json:"class_meetings"`
	LabMeetings   []Meeting `json:"lab_meetings"`
	LabShape      LabShape  `json:"lab_shape"`
	LabFaculty    string    `json:"lab_faculty,omitempty"`
	LabRoom       string    `json:"lab_room,omitempty"`
	Exams         ExamSlots `json:"exams"`
}

// AvailableSeats returns the remaining capacity of the section.
func (s Section) AvailableSeats() int {
	return s.Capacity - s.ConsumedSeats
}

// Key returns the identity of the section.
func (s Section) Key() SectionKey {
	return SectionKey{CourseCode: s.CourseCode, SectionName: s.SectionName}
}

// Label renders the section as COURSE-SECTION.
func (s Section) Label() string {
	if s.SectionName == "" {
		return s.CourseCode
	}
	return s.CourseCode + "-" + s.SectionName
}
