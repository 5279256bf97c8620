package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexString accepts JSON strings as well as numbers, which the upstream
// catalog uses interchangeably for section names and identifiers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the plain string value.
func (f FlexString) String() string {
	return string(f)
}

// FlexInt accepts numbers and numeric strings.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = FlexInt(int(n))
	return nil
}

// RawMeeting is a class or lab meeting as published by the catalog.
type RawMeeting struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room,omitempty"`
}

// RawSectionSchedule nests class meetings and exam data.
type RawSectionSchedule struct {
	ClassSchedules     []RawMeeting `json:"classSchedules"`
	MidExamDate        string       `json:"midExamDate,omitempty"`
	MidExamStartTime   string       `json:"midExamStartTime,omitempty"`
	MidExamEndTime     string       `json:"midExamEndTime,omitempty"`
	FinalExamDate      string       `json:"finalExamDate,omitempty"`
	FinalExamStartTime string       `json:"finalExamStartTime,omitempty"`
	FinalExamEndTime   string       `json:"finalExamEndTime,omitempty"`
}

// RawLabSchedules holds lab meetings published either as a flat array or as
// an object wrapping the array under classSchedules. The layout is resolved
// once while decoding and recorded in Shape.
type RawLabSchedules struct {
	Shape    LabShape
	Meetings []RawMeeting
	Room     string

	raw json.RawMessage
}

type nestedLabSchedules struct {
	ClassSchedules []RawMeeting `json:"classSchedules"`
	Room           string       `json:"room"`
}

// UnmarshalJSON implements json.Unmarshaler. Unknown layouts are recorded as
// LabShapeUnrecognized instead of failing the surrounding record.
func (l *RawLabSchedules) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*l = RawLabSchedules{Shape: LabShapeNone}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	l.raw = append(json.RawMessage(nil), trimmed...)

	switch trimmed[0] {
	case '[':
		var meetings []RawMeeting
		if err := json.Unmarshal(trimmed, &meetings); err != nil {
			l.Shape = LabShapeUnrecognized
			return nil
		}
		if len(meetings) == 0 {
			return nil
		}
		l.Shape = LabShapeList
		l.Meetings = meetings
	case '{':
		var nested nestedLabSchedules
		if err := json.Unmarshal(trimmed, &nested); err != nil || nested.ClassSchedules == nil {
			l.Shape = LabShapeUnrecognized
			return nil
		}
		l.Shape = LabShapeNested
		l.Meetings = nested.ClassSchedules
		l.Room = strings.TrimSpace(nested.Room)
	default:
		l.Shape = LabShapeUnrecognized
	}
	return nil
}

// MarshalJSON implements json.Marshaler, preserving the original layout.
func (l RawLabSchedules) MarshalJSON() ([]byte, error) {
	if len(l.raw) > 0 {
		return l.raw, nil
	}
	switch l.Shape {
	case LabShapeList:
		return json.Marshal(l.Meetings)
	case LabShapeNested:
		return json.Marshal(nestedLabSchedules{ClassSchedules: l.Meetings, Room: l.Room})
	default:
		return []byte("null"), nil
	}
}

// RawSection mirrors one record of the upstream section catalog.
type RawSection struct {
	CourseCode      string              `json:"courseCode"`
	CourseName      string              `json:"courseName,omitempty"`
	SectionID       FlexString          `json:"sectionId"`
	SectionName     FlexString          `json:"sectionName"`
	Faculties       string              `json:"faculties"`
	Capacity        FlexInt             `json:"capacity"`
	ConsumedSeat    FlexInt             `json:"consumedSeat"`
	RoomName        string              `json:"roomName,omitempty"`
	LabRoomName     string              `json:"labRoomName,omitempty"`
	LabFaculties    string              `json:"labFaculties,omitempty"`
	SectionSchedule *RawSectionSchedule `json:"sectionSchedule,omitempty"`
	LabSchedules    RawLabSchedules     `json:"labSchedules"`

	MidExamDate        string `json:"midExamDate,omitempty"`
	MidExamStartTime   string `json:"midExamStartTime,omitempty"`
	MidExamEndTime     string `json:"midExamEndTime,omitempty"`
	FinalExamDate      string `json:"finalExamDate,omitempty"`
	FinalExamStartTime string `json:"finalExamStartTime,omitempty"`
	FinalExamEndTime   string `json:"finalExamEndTime,omitempty"`
}

// CourseSummary aggregates the sections of one course for listings.
type CourseSummary struct {
	CourseCode        string `json:"course_code"`
	CourseName        string `json:"course_name,omitempty"`
	TotalSeats        int    `json:"total_seats"`
	AvailableSeats    int    `json:"available_seats"`
	SectionCount      int    `json:"section_count"`
	HasAvailableSeats bool   `json:"has_available_seats"`
}

// CatalogSnapshot is an immutable view of the catalog taken for one request.
type CatalogSnapshot struct {
	Sections  []Section `json:"sections"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
}

// Catalog snapshot sources.
const (
	CatalogSourceCache    = "cache"
	CatalogSourceUpstream = "upstream"
	CatalogSourceMirror   = "mirror"
)

// CatalogMeta describes where a snapshot came from.
type CatalogMeta struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Meta returns the provenance of the snapshot.
func (s *CatalogSnapshot) Meta() CatalogMeta {
	if s == nil {
		return CatalogMeta{}
	}
	return CatalogMeta{Source: s.Source, FetchedAt: s.FetchedAt}
}
