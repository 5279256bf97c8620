package models

// CommutePreference biases ranking toward fewer or more campus days, or
// toward earlier or later meetings.
type CommutePreference string

const (
	CommuteNone  CommutePreference = "none"
	CommuteNear  CommutePreference = "near"
	CommuteFar   CommutePreference = "far"
	CommuteEarly CommutePreference = "early"
	CommuteLate  CommutePreference = "late"
)

// Valid reports whether the preference is a known value. Empty is treated as none.
func (p CommutePreference) Valid() bool {
	switch p {
	case "", CommuteNone, CommuteNear, CommuteFar, CommuteEarly, CommuteLate:
		return true
	}
	return false
}

// TimeWindow is a half-open minutes-since-midnight interval.
type TimeWindow struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label,omitempty"`
}

// Contains reports whether [start, end) lies within the window.
func (w TimeWindow) Contains(start, end int) bool {
	return w.Start <= start && end <= w.End
}

// CourseRequest selects one course and optionally narrows its sections.
type CourseRequest struct {
	CourseCode      string            `json:"course_code"`
	FacultyFilter   []string          `json:"faculty_filter,omitempty"`
	SectionOverride map[string]string `json:"section_override,omitempty"`
}

// RoutineQuery describes everything needed to plan one routine.
type RoutineQuery struct {
	Courses             []CourseRequest   `json:"courses"`
	SelectedDays        []Day             `json:"selected_days"`
	SelectedTimeWindows []TimeWindow      `json:"selected_time_windows"`
	CommutePreference   CommutePreference `json:"commute_preference"`
	UseRanking          bool              `json:"use_ranking"`
}

// SearchStats counts how many combinations survived each phase.
type SearchStats struct {
	Enumerated      int `json:"enumerated"`
	AfterExam       int `json:"after_exam"`
	AfterSchedule   int `json:"after_schedule"`
	AfterPreference int `json:"after_preference"`
}

// RoutineResult is a planned, conflict-free routine.
type RoutineResult struct {
	ID                string      `json:"id"`
	Sections          []Section   `json:"sections"`
	CampusDays        int         `json:"campus_days"`
	CampusDayList     []Day       `json:"campus_day_list"`
	Score             float64     `json:"score"`
	ValidCombinations int         `json:"valid_combinations"`
	Stats             SearchStats `json:"stats"`
	Feedback          string      `json:"feedback,omitempty"`
}
