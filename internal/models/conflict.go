package models

// ConflictKind classifies a conflict between two sections.
type ConflictKind string

const (
	ConflictExamMid    ConflictKind = "exam-mid"
	ConflictExamFinal  ConflictKind = "exam-final"
	ConflictClassClass ConflictKind = "class-class"
	ConflictLabLab     ConflictKind = "lab-lab"
	ConflictLabClass   ConflictKind = "lab-class"
	ConflictClassLab   ConflictKind = "class-lab"
)

// ConflictRecord describes one colliding pair of exams or meetings.
type ConflictRecord struct {
	Course1  string       `json:"course1"`
	Section1 string       `json:"section1,omitempty"`
	Course2  string       `json:"course2"`
	Section2 string       `json:"section2,omitempty"`
	Kind     ConflictKind `json:"kind"`
	Day      Day          `json:"day,omitempty"`
	Date     string       `json:"date,omitempty"`
	Time1    string       `json:"time1"`
	Time2    string       `json:"time2"`
}

// IsExam reports whether the record describes an exam collision.
func (r ConflictRecord) IsExam() bool {
	return r.Kind == ConflictExamMid || r.Kind == ConflictExamFinal
}
