package planner

import (
	"errors"
	"fmt"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// Reason tags why planning stopped without a routine.
type Reason string

const (
	ReasonCatalogUnavailable      Reason = "CATALOG_UNAVAILABLE"
	ReasonCourseNotFound          Reason = "COURSE_NOT_FOUND"
	ReasonNoCandidatesForFaculty  Reason = "NO_CANDIDATES_FOR_FACULTY"
	ReasonExamConflict            Reason = "EXAM_CONFLICT"
	ReasonScheduleConflict        Reason = "SCHEDULE_CONFLICT"
	ReasonPreferenceUnsatisfiable Reason = "PREFERENCE_UNSATISFIABLE"
	ReasonTooManyCombinations     Reason = "TOO_MANY_COMBINATIONS"
	ReasonInvalidQuery            Reason = "INVALID_QUERY"
)

// Phase names the search stage that eliminated every combination.
type Phase string

const (
	PhaseCandidates Phase = "candidates"
	PhaseExam       Phase = "exam"
	PhaseSchedule   Phase = "schedule"
	PhasePreference Phase = "preference"
)

// PlanError is the typed failure returned by the planner.
type PlanError struct {
	Reason    Reason
	Phase     Phase
	Course    string
	Faculty   string
	Message   string
	Conflicts []models.ConflictRecord
}

// Error implements the error interface.
func (e *PlanError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("routine planning failed: %s", e.Reason)
}

// ReasonOf extracts the planning reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var planErr *PlanError
	if errors.As(err, &planErr) {
		return planErr.Reason, true
	}
	return "", false
}

func courseNotFound(course, message string) *PlanError {
	return &PlanError{Reason: ReasonCourseNotFound, Phase: PhaseCandidates, Course: course, Message: message}
}

func noCandidatesForFaculty(course, faculty string) *PlanError {
	return &PlanError{
		Reason:  ReasonNoCandidatesForFaculty,
		Phase:   PhaseCandidates,
		Course:  course,
		Faculty: faculty,
		Message: fmt.Sprintf("no sections of %s match faculty %s", course, faculty),
	}
}
