package dto

import "github.com/noah-isme/usis-routine-api/internal/models"

// CourseSelection picks one course and optionally narrows its sections.
type CourseSelection struct {
	CourseCode string   `json:"courseCode" validate:"required"`
	Faculty    []string `json:"faculty" validate:"omitempty,dive,required"`
	// SectionOverride maps faculty initials to a section name. An empty
	// section name keeps every section of that faculty with free seats.
	SectionOverride map[string]string `json:"sectionOverride"`
}

// PlanRoutineRequest asks for one conflict-free routine.
type PlanRoutineRequest struct {
	Courses           []CourseSelection `json:"courses" validate:"required,min=1,dive"`
	Days              []string          `json:"days" validate:"required,min=1,dive,required"`
	Times             []string          `json:"times" validate:"omitempty,dive,required"`
	CommutePreference string            `json:"commutePreference" validate:"omitempty,oneof=none near far early late"`
	UseRanking        bool              `json:"useRanking"`
	IncludeFeedback   bool              `json:"includeFeedback"`
}

// SectionRef identifies a section already chosen by the client.
type SectionRef struct {
	CourseCode  string `json:"courseCode" validate:"required"`
	SectionName string `json:"sectionName" validate:"required"`
}

// RoutineSectionsRequest carries an existing routine for checks, feedback and export.
type RoutineSectionsRequest struct {
	Sections          []SectionRef `json:"sections" validate:"required,min=1,dive"`
	CommutePreference string       `json:"commutePreference" validate:"omitempty,oneof=none near far early late"`
}

// ConflictReport lists conflicts found in a routine.
type ConflictReport struct {
	HasConflicts bool                    `json:"hasConflicts"`
	Conflicts    []models.ConflictRecord `json:"conflicts"`
	Message      string                  `json:"message,omitempty"`
}

// FeedbackResponse carries generated advice for a routine.
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}

// CatalogRefreshResponse acknowledges a queued catalog refresh.
type CatalogRefreshResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}
