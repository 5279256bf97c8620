package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/dto"
	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

type catalogProvider interface {
	Snapshot(ctx context.Context) (*models.CatalogSnapshot, error)
}

type routinePlanner interface {
	Plan(query models.RoutineQuery, catalog []models.Section) (*models.RoutineResult, error)
}

type feedbackGenerator interface {
	Generate(ctx context.Context, sections []models.Section, pref models.CommutePreference) (string, error)
}

type routineRenderer interface {
	Render(ctx context.Context, sections []models.Section, format string) (*ExportResult, error)
}

// RoutineService plans routines and inspects routines chosen by clients.
type RoutineService struct {
	catalog   catalogProvider
	planner   routinePlanner
	feedback  feedbackGenerator
	exporter  routineRenderer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRoutineService constructs a routine service. feedback and exporter may be nil.
func NewRoutineService(catalog catalogProvider, planner routinePlanner, feedback feedbackGenerator, exporter routineRenderer, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RoutineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutineService{
		catalog:   catalog,
		planner:   planner,
		feedback:  feedback,
		exporter:  exporter,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Plan validates the request and plans one routine against a fresh snapshot.
func (s *RoutineService) Plan(ctx context.Context, req dto.PlanRoutineRequest) (*models.RoutineResult, error) {
	query, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		outcome := "error"
		if IsCatalogUnavailable(err) {
			outcome = string(planner.ReasonCatalogUnavailable)
		}
		s.metrics.RecordRoutineOutcome(outcome)
		return nil, err
	}

	result, err := s.planner.Plan(query, snap.Sections)
	if err != nil {
		reason, _ := planner.ReasonOf(err)
		s.metrics.RecordRoutineOutcome(string(reason))
		return nil, mapPlanError(err)
	}
	s.metrics.RecordRoutineOutcome("ok")

	if req.IncludeFeedback {
		result.Feedback = s.generateFeedback(ctx, result.Sections, query.CommutePreference)
	}
	return result, nil
}

// ExamConflicts reports exam clashes inside a client supplied routine.
func (s *RoutineService) ExamConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error) {
	sections, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	records := planner.ExamConflictsAmong(sections)
	return &dto.ConflictReport{
		HasConflicts: len(records) > 0,
		Conflicts:    nonNilConflicts(records),
		Message:      planner.FormatExamConflicts(records),
	}, nil
}

// TimeConflicts reports class and lab clashes inside a client supplied routine.
func (s *RoutineService) TimeConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error) {
	sections, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	records := planner.ScheduleConflicts(sections)
	report := &dto.ConflictReport{HasConflicts: len(records) > 0, Conflicts: nonNilConflicts(records)}
	if report.HasConflicts {
		report.Message = fmt.Sprintf("%d time conflict(s) found", len(records))
	}
	return report, nil
}

// Feedback generates advice for a client supplied routine. It never fails
// because the feedback service is down.
func (s *RoutineService) Feedback(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.FeedbackResponse, error) {
	sections, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	pref := models.CommutePreference(strings.ToLower(req.CommutePreference))
	return &dto.FeedbackResponse{Feedback: s.generateFeedback(ctx, sections, pref)}, nil
}

// Export renders a client supplied routine.
func (s *RoutineService) Export(ctx context.Context, req dto.RoutineSectionsRequest, format string) (*ExportResult, error) {
	if s.exporter == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "routine export is not configured")
	}
	sections, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.exporter.Render(ctx, sections, format)
}

func (s *RoutineService) resolve(ctx context.Context, req dto.RoutineSectionsRequest) ([]models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine payload")
	}
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]models.SectionKey, 0, len(req.Sections))
	for _, ref := range req.Sections {
		keys = append(keys, models.SectionKey{CourseCode: ref.CourseCode, SectionName: ref.SectionName})
	}
	return FindSections(snap.Sections, keys)
}

func (s *RoutineService) generateFeedback(ctx context.Context, sections []models.Section, pref models.CommutePreference) string {
	if s.feedback == nil {
		return FeedbackUnavailable
	}
	text, err := s.feedback.Generate(ctx, sections, pref)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("routine feedback unavailable", zap.Error(err))
		return FeedbackUnavailable
	}
	return text
}

func (s *RoutineService) buildQuery(req dto.PlanRoutineRequest) (models.RoutineQuery, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.RoutineQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine request")
	}

	query := models.RoutineQuery{
		CommutePreference: models.CommutePreference(strings.ToLower(req.CommutePreference)),
		UseRanking:        req.UseRanking,
	}
	for _, course := range req.Courses {
		query.Courses = append(query.Courses, models.CourseRequest{
			CourseCode:      course.CourseCode,
			FacultyFilter:   course.Faculty,
			SectionOverride: course.SectionOverride,
		})
	}
	for _, raw := range req.Days {
		day, ok := models.ParseDay(raw)
		if !ok {
			return models.RoutineQuery{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", raw))
		}
		query.SelectedDays = append(query.SelectedDays, day)
	}
	for _, raw := range req.Times {
		window, err := planner.ParseTimeWindow(raw)
		if err != nil {
			return models.RoutineQuery{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		query.SelectedTimeWindows = append(query.SelectedTimeWindows, window)
	}
	return query, nil
}

var planErrorMapping = map[planner.Reason]*appErrors.Error{
	planner.ReasonCatalogUnavailable:      appErrors.ErrCatalogUnavailable,
	planner.ReasonCourseNotFound:          appErrors.ErrCourseNotFound,
	planner.ReasonNoCandidatesForFaculty:  appErrors.ErrNoCandidatesForFaculty,
	planner.ReasonExamConflict:            appErrors.ErrExamConflict,
	planner.ReasonScheduleConflict:        appErrors.ErrScheduleConflict,
	planner.ReasonPreferenceUnsatisfiable: appErrors.ErrPreferenceUnsatisfiable,
	planner.ReasonTooManyCombinations:     appErrors.ErrTooManyCombinations,
	planner.ReasonInvalidQuery:            appErrors.ErrValidation,
}

// mapPlanError converts planner failures into API errors carrying the
// failing phase and any conflict records as details.
func mapPlanError(err error) error {
	planErr, ok := err.(*planner.PlanError)
	if !ok {
		return appErrors.FromError(err)
	}
	base, ok := planErrorMapping[planErr.Reason]
	if !ok {
		base = appErrors.ErrInternal
	}
	details := map[string]any{"phase": planErr.Phase}
	if planErr.Course != "" {
		details["course"] = planErr.Course
	}
	if planErr.Faculty != "" {
		details["faculty"] = planErr.Faculty
	}
	if len(planErr.Conflicts) > 0 {
		details["conflicts"] = planErr.Conflicts
	}
	mapped := appErrors.WithDetails(appErrors.Clone(base, planErr.Message), details)
	mapped.Err = planErr
	return mapped
}

func nonNilConflicts(records []models.ConflictRecord) []models.ConflictRecord {
	if records == nil {
		return []models.ConflictRecord{}
	}
	return records
}
