package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/usis-routine-api/internal/dto"
	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/planner"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

type snapshotStub struct {
	snap *models.CatalogSnapshot
	err  error
}

func (s *snapshotStub) Snapshot(ctx context.Context) (*models.CatalogSnapshot, error) {
	return s.snap, s.err
}

type feedbackStub struct {
	text  string
	err   error
	calls int
}

func (f *feedbackStub) Generate(ctx context.Context, sections []models.Section, pref models.CommutePreference) (string, error) {
	f.calls++
	return f.text, f.err
}

func routineSnapshot() *models.CatalogSnapshot {
	raws := append(sampleCatalog(), rawSection("PHY111", "1", "MNO", 30, 0, rawClass("SUNDAY", "8:30 AM", "9:50 AM")))
	return &models.CatalogSnapshot{
		Sections:  planner.New(planner.Options{}).DecodeCatalog(raws),
		FetchedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Source:    CatalogSourceCache,
	}
}

func newRoutineServiceForTest(feedback feedbackGenerator) (*RoutineService, *MetricsService) {
	metrics := NewMetricsService()
	svc := NewRoutineService(
		&snapshotStub{snap: routineSnapshot()},
		planner.New(planner.Options{Observer: metrics}),
		feedback,
		NewExportService(ExportConfig{}, zap.NewNop(), nil, nil),
		nil,
		metrics,
		zap.NewNop(),
	)
	return svc, metrics
}

func planRequest(codes ...string) dto.PlanRoutineRequest {
	req := dto.PlanRoutineRequest{Days: []string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}}
	for _, code := range codes {
		req.Courses = append(req.Courses, dto.CourseSelection{CourseCode: code})
	}
	return req
}

func sectionsRequest(pairs ...string) dto.RoutineSectionsRequest {
	req := dto.RoutineSectionsRequest{}
	for i := 0; i+1 < len(pairs); i += 2 {
		req.Sections = append(req.Sections, dto.SectionRef{CourseCode: pairs[i], SectionName: pairs[i+1]})
	}
	return req
}

func TestRoutineServicePlan(t *testing.T) {
	feedback := &feedbackStub{text: "8/10, compact week"}
	svc, metrics := newRoutineServiceForTest(feedback)

	req := planRequest("CSE110", "CSE220")
	req.IncludeFeedback = true
	result, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Sections, 2)
	assert.Equal(t, "CSE110-1", result.Sections[0].Label())
	assert.Equal(t, "CSE220-2", result.Sections[1].Label())
	assert.Equal(t, 1, result.ValidCombinations)
	assert.Equal(t, models.SearchStats{Enumerated: 2, AfterExam: 1, AfterSchedule: 1, AfterPreference: 1}, result.Stats)
	assert.Equal(t, "8/10, compact week", result.Feedback)
	assert.Equal(t, uint64(1), metrics.Snapshot().RoutinesPlanned)
}

func TestRoutineServicePlanSkipsFeedbackUnlessAsked(t *testing.T) {
	feedback := &feedbackStub{text: "unused"}
	svc, _ := newRoutineServiceForTest(feedback)

	result, err := svc.Plan(context.Background(), planRequest("CSE110"))
	require.NoError(t, err)
	assert.Empty(t, result.Feedback)
	assert.Equal(t, 0, feedback.calls)
}

func TestRoutineServicePlanFeedbackFallback(t *testing.T) {
	svc, _ := newRoutineServiceForTest(&feedbackStub{err: errors.New("quota exceeded")})

	req := planRequest("CSE110")
	req.IncludeFeedback = true
	result, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, FeedbackUnavailable, result.Feedback)
}

func TestRoutineServicePlanExamConflict(t *testing.T) {
	svc, metrics := newRoutineServiceForTest(nil)

	req := planRequest("CSE110", "CSE220")
	req.Courses[1].SectionOverride = map[string]string{"GHI": "1"}
	_, err := svc.Plan(context.Background(), req)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrExamConflict.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Contains(t, appErr.Message, "CSE110 ↔ CSE220")
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, planner.PhaseExam, details["phase"])
	assert.NotEmpty(t, details["conflicts"])
	assert.Equal(t, uint64(1), metrics.Snapshot().RoutinesFailed)

	reason, ok := planner.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, planner.ReasonExamConflict, reason)
}

func TestRoutineServicePlanValidation(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	_, err := svc.Plan(context.Background(), dto.PlanRoutineRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err))

	req := planRequest("CSE110")
	req.Days = nil
	_, err = svc.Plan(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err), "days are required")

	req = planRequest("CSE110")
	req.Days = []string{"FUNDAY"}
	_, err = svc.Plan(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err))

	req = planRequest("CSE110")
	req.Times = []string{"9:20 AM-8:00 AM"}
	_, err = svc.Plan(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err))

	req = planRequest("CSE110")
	req.CommutePreference = "teleport"
	_, err = svc.Plan(context.Background(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err))
}

func TestRoutineServicePlanPreferences(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	req := planRequest("CSE110", "CSE220")
	req.Days = []string{"sunday", "TUE"}
	req.Times = []string{"8:00 AM-9:20 AM"}
	result, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []models.Day{models.DaySunday, models.DayTuesday}, result.CampusDayList)

	req.Days = []string{"MONDAY"}
	_, err = svc.Plan(context.Background(), req)
	assert.Equal(t, appErrors.ErrPreferenceUnsatisfiable.Code, appErrorCode(err))
}

func TestRoutineServicePlanUnknownCourse(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	_, err := svc.Plan(context.Background(), planRequest("BIO101"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCourseNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestRoutineServicePlanCatalogUnavailable(t *testing.T) {
	svc := NewRoutineService(
		&snapshotStub{err: appErrors.Clone(appErrors.ErrCatalogUnavailable, "upstream down")},
		planner.New(planner.Options{}), nil, nil, nil, nil, zap.NewNop(),
	)
	_, err := svc.Plan(context.Background(), planRequest("CSE110"))
	assert.True(t, appErrors.Retryable(err))
}

func TestRoutineServiceExamConflicts(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	report, err := svc.ExamConflicts(context.Background(), sectionsRequest("CSE110", "1", "CSE220", "1"))
	require.NoError(t, err)
	assert.True(t, report.HasConflicts)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictExamMid, report.Conflicts[0].Kind)
	assert.Contains(t, report.Message, "Midterm Conflicts")

	report, err = svc.ExamConflicts(context.Background(), sectionsRequest("CSE110", "1", "CSE220", "2"))
	require.NoError(t, err)
	assert.False(t, report.HasConflicts)
	assert.NotNil(t, report.Conflicts)
}

func TestRoutineServiceTimeConflicts(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	report, err := svc.TimeConflicts(context.Background(), sectionsRequest("cse110", "1", "PHY111", "1"))
	require.NoError(t, err)
	assert.True(t, report.HasConflicts)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictClassClass, report.Conflicts[0].Kind)
	assert.Equal(t, models.DaySunday, report.Conflicts[0].Day)

	_, err = svc.TimeConflicts(context.Background(), sectionsRequest("CSE110", "7"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrorCode(err))
}

func TestRoutineServiceFeedback(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	resp, err := svc.Feedback(context.Background(), sectionsRequest("CSE110", "1"))
	require.NoError(t, err)
	assert.Equal(t, FeedbackUnavailable, resp.Feedback)
}

func TestRoutineServiceExport(t *testing.T) {
	svc, _ := newRoutineServiceForTest(nil)

	result, err := svc.Export(context.Background(), sectionsRequest("CSE110", "1", "CSE220", "2"), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, string(result.Payload), "CSE110")
	assert.Contains(t, string(result.Payload), "CSE220-2 (Class)")

	_, err = svc.Export(context.Background(), sectionsRequest("CSE110", "1"), "docx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrorCode(err))
}
