package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/usis-routine-api/internal/dto"
	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/service"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
)

type routineServiceMock struct {
	planReq   dto.PlanRoutineRequest
	planErr   error
	format    string
	exportErr error
}

func (m *routineServiceMock) Plan(ctx context.Context, req dto.PlanRoutineRequest) (*models.RoutineResult, error) {
	m.planReq = req
	if m.planErr != nil {
		return nil, m.planErr
	}
	return &models.RoutineResult{ID: "routine-1", CampusDays: 2, ValidCombinations: 4}, nil
}

func (m *routineServiceMock) ExamConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error) {
	return &dto.ConflictReport{HasConflicts: true, Conflicts: []models.ConflictRecord{{Course1: "CSE110", Course2: "CSE220", Kind: models.ConflictExamMid}}}, nil
}

func (m *routineServiceMock) TimeConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error) {
	return &dto.ConflictReport{Conflicts: []models.ConflictRecord{}}, nil
}

func (m *routineServiceMock) Feedback(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.FeedbackResponse, error) {
	return &dto.FeedbackResponse{Feedback: service.FeedbackUnavailable}, nil
}

func (m *routineServiceMock) Export(ctx context.Context, req dto.RoutineSectionsRequest, format string) (*service.ExportResult, error) {
	m.format = format
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &service.ExportResult{Filename: "routine.csv", ContentType: "text/csv", Payload: []byte("Course\nCSE110\n")}, nil
}

func newRoutineRouter(svc *routineServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRoutineHandler(svc)
	r := gin.New()
	r.POST("/routine", h.Plan)
	r.POST("/routine/exam-conflicts", h.ExamConflicts)
	r.POST("/routine/time-conflicts", h.TimeConflicts)
	r.POST("/routine/feedback", h.Feedback)
	r.POST("/routine/export", h.Export)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutineHandlerPlan(t *testing.T) {
	svc := &routineServiceMock{}
	w := postJSON(t, newRoutineRouter(svc), "/routine", map[string]interface{}{
		"courses":           []map[string]interface{}{{"courseCode": "CSE110", "faculty": []string{"ABC"}}},
		"days":              []string{"SUNDAY"},
		"commutePreference": "far",
		"useRanking":        true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"routine-1"`)
	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Meta["generated_at"])
	require.Len(t, svc.planReq.Courses, 1)
	assert.Equal(t, []string{"ABC"}, svc.planReq.Courses[0].Faculty)
	assert.True(t, svc.planReq.UseRanking)
}

func TestRoutineHandlerPlanInvalidBody(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "/routine", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newRoutineRouter(&routineServiceMock{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoutineHandlerPlanConflictCarriesDetails(t *testing.T) {
	conflict := appErrors.WithDetails(appErrors.Clone(appErrors.ErrScheduleConflict, "class schedules conflict"), map[string]any{
		"phase":     "schedule",
		"conflicts": []models.ConflictRecord{{Course1: "CSE110", Course2: "CSE220", Kind: models.ConflictClassClass, Day: models.DaySunday}},
	})
	w := postJSON(t, newRoutineRouter(&routineServiceMock{planErr: conflict}), "/routine", map[string]interface{}{
		"courses": []map[string]string{{"courseCode": "CSE110"}, {"courseCode": "CSE220"}},
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Phase     string                  `json:"phase"`
				Conflicts []models.ConflictRecord `json:"conflicts"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SCHEDULE_CONFLICT", body.Error.Code)
	assert.Equal(t, "schedule", body.Error.Details.Phase)
	require.Len(t, body.Error.Details.Conflicts, 1)
	assert.Equal(t, models.ConflictClassClass, body.Error.Details.Conflicts[0].Kind)
}

func TestRoutineHandlerChecks(t *testing.T) {
	r := newRoutineRouter(&routineServiceMock{})
	payload := dto.RoutineSectionsRequest{Sections: []dto.SectionRef{{CourseCode: "CSE110", SectionName: "1"}}}

	w := postJSON(t, r, "/routine/exam-conflicts", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasConflicts":true`)

	w = postJSON(t, r, "/routine/time-conflicts", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conflicts":[]`)

	w = postJSON(t, r, "/routine/feedback", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), service.FeedbackUnavailable)
}

func TestRoutineHandlerExport(t *testing.T) {
	svc := &routineServiceMock{}
	payload := dto.RoutineSectionsRequest{Sections: []dto.SectionRef{{CourseCode: "CSE110", SectionName: "1"}}}

	w := postJSON(t, newRoutineRouter(svc), "/routine/export", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="routine.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Course\nCSE110\n", w.Body.String())

	svc.exportErr = appErrors.Clone(appErrors.ErrValidation, "unsupported export format docx")
	w = postJSON(t, newRoutineRouter(svc), "/routine/export?format=docx", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "docx", svc.format)
}
