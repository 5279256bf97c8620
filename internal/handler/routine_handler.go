package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usis-routine-api/internal/dto"
	"github.com/noah-isme/usis-routine-api/internal/middleware"
	"github.com/noah-isme/usis-routine-api/internal/models"
	"github.com/noah-isme/usis-routine-api/internal/service"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
	"github.com/noah-isme/usis-routine-api/pkg/response"
)

type routineService interface {
	Plan(ctx context.Context, req dto.PlanRoutineRequest) (*models.RoutineResult, error)
	ExamConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error)
	TimeConflicts(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.ConflictReport, error)
	Feedback(ctx context.Context, req dto.RoutineSectionsRequest) (*dto.FeedbackResponse, error)
	Export(ctx context.Context, req dto.RoutineSectionsRequest, format string) (*service.ExportResult, error)
}

// RoutineHandler exposes routine planning endpoints.
type RoutineHandler struct {
	service routineService
	now     func() time.Time
}

// NewRoutineHandler builds a new handler.
func NewRoutineHandler(service routineService) *RoutineHandler {
	return &RoutineHandler{service: service, now: time.Now}
}

// Plan godoc
// @Summary Plan a conflict-free routine
// @Tags Routine
// @Accept json
// @Produce json
// @Param payload body dto.PlanRoutineRequest true "Routine request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /routine [post]
func (h *RoutineHandler) Plan(c *gin.Context) {
	var req dto.PlanRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	result, err := h.service.Plan(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetGeneratedAt(c, h.now())
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ExamConflicts godoc
// @Summary Exam conflicts of a routine
// @Tags Routine
// @Accept json
// @Produce json
// @Param payload body dto.RoutineSectionsRequest true "Chosen sections"
// @Success 200 {object} response.Envelope
// @Router /routine/exam-conflicts [post]
func (h *RoutineHandler) ExamConflicts(c *gin.Context) {
	h.withSections(c, func(ctx context.Context, req dto.RoutineSectionsRequest) (interface{}, error) {
		return h.service.ExamConflicts(ctx, req)
	})
}

// TimeConflicts godoc
// @Summary Class and lab conflicts of a routine
// @Tags Routine
// @Accept json
// @Produce json
// @Param payload body dto.RoutineSectionsRequest true "Chosen sections"
// @Success 200 {object} response.Envelope
// @Router /routine/time-conflicts [post]
func (h *RoutineHandler) TimeConflicts(c *gin.Context) {
	h.withSections(c, func(ctx context.Context, req dto.RoutineSectionsRequest) (interface{}, error) {
		return h.service.TimeConflicts(ctx, req)
	})
}

// Feedback godoc
// @Summary Feedback on a routine
// @Tags Routine
// @Accept json
// @Produce json
// @Param payload body dto.RoutineSectionsRequest true "Chosen sections"
// @Success 200 {object} response.Envelope
// @Router /routine/feedback [post]
func (h *RoutineHandler) Feedback(c *gin.Context) {
	h.withSections(c, func(ctx context.Context, req dto.RoutineSectionsRequest) (interface{}, error) {
		return h.service.Feedback(ctx, req)
	})
}

// Export godoc
// @Summary Export a routine
// @Tags Routine
// @Accept json
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param payload body dto.RoutineSectionsRequest true "Chosen sections"
// @Success 200 {file} file
// @Router /routine/export [post]
func (h *RoutineHandler) Export(c *gin.Context) {
	var req dto.RoutineSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), req, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}

func (h *RoutineHandler) withSections(c *gin.Context, fn func(context.Context, dto.RoutineSectionsRequest) (interface{}, error)) {
	var req dto.RoutineSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	data, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}
