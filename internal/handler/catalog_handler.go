package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/usis-routine-api/internal/dto"
	"github.com/noah-isme/usis-routine-api/internal/middleware"
	"github.com/noah-isme/usis-routine-api/internal/models"
	appErrors "github.com/noah-isme/usis-routine-api/pkg/errors"
	"github.com/noah-isme/usis-routine-api/pkg/response"
)

type catalogService interface {
	Courses(ctx context.Context, showAll bool) ([]models.CourseSummary, models.CatalogMeta, error)
	Sections(ctx context.Context, courseCode string, showAll bool) ([]models.Section, models.CatalogMeta, error)
	Faculty(ctx context.Context, courseCodes []string) ([]string, models.CatalogMeta, error)
	ExamSchedule(ctx context.Context, courseCode, sectionName string) (*models.ExamSlots, models.CatalogMeta, error)
}

type refreshScheduler interface {
	Enqueue(trigger string) (string, error)
}

// CatalogHandler exposes read-only catalog endpoints.
type CatalogHandler struct {
	service   catalogService
	refresher refreshScheduler
}

// NewCatalogHandler builds a new handler. refresher may be nil.
func NewCatalogHandler(service catalogService, refresher refreshScheduler) *CatalogHandler {
	return &CatalogHandler{service: service, refresher: refresher}
}

// Courses godoc
// @Summary List courses
// @Description Courses with their total and available seats.
// @Tags Catalog
// @Produce json
// @Param show_all query bool false "Include courses without free seats"
// @Param page query int false "Page number"
// @Param limit query int false "Page size, all courses when omitted"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	courses, meta, err := h.service.Courses(c.Request.Context(), queryBool(c, "show_all"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCatalogMeta(c, meta)

	var pagination *models.Pagination
	if size, err := strconv.Atoi(c.Query("limit")); err == nil && size > 0 {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		pagination = &models.Pagination{Page: page, PageSize: size, TotalCount: len(courses)}
		courses = paginate(courses, page, size)
	}
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// Sections godoc
// @Summary List sections of a course
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Param show_all query bool false "Include sections without free seats"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code}/sections [get]
func (h *CatalogHandler) Sections(c *gin.Context) {
	sections, meta, err := h.service.Sections(c.Request.Context(), c.Param("code"), queryBool(c, "show_all"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCatalogMeta(c, meta)
	response.JSON(c, http.StatusOK, sections, nil, middleware.ExtractMeta(c))
}

// Faculty godoc
// @Summary List faculty
// @Tags Catalog
// @Produce json
// @Param courses query string false "Comma separated course codes"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *CatalogHandler) Faculty(c *gin.Context) {
	var codes []string
	for _, raw := range c.QueryArray("courses") {
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	faculty, meta, err := h.service.Faculty(c.Request.Context(), codes)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCatalogMeta(c, meta)
	response.JSON(c, http.StatusOK, faculty, nil, middleware.ExtractMeta(c))
}

// ExamSchedule godoc
// @Summary Exam schedule of a section
// @Tags Catalog
// @Produce json
// @Param courseCode query string true "Course code"
// @Param sectionName query string true "Section name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-schedule [get]
func (h *CatalogHandler) ExamSchedule(c *gin.Context) {
	courseCode := strings.TrimSpace(c.Query("courseCode"))
	sectionName := strings.TrimSpace(c.Query("sectionName"))
	if courseCode == "" || sectionName == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseCode and sectionName are required"))
		return
	}
	exams, meta, err := h.service.ExamSchedule(c.Request.Context(), courseCode, sectionName)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCatalogMeta(c, meta)
	response.JSON(c, http.StatusOK, exams, nil, middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Queue a catalog refresh
// @Tags Catalog
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /catalog/refresh [post]
func (h *CatalogHandler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "catalog refresh is not configured"))
		return
	}
	jobID, err := h.refresher.Enqueue("api")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to queue catalog refresh"))
		return
	}
	response.Accepted(c, dto.CatalogRefreshResponse{JobID: jobID, Status: "queued"})
}

func paginate(courses []models.CourseSummary, page, size int) []models.CourseSummary {
	start := (page - 1) * size
	if start >= len(courses) {
		return []models.CourseSummary{}
	}
	end := start + size
	if end > len(courses) {
		end = len(courses)
	}
	return courses[start:end]
}

func queryBool(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(c.Query(key))
	return err == nil && value
}
