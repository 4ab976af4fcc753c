package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type lessonScheduler interface {
	ScheduleFirstLesson(ctx context.Context, claims *models.JWTClaims, req dto.ScheduleLessonsRequest) (*models.ScheduleResult, error)
	ListRuns(ctx context.Context, query dto.SchedulingRunQuery) ([]models.SchedulingRun, *models.Pagination, error)
}

// SchedulingHandler exposes recurring scheduling endpoints.
type SchedulingHandler struct {
	service lessonScheduler
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc *service.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{service: svc}
}

// Schedule godoc
// @Summary Schedule a first lesson and its weekly follow-ups
// @Description Creates every lesson until term end; a failed notification rolls the lessons back
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleLessonsRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /lessons/schedule [post]
func (h *SchedulingHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.ScheduleFirstLesson(c.Request.Context(), middleware.SessionFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListRuns godoc
// @Summary List scheduling runs
// @Tags Scheduling
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param studentId query string false "Filter by student"
// @Param status query string false "SUCCEEDED, FAILED, ROLLED_BACK or ROLLBACK_INCOMPLETE"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scheduling/runs [get]
func (h *SchedulingHandler) ListRuns(c *gin.Context) {
	query := dto.SchedulingRunQuery{
		TeacherID: c.Query("teacherId"),
		StudentID: c.Query("studentId"),
		Status:    c.Query("status"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.Limit = size
	}

	runs, pagination, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}
