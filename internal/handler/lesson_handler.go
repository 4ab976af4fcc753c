package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type lessonManager interface {
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Lesson, error)
	List(ctx context.Context, claims *models.JWTClaims, query dto.LessonListQuery) ([]models.Lesson, error)
	Transition(ctx context.Context, claims *models.JWTClaims, id string, req dto.TransitionLessonRequest) (*models.Lesson, error)
}

// LessonHandler exposes lesson read and status endpoints.
type LessonHandler struct {
	service lessonManager
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// List godoc
// @Summary List lessons
// @Description Lessons come back enriched with guardian and teacher display names
// @Tags Lessons
// @Produce json
// @Param teacherId query string false "Filter by teacher (admins only)"
// @Param studentId query string false "Filter by student"
// @Param from query string false "Earliest date, YYYY-MM-DD"
// @Param to query string false "Latest date, YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	var query dto.LessonListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	lessons, err := h.service.List(c.Request.Context(), middleware.SessionFrom(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil, map[string]interface{}{"count": len(lessons)})
}

// Get godoc
// @Summary Get lesson
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Transition godoc
// @Summary Change lesson status
// @Description completed, rescheduled (newDate and reason required) or cancelled (reason required)
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.TransitionLessonRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lessons/{id}/status [post]
func (h *LessonHandler) Transition(c *gin.Context) {
	var req dto.TransitionLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.service.Transition(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}
