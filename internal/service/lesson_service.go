package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	applog "github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

const eventLessonCompleted = "lesson.completed"

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error)
	SaveChange(ctx context.Context, id string, change models.LessonChange) error
}

type lessonEnricher interface {
	Enrich(ctx context.Context, lessons []models.Lesson, fallback TeacherFallback) ([]models.Lesson, error)
	Today() string
}

// LessonService exposes lesson reads and status transitions.
type LessonService struct {
	repo      lessonRepository
	enricher  lessonEnricher
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	reportURL string
}

// NewLessonService constructs a LessonService. An empty reportURL disables completed-lesson reports.
func NewLessonService(repo lessonRepository, enricher lessonEnricher, notifier notifier, reportURL string, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportURL == "" {
		logger.Warn("LESSON_REPORT_WEBHOOK_URL not set; completed lessons will not be reported")
	}
	return &LessonService{
		repo:      repo,
		enricher:  enricher,
		notifier:  notifier,
		validator: ensureValidator(validate),
		logger:    logger,
		reportURL: reportURL,
	}
}

// Get returns a lesson the caller may see.
func (s *LessonService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Lesson, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	lesson, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.CanActFor(lesson.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}
	NormalizeArrangement(lesson)
	return lesson, nil
}

// List returns enriched lessons; teachers are limited to their own.
func (s *LessonService) List(ctx context.Context, claims *models.JWTClaims, query dto.LessonListQuery) ([]models.Lesson, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson filter")
	}
	filter := models.LessonFilter{
		TeacherID: query.TeacherID,
		StudentID: query.StudentID,
		From:      query.From,
		To:        query.To,
	}
	if !claims.IsAdmin() {
		if filter.TeacherID != "" && !claims.CanActFor(filter.TeacherID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot list another teacher's lessons")
		}
		filter.TeacherID = claims.TeacherID
	}

	lessons, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to list lessons")
	}
	lessons, err = s.enricher.Enrich(ctx, lessons, callerFallback(claims))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enrich lessons")
	}
	return lessons, nil
}

// Transition applies a status change. The returned lesson reflects the store only after it acknowledged the write.
func (s *LessonService) Transition(ctx context.Context, claims *models.JWTClaims, id string, req dto.TransitionLessonRequest) (*models.Lesson, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if err := ValidateTransition(req); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.CanActFor(current.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}

	change, err := PlanTransition(*current, req, s.enricher.Today())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveChange(ctx, id, change); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to update lesson")
	}

	updated := change.Apply(*current)
	log := applog.ForRequest(ctx, s.logger)
	log.Info("lesson transitioned",
		zap.String("lesson_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("user_id", claims.UserID),
	)

	if _, ok := change.State.(models.CompletedState); ok {
		s.reportCompleted(ctx, log, claims, &updated)
	}
	return &updated, nil
}

// reportCompleted enriches and posts the lesson report. Failures are logged; the transition already succeeded.
func (s *LessonService) reportCompleted(ctx context.Context, log *zap.Logger, claims *models.JWTClaims, lesson *models.Lesson) {
	if s.reportURL == "" {
		log.Warn("lesson report skipped: no webhook configured", zap.String("lesson_id", lesson.ID))
		return
	}
	enriched, err := s.enricher.Enrich(ctx, []models.Lesson{*lesson}, callerFallback(claims))
	if err != nil {
		log.Warn("lesson report enrichment failed", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return
	}
	*lesson = enriched[0]

	report := dto.LessonReport{Event: eventLessonCompleted, ReportedBy: claims.UserID, Lessons: enriched}
	if err := s.notifier.Dispatch(ctx, NotificationLessonReport, s.reportURL, report); err != nil {
		log.Warn("lesson report dispatch failed", zap.String("lesson_id", lesson.ID), zap.Error(err))
	}
}

func callerFallback(claims *models.JWTClaims) TeacherFallback {
	return TeacherFallback{TeacherID: claims.TeacherID, Name: claims.FullName}
}

func (s *LessonService) load(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to load lesson")
	}
	return lesson, nil
}
