package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	applog "github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

const eventLessonsScheduled = "lessons.scheduled"

type lessonBatchWriter interface {
	CreateBatch(ctx context.Context, lessons []models.Lesson) ([]string, error)
	DeleteBatch(ctx context.Context, ids []string) ([]string, error)
}

type teacherReader interface {
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
}

type schedulingRunStore interface {
	Create(ctx context.Context, run *models.SchedulingRun) error
	List(ctx context.Context, filter models.SchedulingRunFilter) ([]models.SchedulingRun, int, error)
}

type notifier interface {
	Dispatch(ctx context.Context, kind, endpoint string, payload interface{}) error
}

// RollbackError reports a failed scheduling run whose compensation did not remove every created record.
type RollbackError struct {
	Cause    error
	Failures []error
	Orphaned []string
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v; rollback incomplete: %d record(s) left behind after %d compensation failure(s)", e.Cause, len(e.Orphaned), len(e.Failures))
}

// Unwrap exposes the primary failure first, then every compensation failure.
func (e *RollbackError) Unwrap() []error {
	return append([]error{e.Cause}, e.Failures...)
}

// SchedulingService books a first lesson plus its weekly follow-ups and keeps the record store free of partial runs.
type SchedulingService struct {
	lessons    lessonBatchWriter
	teachers   teacherReader
	notifier   notifier
	runs       schedulingRunStore
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	webhookURL string
	newID      func() string
}

// NewSchedulingService constructs a SchedulingService. A missing webhook URL is a configuration error.
func NewSchedulingService(lessons lessonBatchWriter, teachers teacherReader, notifier notifier, webhookURL string, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) (*SchedulingService, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "SCHEDULING_WEBHOOK_URL is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingService{
		lessons:    lessons,
		teachers:   teachers,
		notifier:   notifier,
		validator:  ensureValidator(validate),
		metrics:    metrics,
		logger:     logger,
		webhookURL: webhookURL,
		newID:      uuid.NewString,
	}, nil
}

// UseRunJournal records every run outcome in store.
func (s *SchedulingService) UseRunJournal(store schedulingRunStore) {
	s.runs = store
}

// ScheduleFirstLesson creates every lesson of the term in batches, notifies the scheduling automation and
// deletes what it created if either step fails.
func (s *SchedulingService) ScheduleFirstLesson(ctx context.Context, claims *models.JWTClaims, req dto.ScheduleLessonsRequest) (*models.ScheduleResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	teacherID, err := resolveTeacherID(claims, req.TeacherID)
	if err != nil {
		return nil, err
	}

	first, err := ParseDate(req.FirstLessonDate)
	if err != nil {
		return nil, err
	}
	weekday, err := ParseWeekday(req.RecurringWeekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurring weekday")
	}
	termEnd := TermEnd(first)
	occurrences := GenerateOccurrences(first, NormalizeClock(req.FirstLessonTime), weekday, NormalizeClock(req.RecurringTime), termEnd)
	lessons := buildLessons(occurrences, req.StudentID, teacherID, req.Arrangement)

	run := &models.SchedulingRun{
		ID:        s.newID(),
		TeacherID: teacherID,
		StudentID: req.StudentID,
		CreatedAt: time.Now().UTC(),
	}
	logger := applog.ForRequest(ctx, s.logger).With(
		zap.String("run_id", run.ID),
		zap.String("teacher_id", teacherID),
		zap.String("student_id", req.StudentID),
	)
	logger.Info("scheduling run started", zap.Int("lessons", len(lessons)), zap.String("term_end", termEnd.Format(models.DateLayout)))

	created, err := s.commit(ctx, logger, lessons)
	run.CreatedCount = len(created)
	if err != nil {
		cause := appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "failed to store lessons")
		return nil, s.abort(ctx, logger, run, cause, created)
	}

	summary := s.summary(ctx, logger, run.ID, teacherID, req, termEnd, occurrences, created)
	if err := s.notifier.Dispatch(ctx, NotificationScheduling, s.webhookURL, summary); err != nil {
		logger.Warn("scheduling notification failed, rolling back", zap.Error(err))
		return nil, s.abort(ctx, logger, run, err, created)
	}

	run.Status = models.SchedulingRunSucceeded
	run.RecordIDs = created
	s.finish(ctx, logger, run, len(created))
	logger.Info("scheduling run committed", zap.Int("created", len(created)))

	return &models.ScheduleResult{
		RunID:        run.ID,
		CreatedCount: len(created),
		RecordIDs:    created,
		TermEndDate:  termEnd.Format(models.DateLayout),
	}, nil
}

// ListRuns returns the scheduling journal.
func (s *SchedulingService) ListRuns(ctx context.Context, query dto.SchedulingRunQuery) ([]models.SchedulingRun, *models.Pagination, error) {
	if s.runs == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling journal is disabled")
	}
	filter := models.SchedulingRunFilter{
		TeacherID: query.TeacherID,
		StudentID: query.StudentID,
		Status:    models.SchedulingRunStatus(strings.ToUpper(query.Status)),
		Page:      query.Page,
		PageSize:  query.Limit,
	}
	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduling runs")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// commit submits chunks strictly in order and stops at the first failure.
// The returned ids cover every record the store acknowledged, including a failed chunk's partial answer.
func (s *SchedulingService) commit(ctx context.Context, logger *zap.Logger, lessons []models.Lesson) ([]string, error) {
	created := make([]string, 0, len(lessons))
	for i, chunk := range recordstore.Chunk(lessons, recordstore.MaxBatchSize) {
		ids, err := s.lessons.CreateBatch(ctx, chunk)
		created = append(created, ids...)
		if err != nil {
			logger.Warn("lesson chunk failed", zap.Int("chunk", i), zap.Int("committed", len(created)), zap.Error(err))
			return created, err
		}
		logger.Debug("lesson chunk committed", zap.Int("chunk", i), zap.Int("size", len(ids)))
	}
	return created, nil
}

// abort deletes every created record and turns the outcome into the error surfaced to the caller.
func (s *SchedulingService) abort(ctx context.Context, logger *zap.Logger, run *models.SchedulingRun, cause error, created []string) error {
	orphaned, failures := s.compensate(context.WithoutCancel(ctx), logger, created)
	message := cause.Error()
	run.Error = &message
	run.RecordIDs = created
	run.OrphanedIDs = orphaned

	if len(failures) > 0 || len(orphaned) > 0 {
		run.Status = models.SchedulingRunRollbackIncomplete
		s.finish(ctx, logger, run, len(orphaned))
		rollbackErr := &RollbackError{Cause: cause, Failures: failures, Orphaned: orphaned}
		logger.Error("rollback incomplete", zap.Strings("orphaned_ids", orphaned), zap.Error(rollbackErr))
		wrapped := appErrors.Wrap(rollbackErr, appErrors.ErrRollbackIncomplete.Code, appErrors.ErrRollbackIncomplete.Status, "scheduling failed and rollback left lessons behind")
		return appErrors.WithDetails(wrapped, map[string]interface{}{
			"run_id":       run.ID,
			"cause":        cause.Error(),
			"orphaned_ids": orphaned,
		})
	}

	if len(created) > 0 {
		run.Status = models.SchedulingRunRolledBack
		logger.Info("scheduling run rolled back", zap.Int("deleted", len(created)))
	} else {
		run.Status = models.SchedulingRunFailed
	}
	s.finish(ctx, logger, run, 0)

	var appErr *appErrors.Error
	if errors.As(cause, &appErr) {
		return appErr
	}
	return appErrors.Wrap(cause, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "scheduling failed")
}

// compensate deletes ids in chunks, best effort and without retries.
func (s *SchedulingService) compensate(ctx context.Context, logger *zap.Logger, ids []string) ([]string, []error) {
	var orphaned []string
	var failures []error
	for i, chunk := range recordstore.Chunk(ids, recordstore.MaxBatchSize) {
		deleted, err := s.lessons.DeleteBatch(ctx, chunk)
		if err != nil {
			logger.Warn("compensating delete failed", zap.Int("chunk", i), zap.Strings("ids", chunk), zap.Error(err))
			failures = append(failures, err)
			orphaned = append(orphaned, chunk...)
			continue
		}
		confirmed := make(map[string]struct{}, len(deleted))
		for _, id := range deleted {
			confirmed[id] = struct{}{}
		}
		var missing []string
		for _, id := range chunk {
			if _, ok := confirmed[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			logger.Warn("compensating delete not confirmed", zap.Int("chunk", i), zap.Strings("ids", missing))
			failures = append(failures, fmt.Errorf("delete not confirmed for %d record(s)", len(missing)))
			orphaned = append(orphaned, missing...)
		}
	}
	return orphaned, failures
}

func (s *SchedulingService) finish(ctx context.Context, logger *zap.Logger, run *models.SchedulingRun, committed int) {
	s.metrics.RecordScheduleRun(run.Status, committed)
	if s.runs == nil {
		return
	}
	start := time.Now()
	err := s.runs.Create(context.WithoutCancel(ctx), run)
	s.metrics.ObserveDBQuery("scheduling_runs.create", time.Since(start))
	if err != nil {
		logger.Warn("failed to journal scheduling run", zap.String("status", string(run.Status)), zap.Error(err))
	}
}

func (s *SchedulingService) summary(ctx context.Context, logger *zap.Logger, runID, teacherID string, req dto.ScheduleLessonsRequest, termEnd time.Time, occurrences []models.LessonOccurrence, created []string) dto.SchedulingSummary {
	summary := dto.SchedulingSummary{
		Event:            eventLessonsScheduled,
		RunID:            runID,
		TeacherID:        teacherID,
		StudentID:        req.StudentID,
		FirstLessonDate:  req.FirstLessonDate,
		FirstLessonTime:  NormalizeClock(req.FirstLessonTime),
		RecurringWeekday: req.RecurringWeekday,
		RecurringTime:    NormalizeClock(req.RecurringTime),
		BackupTime:       req.BackupTime,
		TermGoal:         req.TermGoal,
		Notes:            req.Notes,
		TermEndDate:      termEnd.Format(models.DateLayout),
		LessonCount:      len(created),
		RecurringCount:   len(occurrences) - 1,
		LessonIDs:        created,
	}
	if arrangement, ok := models.ParseArrangement(req.Arrangement); ok {
		summary.Arrangement = string(arrangement)
	}
	if s.teachers != nil {
		teacher, err := s.teachers.FindTeacher(ctx, teacherID)
		if err != nil {
			logger.Warn("teacher lookup failed for scheduling summary", zap.Error(err))
		} else {
			summary.TeacherName = DisplayName(teacher.Attributes, teacherNameFields)
			summary.TeacherEmail = teacher.Email
		}
	}
	return summary
}

func resolveTeacherID(claims *models.JWTClaims, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if claims.IsAdmin() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
		}
		return requested, nil
	}
	if requested == "" {
		requested = claims.TeacherID
	}
	if requested == "" || !claims.CanActFor(requested) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot schedule lessons for another teacher")
	}
	return requested, nil
}

func buildLessons(occurrences []models.LessonOccurrence, studentID, teacherID, rawArrangement string) []models.Lesson {
	var arrangement *models.Arrangement
	if parsed, ok := models.ParseArrangement(rawArrangement); ok {
		arrangement = &parsed
	}
	lessons := make([]models.Lesson, 0, len(occurrences))
	for _, occ := range occurrences {
		lesson := models.Lesson{
			Date:        occ.Date,
			Time:        occ.Time,
			StudentID:   studentID,
			TeacherID:   teacherID,
			Arrangement: arrangement,
		}
		lesson.DeriveStatus()
		lessons = append(lessons, lesson)
	}
	return lessons
}
