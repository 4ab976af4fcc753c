package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

const defaultLookupConcurrency = 4

var (
	guardianNameFields = []string{"Full Name", "Name", "Guardian Name", "Parent Name", "Display Name"}
	teacherNameFields  = []string{"Full Name", "Name", "Teacher Name", "Display Name"}
	firstNameFields    = []string{"First Name", "First name", "Given Name"}
	lastNameFields     = []string{"Last Name", "Last name", "Surname", "Family Name"}
)

type directoryReader interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindGuardian(ctx context.Context, id string) (*models.Guardian, error)
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
}

// TeacherFallback names the caller's own teacher record. Name is used only for that teacher when its lookup fails.
type TeacherFallback struct {
	TeacherID string
	Name      string
}

func (f TeacherFallback) nameFor(teacherID string) string {
	if f.TeacherID == "" || f.TeacherID != teacherID {
		return ""
	}
	return strings.TrimSpace(f.Name)
}

// EnrichmentService attaches display data to lessons before they leave the service.
// It only reads linked entities and never writes to the record store.
type EnrichmentService struct {
	directory   directoryReader
	location    *time.Location
	logger      *zap.Logger
	now         func() time.Time
	concurrency int
}

// NewEnrichmentService constructs an EnrichmentService.
func NewEnrichmentService(directory directoryReader, location *time.Location, logger *zap.Logger) *EnrichmentService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentService{
		directory:   directory,
		location:    location,
		logger:      logger,
		now:         time.Now,
		concurrency: defaultLookupConcurrency,
	}
}

// Today returns the current calendar date in the business timezone.
func (s *EnrichmentService) Today() string {
	return s.now().In(s.location).Format(models.DateLayout)
}

// Enrich resolves guardian and teacher names for the batch and normalises derived fields in place.
// Lookup failures degrade to the caller's own name for the caller's teacher record, otherwise to an empty string.
// Only context cancellation is returned.
func (s *EnrichmentService) Enrich(ctx context.Context, lessons []models.Lesson, fallback TeacherFallback) ([]models.Lesson, error) {
	if len(lessons) == 0 {
		return lessons, nil
	}

	studentIDs := distinct(lessons, func(l models.Lesson) string { return l.StudentID })
	teacherIDs := distinct(lessons, func(l models.Lesson) string { return l.TeacherID })

	var mu sync.Mutex
	guardianByStudent := make(map[string]string, len(studentIDs))
	teacherNames := make(map[string]string, len(teacherIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range studentIDs {
		id := id
		g.Go(func() error {
			guardianID := s.guardianOf(gctx, id)
			mu.Lock()
			guardianByStudent[id] = guardianID
			mu.Unlock()
			return nil
		})
	}
	for _, id := range teacherIDs {
		id := id
		g.Go(func() error {
			name := s.teacherName(gctx, id, fallback)
			mu.Lock()
			teacherNames[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	guardianIDs := make([]string, 0, len(guardianByStudent))
	seen := make(map[string]struct{}, len(guardianByStudent))
	for _, id := range studentIDs {
		guardianID := guardianByStudent[id]
		if guardianID == "" {
			continue
		}
		if _, ok := seen[guardianID]; ok {
			continue
		}
		seen[guardianID] = struct{}{}
		guardianIDs = append(guardianIDs, guardianID)
	}

	guardianNames := make(map[string]string, len(guardianIDs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range guardianIDs {
		id := id
		g.Go(func() error {
			name := s.guardianName(gctx, id)
			mu.Lock()
			guardianNames[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	today := s.Today()
	for i := range lessons {
		lesson := &lessons[i]
		NormalizeArrangement(lesson)
		lesson.GuardianNameBackup = guardianNames[guardianByStudent[lesson.StudentID]]
		lesson.TeacherNameBackup = teacherNames[lesson.TeacherID]
		switch {
		case lesson.Completed:
			completedOn := today
			lesson.CompletedOn = &completedOn
			lesson.CompletedOnSet = true
		case lesson.CompletedOnSet:
			lesson.CompletedOn = nil
		}
		lesson.DeriveStatus()
	}
	return lessons, nil
}

// NormalizeArrangement maps the stored arrangement onto the fixed label set; unknown values are dropped.
func NormalizeArrangement(lesson *models.Lesson) {
	raw := lesson.RawArrangement
	if raw == "" && lesson.Arrangement != nil {
		raw = string(*lesson.Arrangement)
	}
	if arrangement, ok := models.ParseArrangement(raw); ok {
		lesson.Arrangement = &arrangement
		return
	}
	lesson.Arrangement = nil
}

func (s *EnrichmentService) guardianOf(ctx context.Context, studentID string) string {
	student, err := s.directory.FindStudent(ctx, studentID)
	if err != nil {
		s.logger.Warn("student lookup failed", zap.String("student_id", studentID), zap.Error(err))
		return ""
	}
	return student.GuardianID()
}

func (s *EnrichmentService) guardianName(ctx context.Context, guardianID string) string {
	guardian, err := s.directory.FindGuardian(ctx, guardianID)
	if err != nil {
		s.logger.Warn("guardian lookup failed", zap.String("guardian_id", guardianID), zap.Error(err))
		return ""
	}
	return DisplayName(guardian.Attributes, guardianNameFields)
}

func (s *EnrichmentService) teacherName(ctx context.Context, teacherID string, fallback TeacherFallback) string {
	teacher, err := s.directory.FindTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Warn("teacher lookup failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return fallback.nameFor(teacherID)
	}
	return DisplayName(teacher.Attributes, teacherNameFields)
}

// DisplayName takes the first non-blank candidate field, then "first last", then "".
func DisplayName(attrs map[string]string, candidates []string) string {
	for _, key := range candidates {
		if value := strings.TrimSpace(attrs[key]); value != "" {
			return value
		}
	}
	first := firstNonBlank(attrs, firstNameFields)
	last := firstNonBlank(attrs, lastNameFields)
	return strings.TrimSpace(first + " " + last)
}

func firstNonBlank(attrs map[string]string, keys []string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(attrs[key]); value != "" {
			return value
		}
	}
	return ""
}

func distinct(lessons []models.Lesson, key func(models.Lesson) string) []string {
	seen := make(map[string]struct{}, len(lessons))
	out := make([]string, 0, len(lessons))
	for _, lesson := range lessons {
		id := key(lesson)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
