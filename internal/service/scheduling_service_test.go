package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type mockLessonBatches struct {
	stored      map[string]models.Lesson
	createCalls [][]models.Lesson
	deleteCalls [][]string
	failCreate  map[int]error
	failDelete  map[int]error
	nextID      int
}

func newMockLessonBatches() *mockLessonBatches {
	return &mockLessonBatches{
		stored:     map[string]models.Lesson{},
		failCreate: map[int]error{},
		failDelete: map[int]error{},
	}
}

func (m *mockLessonBatches) CreateBatch(ctx context.Context, lessons []models.Lesson) ([]string, error) {
	call := len(m.createCalls)
	m.createCalls = append(m.createCalls, lessons)
	if err := m.failCreate[call]; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lessons))
	for _, lesson := range lessons {
		m.nextID++
		id := fmt.Sprintf("rec%02d", m.nextID)
		lesson.ID = id
		m.stored[id] = lesson
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockLessonBatches) DeleteBatch(ctx context.Context, ids []string) ([]string, error) {
	call := len(m.deleteCalls)
	m.deleteCalls = append(m.deleteCalls, ids)
	if err := m.failDelete[call]; err != nil {
		return nil, err
	}
	var deleted []string
	for _, id := range ids {
		if _, ok := m.stored[id]; ok {
			delete(m.stored, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

type mockNotifier struct {
	err      error
	calls    int
	kinds    []string
	payloads []interface{}
}

func (m *mockNotifier) Dispatch(ctx context.Context, kind, endpoint string, payload interface{}) error {
	m.calls++
	m.kinds = append(m.kinds, kind)
	m.payloads = append(m.payloads, payload)
	return m.err
}

type mockRunStore struct {
	runs    []models.SchedulingRun
	err     error
	listErr error
}

func (m *mockRunStore) Create(ctx context.Context, run *models.SchedulingRun) error {
	m.runs = append(m.runs, *run)
	return m.err
}

func (m *mockRunStore) List(ctx context.Context, filter models.SchedulingRunFilter) ([]models.SchedulingRun, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.runs, len(m.runs), nil
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, TeacherID: "recT1"}
}

func newTestSchedulingService(t *testing.T, store *mockLessonBatches, notify *mockNotifier) (*SchedulingService, *mockRunStore) {
	t.Helper()
	directory := newMockDirectory()
	directory.teachers["recT1"] = &models.Teacher{ID: "recT1", Email: "clara@example.com", Attributes: map[string]string{"Name": "Clara"}}
	svc, err := NewSchedulingService(store, directory, notify, "https://hooks.example.com/schedule", nil, NewMetricsService(), nil)
	require.NoError(t, err)
	runs := &mockRunStore{}
	svc.UseRunJournal(runs)
	return svc, runs
}

func autumnRequest() dto.ScheduleLessonsRequest {
	return dto.ScheduleLessonsRequest{
		StudentID:        "recS1",
		FirstLessonDate:  "2024-09-02",
		FirstLessonTime:  "14:00",
		RecurringWeekday: "Monday",
		RecurringTime:    "14:00",
		Arrangement:      "45",
	}
}

func TestNewSchedulingServiceRequiresWebhook(t *testing.T) {
	_, err := NewSchedulingService(newMockLessonBatches(), nil, &mockNotifier{}, " ", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))
}

func TestScheduleFirstLessonCommitsInChunks(t *testing.T) {
	store := newMockLessonBatches()
	notify := &mockNotifier{}
	svc, runs := newTestSchedulingService(t, store, notify)

	result, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), autumnRequest())
	require.NoError(t, err)
	assert.Equal(t, 16, result.CreatedCount)
	assert.Len(t, result.RecordIDs, 16)
	assert.Equal(t, "2024-12-20", result.TermEndDate)

	require.Len(t, store.createCalls, 2)
	assert.Len(t, store.createCalls[0], 10)
	assert.Len(t, store.createCalls[1], 6)
	assert.Equal(t, "2024-09-02", store.createCalls[0][0].Date)
	assert.Equal(t, "recT1", store.createCalls[0][0].TeacherID)
	require.NotNil(t, store.createCalls[0][0].Arrangement)
	assert.Equal(t, models.Arrangement45, *store.createCalls[0][0].Arrangement)
	assert.Empty(t, store.deleteCalls)

	require.Equal(t, 1, notify.calls)
	summary, ok := notify.payloads[0].(dto.SchedulingSummary)
	require.True(t, ok)
	assert.Equal(t, 16, summary.LessonCount)
	assert.Equal(t, 15, summary.RecurringCount)
	assert.Equal(t, "Clara", summary.TeacherName)
	assert.Equal(t, "clara@example.com", summary.TeacherEmail)
	assert.Equal(t, "45 min", summary.Arrangement)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.SchedulingRunSucceeded, runs.runs[0].Status)
	assert.Equal(t, result.RunID, runs.runs[0].ID)
}

func TestScheduleFirstLessonShortTermSingleChunk(t *testing.T) {
	store := newMockLessonBatches()
	svc, _ := newTestSchedulingService(t, store, &mockNotifier{})

	req := autumnRequest()
	req.FirstLessonDate = "2024-11-04"
	result, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), req)
	require.NoError(t, err)
	assert.Equal(t, 7, result.CreatedCount)
	assert.Len(t, store.createCalls, 1)
}

func TestScheduleFirstLessonRollsBackOnDispatchFailure(t *testing.T) {
	store := newMockLessonBatches()
	notify := &mockNotifier{err: appErrors.Clone(appErrors.ErrExternalService, "notification endpoint responded 500")}
	svc, runs := newTestSchedulingService(t, store, notify)

	_, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), autumnRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExternalService.Code))

	require.Len(t, store.createCalls, 2)
	require.Len(t, store.deleteCalls, 2)
	assert.Len(t, store.deleteCalls[0], 10)
	assert.Len(t, store.deleteCalls[1], 6)
	assert.Empty(t, store.stored)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, models.SchedulingRunRolledBack, runs.runs[0].Status)
	assert.Len(t, runs.runs[0].RecordIDs, 16)
	assert.Empty(t, runs.runs[0].OrphanedIDs)
}

func TestScheduleFirstLessonCompensatesPartialChunks(t *testing.T) {
	store := newMockLessonBatches()
	store.failCreate[1] = errors.New("422 INVALID_VALUE_FOR_COLUMN")
	notify := &mockNotifier{}
	svc, runs := newTestSchedulingService(t, store, notify)

	_, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), autumnRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExternalService.Code))
	assert.Zero(t, notify.calls)
	require.Len(t, store.deleteCalls, 1)
	assert.Len(t, store.deleteCalls[0], 10)
	assert.Empty(t, store.stored)
	assert.Equal(t, models.SchedulingRunRolledBack, runs.runs[0].Status)
}

func TestScheduleFirstLessonFirstChunkFailure(t *testing.T) {
	store := newMockLessonBatches()
	store.failCreate[0] = errors.New("store unavailable")
	svc, runs := newTestSchedulingService(t, store, &mockNotifier{})

	_, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), autumnRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExternalService.Code))
	assert.Empty(t, store.deleteCalls)
	assert.Equal(t, models.SchedulingRunFailed, runs.runs[0].Status)
}

func TestScheduleFirstLessonReportsIncompleteRollback(t *testing.T) {
	store := newMockLessonBatches()
	store.failDelete[1] = errors.New("delete timed out")
	dispatchErr := appErrors.Clone(appErrors.ErrExternalService, "notification endpoint unreachable")
	svc, runs := newTestSchedulingService(t, store, &mockNotifier{err: dispatchErr})

	_, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), autumnRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRollbackIncomplete.Code))

	var rollbackErr *RollbackError
	require.True(t, errors.As(err, &rollbackErr))
	assert.Len(t, rollbackErr.Orphaned, 6)
	assert.Len(t, rollbackErr.Failures, 1)
	assert.True(t, errors.Is(err, dispatchErr))

	appErr := appErrors.FromError(err)
	assert.Equal(t, rollbackErr.Orphaned, appErr.Details["orphaned_ids"])
	assert.Len(t, store.stored, 6)

	assert.Equal(t, models.SchedulingRunRollbackIncomplete, runs.runs[0].Status)
	assert.Len(t, runs.runs[0].OrphanedIDs, 6)
}

func TestScheduleFirstLessonValidation(t *testing.T) {
	store := newMockLessonBatches()
	svc, _ := newTestSchedulingService(t, store, &mockNotifier{})

	cases := map[string]func(*dto.ScheduleLessonsRequest){
		"missing student":  func(r *dto.ScheduleLessonsRequest) { r.StudentID = "" },
		"bad date":         func(r *dto.ScheduleLessonsRequest) { r.FirstLessonDate = "2024-13-01" },
		"bad time":         func(r *dto.ScheduleLessonsRequest) { r.FirstLessonTime = "25:00" },
		"unknown weekday":  func(r *dto.ScheduleLessonsRequest) { r.RecurringWeekday = "Funday" },
		"missing rec time": func(r *dto.ScheduleLessonsRequest) { r.RecurringTime = "" },
	}
	for name, mutate := range cases {
		req := autumnRequest()
		mutate(&req)
		_, err := svc.ScheduleFirstLesson(context.Background(), teacherClaims(), req)
		require.Error(t, err, name)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code), name)
	}
	assert.Empty(t, store.createCalls)
}

func TestScheduleFirstLessonOwnership(t *testing.T) {
	store := newMockLessonBatches()
	svc, _ := newTestSchedulingService(t, store, &mockNotifier{})

	_, err := svc.ScheduleFirstLesson(context.Background(), nil, autumnRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	req := autumnRequest()
	req.TeacherID = "recT2"
	_, err = svc.ScheduleFirstLesson(context.Background(), teacherClaims(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	admin := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}
	_, err = svc.ScheduleFirstLesson(context.Background(), admin, autumnRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, store.createCalls)

	result, err := svc.ScheduleFirstLesson(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Equal(t, "recT2", store.stored[result.RecordIDs[0]].TeacherID)
}

func TestListRuns(t *testing.T) {
	svc, runs := newTestSchedulingService(t, newMockLessonBatches(), &mockNotifier{})
	runs.runs = []models.SchedulingRun{{ID: "run-1", Status: models.SchedulingRunSucceeded}}

	list, pagination, err := svc.ListRuns(context.Background(), dto.SchedulingRunQuery{Status: "succeeded"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	svc.UseRunJournal(nil)
	_, _, err = svc.ListRuns(context.Background(), dto.SchedulingRunQuery{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
