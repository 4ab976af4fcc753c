package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

// Lesson table columns.
const (
	colDate             = "Date"
	colTime             = "Time"
	colStudent          = "Student"
	colTeacher          = "Teacher"
	colCompleted        = "Completed"
	colCancelled        = "Cancelled"
	colRescheduleReason = "Reschedule Reason"
	colCancelReason     = "Cancel Reason"
	colNotes            = "Notes"
	colHomework         = "Homework"
	colArrangement      = "Arrangement"
	colCompletedOn      = "Completed On"
	colTeacherRecordID  = "Teacher Record ID"
	colStudentRecordID  = "Student Record ID"
)

// LessonRepository reads and writes lesson records in the record store.
type LessonRepository struct {
	client RecordClient
	table  string
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(client RecordClient, table string) *LessonRepository {
	if table == "" {
		table = "Lessons"
	}
	return &LessonRepository{client: client, table: table}
}

// FindByID loads a lesson; recordstore.ErrNotFound is returned untouched.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	record, err := r.client.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}
	lesson := lessonFromRecord(*record)
	return &lesson, nil
}

// List returns every lesson matching the filter, sorted as the store returns them.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	records, err := r.client.ListAll(ctx, r.table, recordstore.ListOptions{Filter: lessonFormula(filter), PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	lessons := make([]models.Lesson, 0, len(records))
	for _, record := range records {
		lessons = append(lessons, lessonFromRecord(record))
	}
	return lessons, nil
}

// CreateBatch inserts one chunk of lessons and returns the assigned ids in input order.
func (r *LessonRepository) CreateBatch(ctx context.Context, lessons []models.Lesson) ([]string, error) {
	rows := make([]recordstore.Fields, 0, len(lessons))
	for _, lesson := range lessons {
		rows = append(rows, lessonFields(lesson))
	}
	records, err := r.client.Create(ctx, r.table, rows)
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	if err != nil {
		return ids, fmt.Errorf("create lessons: %w", err)
	}
	return ids, nil
}

// DeleteBatch removes one chunk of lessons and returns the ids the store confirmed.
func (r *LessonRepository) DeleteBatch(ctx context.Context, ids []string) ([]string, error) {
	deleted, err := r.client.Delete(ctx, r.table, ids)
	if err != nil {
		return nil, fmt.Errorf("delete lessons: %w", err)
	}
	return deleted, nil
}

// SaveChange writes the full flat field set of the target state.
func (r *LessonRepository) SaveChange(ctx context.Context, id string, change models.LessonChange) error {
	if _, err := r.client.Update(ctx, r.table, id, changeFields(change)); err != nil {
		return fmt.Errorf("update lesson %s: %w", id, err)
	}
	return nil
}

func lessonFromRecord(record recordstore.Record) models.Lesson {
	f := record.Fields
	lesson := models.Lesson{
		ID:               record.ID,
		Date:             f.String(colDate),
		Time:             f.String(colTime),
		StudentID:        f.FirstLinkedID(colStudent),
		TeacherID:        f.FirstLinkedID(colTeacher),
		Completed:        f.Bool(colCompleted),
		Cancelled:        f.Bool(colCancelled),
		RescheduleReason: f.StringPtr(colRescheduleReason),
		CancelReason:     f.StringPtr(colCancelReason),
		Notes:            f.StringPtr(colNotes),
		Homework:         f.StringPtr(colHomework),
		CompletedOn:      f.StringPtr(colCompletedOn),
		RawArrangement:   f.String(colArrangement),
		CompletedOnSet:   f.Has(colCompletedOn),
	}
	if arrangement, ok := models.ParseArrangement(lesson.RawArrangement); ok {
		lesson.Arrangement = &arrangement
	}
	lesson.DeriveStatus()
	return lesson
}

func lessonFields(lesson models.Lesson) recordstore.Fields {
	fields := recordstore.Fields{
		colDate:      lesson.Date,
		colTime:      lesson.Time,
		colStudent:   []string{lesson.StudentID},
		colTeacher:   []string{lesson.TeacherID},
		colCompleted: lesson.Completed,
		colCancelled: lesson.Cancelled,
	}
	if lesson.Arrangement != nil {
		fields[colArrangement] = string(*lesson.Arrangement)
	}
	if lesson.Notes != nil {
		fields[colNotes] = *lesson.Notes
	}
	return fields
}

func changeFields(change models.LessonChange) recordstore.Fields {
	var fields recordstore.Fields
	switch state := change.State.(type) {
	case models.CompletedState:
		fields = recordstore.Fields{
			colCompleted:        true,
			colCancelled:        false,
			colRescheduleReason: nil,
			colCancelReason:     nil,
			colNotes:            state.Notes,
			colHomework:         state.Homework,
			colCompletedOn:      state.CompletedOn,
		}
	case models.CancelledState:
		fields = recordstore.Fields{
			colCompleted:        false,
			colCancelled:        true,
			colRescheduleReason: nil,
			colCancelReason:     state.Reason,
			colCompletedOn:      nil,
		}
	case models.RescheduledState:
		fields = recordstore.Fields{
			colCompleted:        false,
			colCancelled:        false,
			colRescheduleReason: state.Reason,
			colCompletedOn:      nil,
		}
	default:
		fields = recordstore.Fields{
			colCompleted:   false,
			colCancelled:   false,
			colCompletedOn: nil,
		}
	}
	if change.Date != "" {
		fields[colDate] = change.Date
	}
	if change.Time != "" {
		fields[colTime] = change.Time
	}
	return fields
}

func lessonFormula(filter models.LessonFilter) string {
	var clauses []string
	if filter.TeacherID != "" {
		clauses = append(clauses, fmt.Sprintf("{%s}='%s'", colTeacherRecordID, recordstore.EscapeFormula(filter.TeacherID)))
	}
	if filter.StudentID != "" {
		clauses = append(clauses, fmt.Sprintf("{%s}='%s'", colStudentRecordID, recordstore.EscapeFormula(filter.StudentID)))
	}
	if filter.From != "" {
		clauses = append(clauses, fmt.Sprintf("NOT(IS_BEFORE({%s}, '%s'))", colDate, recordstore.EscapeFormula(filter.From)))
	}
	if filter.To != "" {
		clauses = append(clauses, fmt.Sprintf("NOT(IS_AFTER({%s}, '%s'))", colDate, recordstore.EscapeFormula(filter.To)))
	}
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	default:
		return "AND(" + strings.Join(clauses, ", ") + ")"
	}
}
