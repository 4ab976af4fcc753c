package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

// SchedulingRunRepository persists the scheduling journal.
type SchedulingRunRepository struct {
	db *sqlx.DB
}

// NewSchedulingRunRepository constructs a SchedulingRunRepository.
func NewSchedulingRunRepository(db *sqlx.DB) *SchedulingRunRepository {
	return &SchedulingRunRepository{db: db}
}

// Create inserts a journal row.
func (r *SchedulingRunRepository) Create(ctx context.Context, run *models.SchedulingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.RecordIDs == nil {
		run.RecordIDs = pq.StringArray{}
	}
	if run.OrphanedIDs == nil {
		run.OrphanedIDs = pq.StringArray{}
	}

	query := `INSERT INTO scheduling_runs (id, teacher_id, student_id, status, created_count, record_ids, orphaned_ids, error, created_at)
VALUES (:id, :teacher_id, :student_id, :status, :created_count, :record_ids, :orphaned_ids, :error, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create scheduling run: %w", err)
	}
	return nil
}

// List returns journal rows matching filters along with the total count.
func (r *SchedulingRunRepository) List(ctx context.Context, filter models.SchedulingRunFilter) ([]models.SchedulingRun, int, error) {
	base := "FROM scheduling_runs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, teacher_id, student_id, status, created_count, record_ids, orphaned_ids, error, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var runs []models.SchedulingRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scheduling runs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count scheduling runs: %w", err)
	}
	return runs, total, nil
}
