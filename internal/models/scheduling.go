package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonOccurrence is one generated (date, time) booking.
type LessonOccurrence struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ScheduleResult is returned after a fully committed scheduling run.
type ScheduleResult struct {
	RunID        string   `json:"run_id"`
	CreatedCount int      `json:"created_count"`
	RecordIDs    []string `json:"record_ids"`
	TermEndDate  string   `json:"term_end_date"`
}

// SchedulingRunStatus is the final outcome of a scheduling run.
type SchedulingRunStatus string

const (
	SchedulingRunSucceeded          SchedulingRunStatus = "SUCCEEDED"
	SchedulingRunFailed             SchedulingRunStatus = "FAILED"
	SchedulingRunRolledBack         SchedulingRunStatus = "ROLLED_BACK"
	SchedulingRunRollbackIncomplete SchedulingRunStatus = "ROLLBACK_INCOMPLETE"
)

// SchedulingRun is one journal row describing a scheduling run and its compensation.
type SchedulingRun struct {
	ID           string              `db:"id" json:"id"`
	TeacherID    string              `db:"teacher_id" json:"teacher_id"`
	StudentID    string              `db:"student_id" json:"student_id"`
	Status       SchedulingRunStatus `db:"status" json:"status"`
	CreatedCount int                 `db:"created_count" json:"created_count"`
	RecordIDs    pq.StringArray      `db:"record_ids" json:"record_ids"`
	OrphanedIDs  pq.StringArray      `db:"orphaned_ids" json:"orphaned_ids"`
	Error        *string             `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

// SchedulingRunFilter narrows journal listings.
type SchedulingRunFilter struct {
	TeacherID string
	StudentID string
	Status    SchedulingRunStatus
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// MetricsSnapshot summarises process counters for the metrics summary endpoint.
type MetricsSnapshot struct {
	RequestsTotal                uint64    `json:"requests_total"`
	AverageRequestDurationMs     float64   `json:"average_request_duration_ms"`
	RecordStoreCalls             uint64    `json:"record_store_calls"`
	AverageRecordStoreDurationMs float64   `json:"average_record_store_duration_ms"`
	ScheduleRuns                 uint64    `json:"schedule_runs"`
	ScheduleRunFailures          uint64    `json:"schedule_run_failures"`
	LessonsCreated               uint64    `json:"lessons_created"`
	NotificationFailures         uint64    `json:"notification_failures"`
	Goroutines                   int       `json:"goroutines"`
	GeneratedAt                  time.Time `json:"generated_at"`
}
