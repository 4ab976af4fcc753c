package dto

import "github.com/noah-isme/lesson-scheduler-api/internal/models"

// ScheduleLessonsRequest books a first lesson and the weekly lessons that follow it until term end.
type ScheduleLessonsRequest struct {
	StudentID        string `json:"studentId" validate:"required"`
	TeacherID        string `json:"teacherId"`
	FirstLessonDate  string `json:"firstLessonDate" validate:"required,isodate"`
	FirstLessonTime  string `json:"firstLessonTime" validate:"required,clock"`
	RecurringWeekday string `json:"recurringWeekday" validate:"required,weekday"`
	RecurringTime    string `json:"recurringTime" validate:"required,clock"`
	BackupTime       string `json:"backupTime" validate:"omitempty,clock"`
	Arrangement      string `json:"arrangement" validate:"omitempty,max=50"`
	TermGoal         string `json:"termGoal" validate:"omitempty,max=2000"`
	Notes            string `json:"notes" validate:"omitempty,max=5000"`
}

// LessonTransition names a status change a caller may request.
type LessonTransition string

const (
	TransitionCompleted   LessonTransition = "completed"
	TransitionRescheduled LessonTransition = "rescheduled"
	TransitionCancelled   LessonTransition = "cancelled"
)

// TransitionLessonRequest carries the transition and its transition-specific data.
type TransitionLessonRequest struct {
	Transition  LessonTransition `json:"transition" validate:"required,oneof=completed rescheduled cancelled"`
	Notes       *string          `json:"notes" validate:"omitempty,max=10000"`
	Homework    *string          `json:"homework" validate:"omitempty,max=10000"`
	NewDate     string           `json:"newDate" validate:"omitempty,isodate"`
	NewTime     string           `json:"newTime" validate:"omitempty,clock"`
	Reason      string           `json:"reason" validate:"omitempty,max=2000"`
	CancelledBy string           `json:"cancelledBy" validate:"omitempty,max=200"`
}

// LessonListQuery filters GET /lessons.
type LessonListQuery struct {
	TeacherID string `form:"teacherId"`
	StudentID string `form:"studentId"`
	From      string `form:"from" validate:"omitempty,isodate"`
	To        string `form:"to" validate:"omitempty,isodate"`
}

// SchedulingSummary is posted to the scheduling automation once every lesson of a run is stored.
type SchedulingSummary struct {
	Event            string   `json:"event"`
	RunID            string   `json:"runId"`
	TeacherID        string   `json:"teacherId"`
	TeacherName      string   `json:"teacherName,omitempty"`
	TeacherEmail     string   `json:"teacherEmail,omitempty"`
	StudentID        string   `json:"studentId"`
	FirstLessonDate  string   `json:"firstLessonDate"`
	FirstLessonTime  string   `json:"firstLessonTime"`
	RecurringWeekday string   `json:"recurringWeekday"`
	RecurringTime    string   `json:"recurringTime"`
	BackupTime       string   `json:"backupTime,omitempty"`
	Arrangement      string   `json:"arrangement,omitempty"`
	TermGoal         string   `json:"termGoal,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	TermEndDate      string   `json:"termEndDate"`
	LessonCount      int      `json:"lessonCount"`
	RecurringCount   int      `json:"recurringCount"`
	LessonIDs        []string `json:"lessonIds"`
}

// LessonReport is posted to the reporting automation after a lesson is marked completed.
type LessonReport struct {
	Event      string          `json:"event"`
	ReportedBy string          `json:"reportedBy,omitempty"`
	Lessons    []models.Lesson `json:"lessons"`
}

// SchedulingRunQuery filters the scheduling journal listing.
type SchedulingRunQuery struct {
	TeacherID string `form:"teacherId"`
	StudentID string `form:"studentId"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}
