package models

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates exchanged with the record store.
const DateLayout = "2006-01-02"

// LessonStatus is the presentation status derived from a lesson's flat fields.
type LessonStatus string

const (
	LessonStatusPlanned     LessonStatus = "planned"
	LessonStatusCompleted   LessonStatus = "completed"
	LessonStatusCancelled   LessonStatus = "cancelled"
	LessonStatusRescheduled LessonStatus = "rescheduled"
)

// Arrangement is the booked lesson length.
type Arrangement string

const (
	Arrangement30 Arrangement = "30 min"
	Arrangement45 Arrangement = "45 min"
	Arrangement60 Arrangement = "60 min"
	Arrangement90 Arrangement = "90 min"
)

var arrangementsByMinutes = map[int]Arrangement{
	30: Arrangement30,
	45: Arrangement45,
	60: Arrangement60,
	90: Arrangement90,
}

// Arrangements lists the accepted labels in ascending length.
func Arrangements() []Arrangement {
	return []Arrangement{Arrangement30, Arrangement45, Arrangement60, Arrangement90}
}

// ParseArrangement maps loose input ("45", "45min", "45 Minutes") onto the fixed label set.
func ParseArrangement(raw string) (Arrangement, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", false
	}
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	minutes, err := strconv.Atoi(value[:end])
	if err != nil {
		return "", false
	}
	switch strings.TrimSpace(value[end:]) {
	case "", "m", "min", "mins", "minute", "minutes":
	default:
		return "", false
	}
	arrangement, ok := arrangementsByMinutes[minutes]
	return arrangement, ok
}

// Lesson is a single booked lesson as held by the record store.
type Lesson struct {
	ID               string       `json:"id"`
	Date             string       `json:"date"`
	Time             string       `json:"time"`
	StudentID        string       `json:"student_id"`
	TeacherID        string       `json:"teacher_id"`
	Completed        bool         `json:"completed"`
	Cancelled        bool         `json:"cancelled"`
	RescheduleReason *string      `json:"reschedule_reason"`
	CancelReason     *string      `json:"cancel_reason"`
	Notes            *string      `json:"notes"`
	Homework         *string      `json:"homework"`
	Arrangement      *Arrangement `json:"arrangement"`
	CompletedOn      *string      `json:"completed_on"`
	Status           LessonStatus `json:"status"`

	// Read-only display names attached by enrichment; never written back as references.
	GuardianNameBackup string `json:"guardian_name_backup,omitempty"`
	TeacherNameBackup  string `json:"teacher_name_backup,omitempty"`

	// RawArrangement keeps the stored value until enrichment normalises it.
	RawArrangement string `json:"-"`

	// CompletedOnSet records whether the store returned the completion column at all.
	CompletedOnSet bool `json:"-"`
}

// ScheduledOn parses the lesson date.
func (l Lesson) ScheduledOn() (time.Time, error) {
	return time.Parse(DateLayout, l.Date)
}

// DeriveStatus recomputes Status from the flat fields.
func (l *Lesson) DeriveStatus() LessonStatus {
	l.Status = StateOf(*l).Status()
	return l.Status
}

// LessonFilter narrows lesson listings.
type LessonFilter struct {
	TeacherID string
	StudentID string
	From      string
	To        string
}
