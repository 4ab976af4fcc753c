package models

import "strings"

// LessonState is the explicit form of a lesson's status; the record store only holds flat fields.
type LessonState interface {
	Status() LessonStatus
}

// PlannedState is the default state of a booked lesson.
type PlannedState struct{}

// CompletedState carries the session summary recorded on completion.
type CompletedState struct {
	Notes       string
	Homework    string
	CompletedOn string
}

// CancelledState carries who cancelled and why.
type CancelledState struct {
	Reason string
}

// RescheduledState is inferred from a non-empty reschedule reason.
type RescheduledState struct {
	Reason string
}

func (PlannedState) Status() LessonStatus { return LessonStatusPlanned }
func (CompletedState) Status() LessonStatus { return LessonStatusCompleted }
func (CancelledState) Status() LessonStatus { return LessonStatusCancelled }
func (RescheduledState) Status() LessonStatus { return LessonStatusRescheduled }

// StateOf reconstructs the explicit state from the flat field combination.
func StateOf(l Lesson) LessonState {
	switch {
	case l.Completed:
		state := CompletedState{Notes: deref(l.Notes), Homework: deref(l.Homework)}
		if l.CompletedOn != nil {
			state.CompletedOn = *l.CompletedOn
		}
		return state
	case l.Cancelled:
		return CancelledState{Reason: deref(l.CancelReason)}
	case strings.TrimSpace(deref(l.RescheduleReason)) != "":
		return RescheduledState{Reason: strings.TrimSpace(*l.RescheduleReason)}
	default:
		return PlannedState{}
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// LessonChange is the outcome of a transition: the target state plus any move in date or time.
type LessonChange struct {
	State LessonState
	Date  string
	Time  string
}

// Apply returns a copy of l with the change applied to its flat fields.
func (c LessonChange) Apply(l Lesson) Lesson {
	switch state := c.State.(type) {
	case CompletedState:
		l.Completed = true
		l.Cancelled = false
		l.RescheduleReason = nil
		l.CancelReason = nil
		l.Notes = strPtr(state.Notes)
		l.Homework = strPtr(state.Homework)
		l.CompletedOn = strPtr(state.CompletedOn)
		l.CompletedOnSet = true
	case CancelledState:
		l.Completed = false
		l.Cancelled = true
		l.RescheduleReason = nil
		l.CancelReason = strPtr(state.Reason)
		l.CompletedOn = nil
		l.CompletedOnSet = true
	case RescheduledState:
		l.Completed = false
		l.Cancelled = false
		l.RescheduleReason = strPtr(state.Reason)
		l.CompletedOn = nil
		l.CompletedOnSet = true
	case PlannedState:
		l.Completed = false
		l.Cancelled = false
		l.CompletedOn = nil
		l.CompletedOnSet = true
	}
	if c.Date != "" {
		l.Date = c.Date
	}
	if c.Time != "" {
		l.Time = c.Time
	}
	l.DeriveStatus()
	return l
}

func strPtr(value string) *string {
	return &value
}
