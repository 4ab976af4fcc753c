package service

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type transitionFunc func(current models.Lesson, req dto.TransitionLessonRequest, today string) (models.LessonChange, error)

var lessonTransitions = map[dto.LessonTransition]transitionFunc{
	dto.TransitionCompleted:   planCompleted,
	dto.TransitionRescheduled: planRescheduled,
	dto.TransitionCancelled:   planCancelled,
}

// ValidateTransition checks the parts of a transition request that do not depend on the stored lesson.
func ValidateTransition(req dto.TransitionLessonRequest) error {
	switch req.Transition {
	case dto.TransitionCompleted:
		return nil
	case dto.TransitionRescheduled:
		newDate := strings.TrimSpace(req.NewDate)
		if newDate == "" {
			return transitionError("newDate is required to reschedule")
		}
		if _, err := ParseDate(newDate); err != nil {
			return err
		}
		if strings.TrimSpace(req.Reason) == "" {
			return transitionError("reason is required to reschedule")
		}
		return nil
	case dto.TransitionCancelled:
		if strings.TrimSpace(req.Reason) == "" {
			return transitionError("reason is required to cancel")
		}
		return nil
	default:
		return transitionError(fmt.Sprintf("unsupported transition %q", req.Transition))
	}
}

// PlanTransition computes the change a transition makes to a lesson without persisting it.
// Any current state may be left, including completed and cancelled.
func PlanTransition(current models.Lesson, req dto.TransitionLessonRequest, today string) (models.LessonChange, error) {
	if err := ValidateTransition(req); err != nil {
		return models.LessonChange{}, err
	}
	return lessonTransitions[req.Transition](current, req, today)
}

func planCompleted(_ models.Lesson, req dto.TransitionLessonRequest, today string) (models.LessonChange, error) {
	return models.LessonChange{State: models.CompletedState{
		Notes:       optional(req.Notes),
		Homework:    optional(req.Homework),
		CompletedOn: today,
	}}, nil
}

func planRescheduled(current models.Lesson, req dto.TransitionLessonRequest, _ string) (models.LessonChange, error) {
	newTime := strings.TrimSpace(req.NewTime)
	if newTime == "" {
		newTime = current.Time
	}
	return models.LessonChange{
		State: models.RescheduledState{Reason: strings.TrimSpace(req.Reason)},
		Date:  strings.TrimSpace(req.NewDate),
		Time:  NormalizeClock(newTime),
	}, nil
}

func planCancelled(_ models.Lesson, req dto.TransitionLessonRequest, _ string) (models.LessonChange, error) {
	reason := strings.TrimSpace(req.Reason)
	if by := strings.TrimSpace(req.CancelledBy); by != "" {
		reason = by + ": " + reason
	}
	return models.LessonChange{State: models.CancelledState{Reason: reason}}, nil
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func transitionError(message string) error {
	return appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
