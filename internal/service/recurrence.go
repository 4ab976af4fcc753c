package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts English day names, their short forms, or 0 (Sunday) through 6 (Saturday).
func ParseWeekday(raw string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if day, ok := weekdayNames[value]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("unrecognised weekday %q", raw)
}

// GenerateOccurrences expands a first lesson into the term's bookings.
// The anchor is always first; then every target weekday strictly after it, up to and including termEnd.
func GenerateOccurrences(first time.Time, firstTime string, weekday time.Weekday, recurringTime string, termEnd time.Time) []models.LessonOccurrence {
	first = civil(first)
	termEnd = civil(termEnd)

	occurrences := []models.LessonOccurrence{{Date: first.Format(models.DateLayout), Time: firstTime}}

	next := first.AddDate(0, 0, 1)
	offset := (int(weekday) - int(next.Weekday()) + 7) % 7
	for day := next.AddDate(0, 0, offset); !day.After(termEnd); day = day.AddDate(0, 0, 7) {
		occurrences = append(occurrences, models.LessonOccurrence{Date: day.Format(models.DateLayout), Time: recurringTime})
	}
	return occurrences
}

func civil(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
