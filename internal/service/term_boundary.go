package service

import (
	"strings"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

// TermEnd returns the last day of the term containing d.
// Spring runs January to June 30; autumn runs July to December 20; anything later rolls into next spring.
func TermEnd(d time.Time) time.Time {
	year, month, day := d.Date()
	switch {
	case month <= time.June:
		return time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
	case month < time.December || day <= 20:
		return time.Date(year, time.December, 20, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year+1, time.June, 30, 0, 0, 0, 0, time.UTC)
	}
}

// TermEndFor parses a YYYY-MM-DD date and returns its term end.
func TermEndFor(raw string) (time.Time, error) {
	d, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return TermEnd(d), nil
}

// ParseDate parses a calendar date, failing with INVALID_DATE.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, "invalid calendar date: "+raw)
	}
	return d, nil
}
