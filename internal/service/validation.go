package service

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// NewValidator returns a validator aware of the lesson payload formats.
func NewValidator() *validator.Validate {
	validate := validator.New()
	registerLessonValidations(validate)
	return validate
}

func registerLessonValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := ParseWeekday(fl.Field().String())
		return err == nil
	})
}

func ensureValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		return NewValidator()
	}
	registerLessonValidations(validate)
	return validate
}

// NormalizeClock pads "9:05" to "09:05".
func NormalizeClock(raw string) string {
	if len(raw) == 4 && raw[1] == ':' {
		return "0" + raw
	}
	return raw
}
