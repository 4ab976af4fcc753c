package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
)

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, raw)
	require.NoError(t, err)
	return d
}

func TestGenerateOccurrencesMondayTerm(t *testing.T) {
	occurrences := GenerateOccurrences(mustDate(t, "2024-09-02"), "14:00", time.Monday, "14:00", mustDate(t, "2024-12-20"))

	require.Len(t, occurrences, 16)
	assert.Equal(t, models.LessonOccurrence{Date: "2024-09-02", Time: "14:00"}, occurrences[0])
	assert.Equal(t, "2024-09-09", occurrences[1].Date)
	assert.Equal(t, "2024-09-16", occurrences[2].Date)
	assert.Equal(t, "2024-12-16", occurrences[len(occurrences)-1].Date)
}

func TestGenerateOccurrencesWeeklySpacing(t *testing.T) {
	anchor := mustDate(t, "2024-09-04")
	termEnd := TermEnd(anchor)
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		occurrences := GenerateOccurrences(anchor, "10:00", weekday, "16:30", termEnd)
		require.NotEmpty(t, occurrences)
		assert.Equal(t, models.LessonOccurrence{Date: "2024-09-04", Time: "10:00"}, occurrences[0])

		prev := anchor
		for i, occ := range occurrences[1:] {
			day := mustDate(t, occ.Date)
			assert.Equal(t, weekday, day.Weekday())
			assert.True(t, day.After(prev))
			assert.False(t, day.After(termEnd))
			assert.Equal(t, "16:30", occ.Time)
			if i > 0 {
				assert.Equal(t, 7*24*time.Hour, day.Sub(prev))
			}
			prev = day
		}
	}
}

func TestGenerateOccurrencesAnchorOnly(t *testing.T) {
	occurrences := GenerateOccurrences(mustDate(t, "2024-12-20"), "09:00", time.Friday, "09:00", mustDate(t, "2024-12-20"))
	assert.Equal(t, []models.LessonOccurrence{{Date: "2024-12-20", Time: "09:00"}}, occurrences)
}

func TestGenerateOccurrencesDifferentWeekday(t *testing.T) {
	occurrences := GenerateOccurrences(mustDate(t, "2024-09-03"), "15:00", time.Monday, "17:00", mustDate(t, "2024-09-30"))
	dates := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		dates = append(dates, occ.Date)
	}
	assert.Equal(t, []string{"2024-09-03", "2024-09-09", "2024-09-16", "2024-09-23", "2024-09-30"}, dates)
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"Monday": time.Monday,
		"tue":    time.Tuesday,
		" SAT ":  time.Saturday,
		"0":      time.Sunday,
		"6":      time.Saturday,
	}
	for input, expected := range cases {
		day, err := ParseWeekday(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, day, input)
	}

	for _, input := range []string{"", "7", "someday"} {
		_, err := ParseWeekday(input)
		assert.Error(t, err, input)
	}
}
