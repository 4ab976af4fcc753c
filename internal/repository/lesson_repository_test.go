package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

func TestLessonRepositoryFindByID(t *testing.T) {
	client := newFakeRecordClient()
	client.put("Lessons", recordstore.Record{ID: "recL1", Fields: recordstore.Fields{
		"Date":              "2024-09-09",
		"Time":              "14:00",
		"Student":           []interface{}{"recS1"},
		"Teacher":           []interface{}{"recT1"},
		"Reschedule Reason": "holiday",
		"Arrangement":       "45 minutes",
		"Completed On":      nil,
	}})
	repo := NewLessonRepository(client, "")

	lesson, err := repo.FindByID(context.Background(), "recL1")
	require.NoError(t, err)
	assert.Equal(t, "recS1", lesson.StudentID)
	assert.Equal(t, "recT1", lesson.TeacherID)
	assert.Equal(t, models.LessonStatusRescheduled, lesson.Status)
	require.NotNil(t, lesson.Arrangement)
	assert.Equal(t, models.Arrangement45, *lesson.Arrangement)
	assert.True(t, lesson.CompletedOnSet)
	assert.Nil(t, lesson.CompletedOn)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, recordstore.ErrNotFound))
}

func TestLessonRepositoryCreateBatch(t *testing.T) {
	client := newFakeRecordClient()
	repo := NewLessonRepository(client, "Lessons")
	arrangement := models.Arrangement60

	ids, err := repo.CreateBatch(context.Background(), []models.Lesson{
		{Date: "2024-09-02", Time: "14:00", StudentID: "recS1", TeacherID: "recT1", Arrangement: &arrangement},
		{Date: "2024-09-09", Time: "14:00", StudentID: "recS1", TeacherID: "recT1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, ids)
	require.Len(t, client.created, 1)
	assert.Equal(t, []string{"recS1"}, client.created[0][0]["Student"])
	assert.Equal(t, "60 min", client.created[0][0]["Arrangement"])
	assert.NotContains(t, client.created[0][1], "Arrangement")
}

func TestLessonRepositorySaveChangeWritesFullFieldSet(t *testing.T) {
	client := newFakeRecordClient()
	client.put("Lessons", recordstore.Record{ID: "recL1", Fields: recordstore.Fields{"Cancelled": true}})
	repo := NewLessonRepository(client, "Lessons")

	err := repo.SaveChange(context.Background(), "recL1", models.LessonChange{
		State: models.CompletedState{Notes: "ok", CompletedOn: "2024-09-09"},
	})
	require.NoError(t, err)

	fields := client.updated["recL1"]
	assert.Equal(t, true, fields["Completed"])
	assert.Equal(t, false, fields["Cancelled"])
	assert.Contains(t, fields, "Cancel Reason")
	assert.Nil(t, fields["Cancel Reason"])
	assert.Nil(t, fields["Reschedule Reason"])
	assert.Equal(t, "2024-09-09", fields["Completed On"])

	err = repo.SaveChange(context.Background(), "recL1", models.LessonChange{
		State: models.RescheduledState{Reason: "exam"},
		Date:  "2024-09-12",
		Time:  "10:00",
	})
	require.NoError(t, err)
	fields = client.updated["recL1"]
	assert.Equal(t, "exam", fields["Reschedule Reason"])
	assert.Equal(t, "2024-09-12", fields["Date"])
	assert.Equal(t, "10:00", fields["Time"])
	assert.Contains(t, fields, "Completed On")
	assert.Nil(t, fields["Completed On"])

	err = repo.SaveChange(context.Background(), "recL1", models.LessonChange{
		State: models.CompletedState{CompletedOn: "2024-09-12"},
	})
	require.NoError(t, err)
	err = repo.SaveChange(context.Background(), "recL1", models.LessonChange{
		State: models.CancelledState{Reason: "storm"},
	})
	require.NoError(t, err)
	fields = client.updated["recL1"]
	assert.Equal(t, true, fields["Cancelled"])
	assert.Equal(t, false, fields["Completed"])
	assert.Contains(t, fields, "Completed On")
	assert.Nil(t, fields["Completed On"])

	err = repo.SaveChange(context.Background(), "recL1", models.LessonChange{State: models.PlannedState{}})
	require.NoError(t, err)
	assert.Contains(t, client.updated["recL1"], "Completed On")
	assert.Nil(t, client.updated["recL1"]["Completed On"])

	err = repo.SaveChange(context.Background(), "missing", models.LessonChange{State: models.PlannedState{}})
	assert.True(t, errors.Is(err, recordstore.ErrNotFound))
}

func TestLessonRepositoryDeleteBatch(t *testing.T) {
	client := newFakeRecordClient()
	client.put("Lessons", recordstore.Record{ID: "recA", Fields: recordstore.Fields{}})
	repo := NewLessonRepository(client, "Lessons")

	deleted, err := repo.DeleteBatch(context.Background(), []string{"recA", "recB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"recA"}, deleted)
}

func TestLessonFormula(t *testing.T) {
	assert.Equal(t, "", lessonFormula(models.LessonFilter{}))
	assert.Equal(t, "{Teacher Record ID}='recT1'", lessonFormula(models.LessonFilter{TeacherID: "recT1"}))
	assert.Equal(t,
		"AND({Student Record ID}='recS1', NOT(IS_BEFORE({Date}, '2024-09-01')), NOT(IS_AFTER({Date}, '2024-12-20')))",
		lessonFormula(models.LessonFilter{StudentID: "recS1", From: "2024-09-01", To: "2024-12-20"}),
	)
}

func TestLessonRepositoryListPassesFilter(t *testing.T) {
	client := newFakeRecordClient()
	client.put("Lessons", recordstore.Record{ID: "recL1", Fields: recordstore.Fields{"Completed": true, "Teacher": []interface{}{"recT1"}}})
	repo := NewLessonRepository(client, "Lessons")

	lessons, err := repo.List(context.Background(), models.LessonFilter{TeacherID: "recT1"})
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, models.LessonStatusCompleted, lessons[0].Status)
	require.Len(t, client.listOpts, 1)
	assert.Equal(t, "{Teacher Record ID}='recT1'", client.listOpts[0].Filter)
}
