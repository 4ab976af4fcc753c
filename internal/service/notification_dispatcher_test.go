package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

func TestNotificationDispatcherDelivers(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	metrics := NewMetricsService()
	dispatcher := NewNotificationDispatcher(time.Second, metrics, nil)
	err := dispatcher.Dispatch(context.Background(), NotificationScheduling, server.URL, map[string]string{"event": "lessons.scheduled"})
	require.NoError(t, err)
	assert.Equal(t, "lessons.scheduled", received["event"])
	assert.Zero(t, metrics.Snapshot().NotificationFailures)
}

func TestNotificationDispatcherFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	metrics := NewMetricsService()
	dispatcher := NewNotificationDispatcher(time.Second, metrics, nil)

	err := dispatcher.Dispatch(context.Background(), NotificationScheduling, server.URL, map[string]string{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExternalService.Code))

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := unreachable.URL
	unreachable.Close()
	err = dispatcher.Dispatch(context.Background(), NotificationScheduling, url, map[string]string{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExternalService.Code))

	err = dispatcher.Dispatch(context.Background(), NotificationLessonReport, "", map[string]string{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConfiguration.Code))

	assert.EqualValues(t, 2, metrics.Snapshot().NotificationFailures)
}
