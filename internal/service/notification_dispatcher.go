package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

// Notification kinds used as metric labels.
const (
	NotificationScheduling   = "scheduling_summary"
	NotificationLessonReport = "lesson_report"
)

// NotificationDispatcher posts JSON documents to automation webhooks. It neither retries nor queues.
type NotificationDispatcher struct {
	client  *http.Client
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationDispatcher constructs a dispatcher with the given per-call timeout.
func NewNotificationDispatcher(timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// Dispatch delivers payload to endpoint; any transport error or non-2xx answer is an EXTERNAL_SERVICE_ERROR.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, kind, endpoint string, payload interface{}) error {
	if strings.TrimSpace(endpoint) == "" {
		return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("no webhook configured for %s", kind))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid webhook endpoint")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.metrics.RecordNotification(kind, false)
		d.logger.Warn("notification dispatch failed", zap.String("kind", kind), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "notification endpoint unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.metrics.RecordNotification(kind, false)
		d.logger.Warn("notification rejected",
			zap.String("kind", kind),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)),
		)
		return appErrors.New(appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, fmt.Sprintf("notification endpoint responded %d", resp.StatusCode))
	}

	d.metrics.RecordNotification(kind, true)
	d.logger.Debug("notification delivered", zap.String("kind", kind), zap.Duration("latency", time.Since(start)))
	return nil
}
