package postgresengine

import (
	"context"
	"strconv"
	"time"

	"github.com/openshelf/presence-engine/presence"
)

const (
	metricQueryDuration = "presence_store_query_duration_seconds"
	metricExecDuration  = "presence_store_exec_duration_seconds"
	metricStoreErrors   = "presence_store_errors_total"

	spanNameQuery = "presence.store.query"
	spanNameExec  = "presence.store.exec"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeQuery = "query_failed"
	errorTypeExec  = "exec_failed"

	spanAttrDurationMS = "duration_ms"
)

func operationLabels(action string, status string) map[string]string {
	return map[string]string{
		labelOperation: action,
		labelStatus:    status,
	}
}

func statusFor(err error) string {
	if err != nil {
		return statusError
	}

	return statusSuccess
}

// recordDurationMetrics prefers the context-aware collector methods when the
// configured collector implements them, so metrics correlate with active spans.
func (s *Store) recordDurationMetrics(
	ctx context.Context,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {

	if s.metrics == nil {
		return
	}

	if contextual, ok := s.metrics.(presence.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	s.metrics.RecordDuration(metric, duration, labels)
}

func (s *Store) recordErrorMetrics(ctx context.Context, action string, errorType string) {
	if s.metrics == nil {
		return
	}

	labels := map[string]string{
		labelOperation: action,
		labelErrorType: errorType,
	}

	if contextual, ok := s.metrics.(presence.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metricStoreErrors, labels)
		return
	}

	s.metrics.IncrementCounter(metricStoreErrors, labels)
}

func (s *Store) startSpan(ctx context.Context, name string, action string) (context.Context, presence.SpanContext) {
	if s.tracing == nil {
		return ctx, nil
	}

	return s.tracing.StartSpan(ctx, name, map[string]string{labelOperation: action})
}

func (s *Store) finishSpan(span presence.SpanContext, status string, duration time.Duration) {
	if s.tracing == nil || span == nil {
		return
	}

	s.tracing.FinishSpan(span, status, map[string]string{
		spanAttrDurationMS: strconv.FormatFloat(durationToMilliseconds(duration), 'f', 3, 64),
	})
}

// logQueryWithDuration routes to the contextual logger when one is configured,
// falling back to the plain logger.
func (s *Store) logQueryWithDuration(ctx context.Context, action string, sqlQuery string, duration time.Duration) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)

	case s.logger != nil:
		s.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (s *Store) logDBError(ctx context.Context, msg string, err error, sqlQuery string) {
	switch {
	case s.contextualLogger != nil:
		s.contextualLogger.ErrorContext(ctx, msg, logAttrError, err.Error(), logAttrQuery, sqlQuery)

	case s.logger != nil:
		s.logger.Error(msg, logAttrError, err.Error(), logAttrQuery, sqlQuery)
	}
}
