package location

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/presence-engine/presence"
)

const (
	metricScanResults  = "presence_scan_results_total"
	metricScanDuration = "presence_scan_duration_seconds"

	spanNameScan = "presence.location.scan"

	labelCommand = "command"
	labelResult  = "result"
	labelMode    = "mode"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"

	resultRecorded  = "recorded"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultError     = "error"
)

func (r *Resolver) startSpan(ctx context.Context, mode Mode, command Command) (context.Context, presence.SpanContext) {
	if r.tracing == nil {
		return ctx, nil
	}

	return r.tracing.StartSpan(ctx, spanNameScan, map[string]string{
		labelCommand: command.CommandType(),
		labelMode:    string(mode),
	})
}

// recordOutcome translates the scan result into the result counter, the
// duration metric and the span status. Suppressed duplicates count as their
// own result so repeat-scan rates stay visible.
func (r *Resolver) recordOutcome(
	ctx context.Context,
	span presence.SpanContext,
	mode Mode,
	command Command,
	result Result,
	err error,
	duration time.Duration,
) {

	outcome, status := classifyOutcome(result, err)

	if r.metrics != nil {
		labels := map[string]string{
			labelCommand: command.CommandType(),
			labelMode:    string(mode),
			labelResult:  outcome,
		}

		if contextual, ok := r.metrics.(presence.ContextualMetricsCollector); ok {
			contextual.IncrementCounterContext(ctx, metricScanResults, labels)
			contextual.RecordDurationContext(ctx, metricScanDuration, duration, labels)
		} else {
			r.metrics.IncrementCounter(metricScanResults, labels)
			r.metrics.RecordDuration(metricScanDuration, duration, labels)
		}
	}

	if r.tracing != nil && span != nil {
		r.tracing.FinishSpan(span, status, map[string]string{labelResult: outcome})
	}
}

// classifyOutcome maps validation failures and unknown lookups to a rejected
// result, so they are distinguishable from infrastructure errors.
func classifyOutcome(result Result, err error) (outcome string, status string) {
	if err == nil {
		if result.IsDuplicate {
			return resultDuplicate, statusSuccess
		}

		return resultRecorded, statusSuccess
	}

	var (
		validation presence.ValidationError
		notFound   presence.NotFoundError
	)

	if errors.As(err, &validation) || errors.As(err, &notFound) {
		return resultRejected, statusRejected
	}

	return resultError, statusError
}
