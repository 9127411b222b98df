package entry

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/presence-engine/presence"
)

const (
	metricEntryDecisions = "presence_entry_decisions_total"
	metricEntryDuration  = "presence_entry_duration_seconds"

	spanNameHandle = "presence.entry.handle"

	labelCommand   = "command"
	labelDecision  = "decision"
	labelEntryType = "entry_type"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"

	decisionAutoLogged        = "auto_logged"
	decisionManuallyConfirmed = "manually_confirmed"
	decisionRejected          = "rejected"
	decisionError             = "error"
)

func (p Policy) startSpan(ctx context.Context, command Command) (context.Context, presence.SpanContext) {
	if p.tracing == nil {
		return ctx, nil
	}

	return p.tracing.StartSpan(ctx, spanNameHandle, map[string]string{
		labelCommand:   command.CommandType(),
		labelEntryType: string(command.Type),
	})
}

// recordOutcome translates the handler result into the decision counter, the
// duration metric and the span status.
func (p Policy) recordOutcome(
	ctx context.Context,
	span presence.SpanContext,
	command Command,
	result Result,
	err error,
	duration time.Duration,
) {

	decision, status := classifyOutcome(result, err)

	if p.metrics != nil {
		labels := map[string]string{
			labelCommand:  command.CommandType(),
			labelDecision: decision,
		}

		if contextual, ok := p.metrics.(presence.ContextualMetricsCollector); ok {
			contextual.IncrementCounterContext(ctx, metricEntryDecisions, labels)
			contextual.RecordDurationContext(ctx, metricEntryDuration, duration, labels)
		} else {
			p.metrics.IncrementCounter(metricEntryDecisions, labels)
			p.metrics.RecordDuration(metricEntryDuration, duration, labels)
		}
	}

	if p.tracing != nil && span != nil {
		p.tracing.FinishSpan(span, status, map[string]string{labelDecision: decision})
	}
}

// classifyOutcome maps domain rejections to a rejected decision, so they are
// distinguishable from infrastructure errors in metrics and traces.
func classifyOutcome(result Result, err error) (decision string, status string) {
	if err == nil {
		if result.Event.AutoLogged {
			return decisionAutoLogged, statusSuccess
		}

		return decisionManuallyConfirmed, statusSuccess
	}

	var (
		validation presence.ValidationError
		conflict   presence.RecentEntryConflict
		inZone     presence.ExitStillInZone
		rejected   presence.ConfidenceRejected
	)

	if errors.As(err, &validation) || errors.As(err, &conflict) ||
		errors.As(err, &inZone) || errors.As(err, &rejected) {
		return decisionRejected, statusRejected
	}

	return decisionError, statusError
}
