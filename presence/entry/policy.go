package entry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const (
	// WarningOutsideLibraryHours flags a request made outside the configured
	// open/close hours. The check never rejects.
	WarningOutsideLibraryHours = "outside_library_hours"

	logMsgEntryDecision = "entry event decided"
	logAttrUserID       = "user_id"
	logAttrEntryType    = "entry_type"
	logAttrTotalScore   = "total_score"
	logAttrAutoLogged   = "auto_logged"
)

// ErrInvalidEntryType is returned for a command whose type is neither entry nor exit.
var ErrInvalidEntryType = errors.New("entry type must be entry or exit")

// EventLog is the persistent collaborator the policy reads prior events from
// and appends decided events to. Implemented by postgresengine.Store.
type EventLog interface {
	LatestEntryEventForUser(ctx context.Context, userID uuid.UUID) (*presence.EntryEvent, error)
	AppendEntryEvent(ctx context.Context, event presence.EntryEvent) error
}

// Result is the outcome of a logged entry/exit: the appended event, its
// confidence breakdown, and any non-blocking warnings.
type Result struct {
	Event      presence.EntryEvent
	Confidence presence.Confidence
	Warnings   []string
}

// Policy decides whether a reported entry/exit is trustworthy enough to
// record automatically, requires manual confirmation, or must be rejected.
type Policy struct {
	settings presence.SettingsReader
	eventLog EventLog
	scorer   presence.Scorer
	logger   presence.Logger
	metrics  presence.MetricsCollector
	tracing  presence.TracingCollector
	now      func() time.Time
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger for the Policy.
func WithLogger(logger presence.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector for the Policy. Every handled command
// increments a decision counter and records its duration, labeled by command
// type and decision.
func WithMetrics(collector presence.MetricsCollector) Option {
	return func(p *Policy) {
		p.metrics = collector
	}
}

// WithTracing sets the tracing collector for the Policy. Each handled command
// runs inside a span carrying the command type and entry type.
func WithTracing(collector presence.TracingCollector) Option {
	return func(p *Policy) {
		p.tracing = collector
	}
}

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		p.now = now
	}
}

// NewPolicy creates an entry policy over the given settings source and event log.
func NewPolicy(settings presence.SettingsReader, eventLog EventLog, options ...Option) Policy {
	p := Policy{
		settings: settings,
		eventLog: eventLog,
		scorer:   presence.NewScorer(settings),
		now:      time.Now,
	}

	for _, option := range options {
		option(&p)
	}

	return p
}

// Handle runs the gate sequence for one request:
//
//  1. library-hours check, producing a warning flag only
//  2. per-user debounce against the most recent event
//  3. for exits, geofence validation against the outer radius
//  4. confidence scoring
//  5. decision against the auto threshold, then append
//
// ManualConfirm overrides gates 2, 3 and 5. A confirmed request is logged
// regardless of how far below the manual threshold the score is; the manual
// floor is advisory (see the config key entry_manual_threshold).
func (p Policy) Handle(ctx context.Context, command Command) (Result, error) {
	spanCtx, span := p.startSpan(ctx, command)

	start := time.Now()
	result, err := p.handle(spanCtx, command)
	duration := time.Since(start)

	p.recordOutcome(spanCtx, span, command, result, err, duration)

	return result, err
}

func (p Policy) handle(ctx context.Context, command Command) (Result, error) {
	if command.Type != presence.EntryTypeEntry && command.Type != presence.EntryTypeExit {
		return Result{}, presence.ValidationError{Field: "entryType", Reason: ErrInvalidEntryType.Error()}
	}

	occurredAt := command.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = presence.ToOccurredAt(p.now())
	}

	var warnings []string
	if !p.isWithinLibraryHours(ctx, occurredAt) {
		warnings = append(warnings, WarningOutsideLibraryHours)
	}

	lastEvent, readErr := p.eventLog.LatestEntryEventForUser(ctx, command.UserID)
	if readErr != nil {
		return Result{}, readErr
	}

	if rejection := p.checkRecentEntry(ctx, command, lastEvent, occurredAt); rejection != nil {
		return Result{}, rejection
	}

	if command.Type == presence.EntryTypeExit {
		if rejection := p.validateExit(ctx, command, lastEvent); rejection != nil {
			return Result{}, rejection
		}
	}

	confidence := p.scorer.Score(ctx, command.Coordinate, command.WiFiSSID, command.SpeedKmh)

	autoLogged, rejection := p.decide(ctx, command, confidence)
	if rejection != nil {
		return Result{}, rejection
	}

	event := presence.EntryEvent{
		UserID:            command.UserID,
		Type:              command.Type,
		Coordinate:        command.Coordinate,
		WiFiSSID:          command.WiFiSSID,
		SpeedKmh:          command.SpeedKmh,
		Confidence:        confidence,
		AutoLogged:        autoLogged,
		ManuallyConfirmed: command.ManualConfirm,
		OccurredAt:        occurredAt,
	}

	if appendErr := p.eventLog.AppendEntryEvent(ctx, event); appendErr != nil {
		return Result{}, appendErr
	}

	if p.logger != nil {
		p.logger.Info(logMsgEntryDecision,
			logAttrUserID, command.UserID.String(),
			logAttrEntryType, string(command.Type),
			logAttrTotalScore, confidence.Total,
			logAttrAutoLogged, autoLogged,
		)
	}

	return Result{Event: event, Confidence: confidence, Warnings: warnings}, nil
}

// isWithinLibraryHours compares the request hour against the configured
// open/close hours. Non-blocking: callers only get a warning flag.
func (p Policy) isWithinLibraryHours(ctx context.Context, occurredAt time.Time) bool {
	openHour := int(p.settings.Number(ctx, presence.KeyLibraryOpenHour, presence.DefaultLibraryOpenHour))
	closeHour := int(p.settings.Number(ctx, presence.KeyLibraryCloseHour, presence.DefaultLibraryCloseHour))

	hour := occurredAt.Hour()

	return hour >= openHour && hour < closeHour
}

// checkRecentEntry rejects a request that falls inside the per-user debounce
// window, unless the caller confirmed manually.
func (p Policy) checkRecentEntry(
	ctx context.Context,
	command Command,
	lastEvent *presence.EntryEvent,
	occurredAt time.Time,
) error {

	if lastEvent == nil || command.ManualConfirm {
		return nil
	}

	debounceMinutes := int(p.settings.Number(ctx, presence.KeyEntryDebounceMinutes, presence.DefaultEntryDebounceMinutes))
	elapsed := occurredAt.Sub(lastEvent.OccurredAt)

	if elapsed < time.Duration(debounceMinutes)*time.Minute {
		return presence.RecentEntryConflict{
			MinutesSince:   int(elapsed.Minutes()),
			DebounceWindow: debounceMinutes,
			LastEvent: presence.EntryEventSummary{
				Type:       lastEvent.Type,
				OccurredAt: lastEvent.OccurredAt,
				AutoLogged: lastEvent.AutoLogged,
			},
		}
	}

	return nil
}

// validateExit checks that an exit happens outside the outer geofence. An
// exit with no prior event, or chained after another exit, is valid as is
// (idempotent chaining).
func (p Policy) validateExit(ctx context.Context, command Command, lastEvent *presence.EntryEvent) error {
	if lastEvent == nil || lastEvent.Type == presence.EntryTypeExit {
		return nil
	}

	center := presence.Coordinate{
		Latitude:  p.settings.Number(ctx, presence.KeyGPSLibraryLat, presence.DefaultGPSLibraryLat),
		Longitude: p.settings.Number(ctx, presence.KeyGPSLibraryLng, presence.DefaultGPSLibraryLng),
	}
	outerMeters := p.settings.Number(ctx, presence.KeyGPSOuterZoneMeters, presence.DefaultGPSOuterZoneMeters)

	distanceMeters := presence.DistanceMeters(command.Coordinate, center)

	if distanceMeters <= outerMeters && !command.ManualConfirm {
		return presence.ExitStillInZone{
			DistanceMeters:   distanceMeters,
			RequiredDistance: outerMeters,
		}
	}

	return nil
}

// decide applies the thresholds to the total score. Returns whether the event
// is auto-logged, or the rejection when neither threshold nor confirmation
// allows logging.
func (p Policy) decide(ctx context.Context, command Command, confidence presence.Confidence) (bool, error) {
	autoThreshold := int(p.settings.Number(ctx, presence.KeyEntryConfidenceThreshold, presence.DefaultEntryConfidenceThreshold))
	manualThreshold := int(p.settings.Number(ctx, presence.KeyEntryManualThreshold, presence.DefaultEntryManualThreshold))

	if confidence.Total >= autoThreshold {
		return true, nil
	}

	if command.ManualConfirm {
		return false, nil
	}

	return false, presence.ConfidenceRejected{
		Confidence:      confidence,
		AutoThreshold:   autoThreshold,
		ManualThreshold: manualThreshold,
	}
}
