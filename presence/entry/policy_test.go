package entry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/presence-engine/presence"
	"github.com/openshelf/presence-engine/presence/entry"
	"github.com/openshelf/presence-engine/testutil/helper"
)

type eventLogStub struct {
	lastEvent *presence.EntryEvent
	readErr   error
	appendErr error
	appended  []presence.EntryEvent
}

func (l *eventLogStub) LatestEntryEventForUser(_ context.Context, _ uuid.UUID) (*presence.EntryEvent, error) {
	if l.readErr != nil {
		return nil, l.readErr
	}

	return l.lastEvent, nil
}

func (l *eventLogStub) AppendEntryEvent(_ context.Context, event presence.EntryEvent) error {
	if l.appendErr != nil {
		return l.appendErr
	}

	l.appended = append(l.appended, event)

	return nil
}

func ptrString(s string) *string  { return &s }
func ptrFloat(f float64) *float64 { return &f }

// withinHours is a weekday morning inside the default 8-22 window.
var withinHours = time.Date(2025, 6, 16, 10, 30, 0, 0, time.UTC)

func strongSignalsCommand(userID uuid.UUID, entryType presence.EntryType) entry.Command {
	return entry.BuildCommand(
		userID,
		entryType,
		helper.DefaultLibraryCenter(),
		ptrString(presence.DefaultLibraryWiFiSSID),
		ptrFloat(2),
		false,
		withinHours,
	)
}

func givenPriorEntry(occurredAt time.Time) *presence.EntryEvent {
	return &presence.EntryEvent{
		Type:       presence.EntryTypeEntry,
		Coordinate: helper.DefaultLibraryCenter(),
		AutoLogged: true,
		OccurredAt: presence.ToOccurredAt(occurredAt),
	}
}

func Test_Handle_StrongSignals_AutoLogsEntry(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 100, result.Confidence.Total)
	assert.True(t, result.Event.AutoLogged)
	assert.False(t, result.Event.ManuallyConfirmed)
	assert.Empty(t, result.Warnings)
	require.Len(t, eventLog.appended, 1)
	assert.Equal(t, command.UserID, eventLog.appended[0].UserID)
}

func Test_Handle_InvalidEntryType_RejectsWithoutSideEffects(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryType("loiter"))

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	var validationErr presence.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "entryType", validationErr.Field)
	assert.Empty(t, eventLog.appended)
}

func Test_Handle_WeakSignals_RejectsWithConfidenceBreakdown(t *testing.T) {
	// arrange - far from the library, wrong network, moving fast
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeEntry,
		helper.CoordinateNorthOf(helper.DefaultLibraryCenter(), 500),
		ptrString("CoffeeShop-Guest"),
		ptrFloat(12),
		false,
		withinHours,
	)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	var rejection presence.ConfidenceRejected
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, 0, rejection.Confidence.Total)
	assert.Equal(t, 80, rejection.AutoThreshold)
	assert.Equal(t, 50, rejection.ManualThreshold)
	assert.Empty(t, eventLog.appended)
}

func Test_Handle_WeakSignalsWithManualConfirm_LogsWithoutAutoFlag(t *testing.T) {
	// arrange - score far below the manual threshold; confirmation still logs
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeEntry,
		helper.CoordinateNorthOf(helper.DefaultLibraryCenter(), 500),
		nil,
		nil,
		true,
		withinHours,
	)

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.False(t, result.Event.AutoLogged)
	assert.True(t, result.Event.ManuallyConfirmed)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_WithinDebounceWindow_RejectsWithConflictDetails(t *testing.T) {
	// arrange - prior entry 2 minutes ago, default window is 5 minutes
	lastAt := withinHours.Add(-2 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	var conflict presence.RecentEntryConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.MinutesSince)
	assert.Equal(t, 5, conflict.DebounceWindow)
	assert.Equal(t, presence.EntryTypeEntry, conflict.LastEvent.Type)
	assert.Empty(t, eventLog.appended)
}

func Test_Handle_AfterDebounceWindow_Logs(t *testing.T) {
	// arrange - prior entry 6 minutes ago, outside the 5 minute window
	lastAt := withinHours.Add(-6 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_ExactlyAtDebounceWindow_Logs(t *testing.T) {
	// arrange - prior entry exactly 5 minutes ago; the window is exclusive
	lastAt := withinHours.Add(-5 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_ManualConfirmOverridesDebounce(t *testing.T) {
	// arrange
	lastAt := withinHours.Add(-1 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeEntry,
		helper.DefaultLibraryCenter(),
		ptrString(presence.DefaultLibraryWiFiSSID),
		ptrFloat(2),
		true,
		withinHours,
	)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_ExitStillInsideGeofence_Rejects(t *testing.T) {
	// arrange - prior entry exists, exit reported 30m from center (inside the 50m outer radius)
	lastAt := withinHours.Add(-30 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeExit,
		helper.CoordinateNorthOf(helper.DefaultLibraryCenter(), 30),
		ptrString(presence.DefaultLibraryWiFiSSID),
		ptrFloat(2),
		false,
		withinHours,
	)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	var stillInZone presence.ExitStillInZone
	require.ErrorAs(t, err, &stillInZone)
	assert.InDelta(t, 30, stillInZone.DistanceMeters, 1)
	assert.Equal(t, float64(50), stillInZone.RequiredDistance)
	assert.Empty(t, eventLog.appended)
}

func Test_Handle_ExitBeyondGeofence_NeedsManualConfirm(t *testing.T) {
	// arrange - 500m out: geofence check passes but GPS scores zero, so only a
	// confirmed exit makes it through
	lastAt := withinHours.Add(-30 * time.Minute)
	eventLog := &eventLogStub{lastEvent: givenPriorEntry(lastAt)}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeExit,
		helper.CoordinateNorthOf(helper.DefaultLibraryCenter(), 500),
		nil,
		nil,
		true,
		withinHours,
	)

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.Equal(t, presence.EntryTypeExit, result.Event.Type)
	assert.False(t, result.Event.AutoLogged)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_ExitWithNoPriorEvent_SkipsGeofenceCheck(t *testing.T) {
	// arrange - no history at all; exit from the library center is accepted
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeExit)

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.True(t, result.Event.AutoLogged)
}

func Test_Handle_ExitAfterExit_SkipsGeofenceCheck(t *testing.T) {
	// arrange - idempotent chaining: a second exit is valid wherever it is reported
	priorExit := &presence.EntryEvent{
		Type:       presence.EntryTypeExit,
		Coordinate: helper.DefaultLibraryCenter(),
		OccurredAt: presence.ToOccurredAt(withinHours.Add(-30 * time.Minute)),
	}
	eventLog := &eventLogStub{lastEvent: priorExit}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeExit)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_OutsideLibraryHours_WarnsButLogs(t *testing.T) {
	// arrange - 23:30, past the default close hour of 22
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	lateNight := time.Date(2025, 6, 16, 23, 30, 0, 0, time.UTC)
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeEntry,
		helper.DefaultLibraryCenter(),
		ptrString(presence.DefaultLibraryWiFiSSID),
		ptrFloat(2),
		false,
		lateNight,
	)

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.Contains(t, result.Warnings, entry.WarningOutsideLibraryHours)
	require.Len(t, eventLog.appended, 1)
}

func Test_Handle_ZeroOccurredAt_DefaultsToClock(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{}
	policy := entry.NewPolicy(
		helper.NewSettingsStub(),
		eventLog,
		entry.WithClock(func() time.Time { return withinHours }),
	)
	command := entry.Command{
		UserID:     helper.GivenUniqueID(t),
		Type:       presence.EntryTypeEntry,
		Coordinate: helper.DefaultLibraryCenter(),
		WiFiSSID:   ptrString(presence.DefaultLibraryWiFiSSID),
		SpeedKmh:   ptrFloat(2),
	}

	// act
	result, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.Equal(t, presence.ToOccurredAt(withinHours), result.Event.OccurredAt)
}

func Test_Handle_EventLogReadFailure_PropagatesError(t *testing.T) {
	// arrange
	readErr := errors.New("connection refused")
	eventLog := &eventLogStub{readErr: readErr}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	assert.ErrorIs(t, err, readErr)
}

func Test_Handle_AppendFailure_PropagatesError(t *testing.T) {
	// arrange
	appendErr := errors.New("connection refused")
	eventLog := &eventLogStub{appendErr: appendErr}
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog)
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	assert.ErrorIs(t, err, appendErr)
}

func Test_Handle_DecisionIsLogged(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{}
	loggerSpy := helper.NewLoggerSpy()
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog, entry.WithLogger(loggerSpy))
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.True(t, loggerSpy.HasMessage(helper.LevelInfo, "entry event decided"))
}

func Test_Handle_AutoLoggedEntry_RecordsDecisionMetricsAndSpan(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{}
	metricsSpy := helper.NewMetricsCollectorSpy()
	tracingSpy := helper.NewTracingCollectorSpy()
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog,
		entry.WithMetrics(metricsSpy), entry.WithTracing(tracingSpy))
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.True(t, metricsSpy.HasCounterRecord("presence_entry_decisions_total",
		map[string]string{"command": "LogEntryEvent", "decision": "auto_logged"}))
	assert.True(t, metricsSpy.HasDurationRecord("presence_entry_duration_seconds",
		map[string]string{"command": "LogEntryEvent", "decision": "auto_logged"}))
	span := tracingSpy.SpanRecordFor("presence.entry.handle")
	require.NotNil(t, span)
	assert.Equal(t, "success", span.Status)
	assert.Equal(t, "LogEntryEvent", span.StartAttributes["command"])
	assert.Equal(t, "entry", span.StartAttributes["entry_type"])
}

func Test_Handle_ConfidenceRejection_RecordsRejectedDecision(t *testing.T) {
	// arrange - far from the library, wrong network, moving fast
	eventLog := &eventLogStub{}
	metricsSpy := helper.NewMetricsCollectorSpy()
	tracingSpy := helper.NewTracingCollectorSpy()
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog,
		entry.WithMetrics(metricsSpy), entry.WithTracing(tracingSpy))
	command := entry.BuildCommand(
		helper.GivenUniqueID(t),
		presence.EntryTypeEntry,
		helper.CoordinateNorthOf(helper.DefaultLibraryCenter(), 500),
		ptrString("Cafe-Guest"),
		ptrFloat(25),
		false,
		withinHours,
	)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	var rejected presence.ConfidenceRejected
	require.ErrorAs(t, err, &rejected)
	assert.True(t, metricsSpy.HasCounterRecord("presence_entry_decisions_total",
		map[string]string{"command": "LogEntryEvent", "decision": "rejected"}))
	assert.True(t, tracingSpy.HasSpanRecord("presence.entry.handle", "rejected"))
}

func Test_Handle_EventLogFailure_RecordsErrorOutcome(t *testing.T) {
	// arrange
	eventLog := &eventLogStub{readErr: errors.New("connection refused")}
	metricsSpy := helper.NewMetricsCollectorSpy()
	tracingSpy := helper.NewTracingCollectorSpy()
	policy := entry.NewPolicy(helper.NewSettingsStub(), eventLog,
		entry.WithMetrics(metricsSpy), entry.WithTracing(tracingSpy))
	command := strongSignalsCommand(helper.GivenUniqueID(t), presence.EntryTypeEntry)

	// act
	_, err := policy.Handle(context.Background(), command)

	// assert
	require.Error(t, err)
	assert.True(t, metricsSpy.HasCounterRecord("presence_entry_decisions_total",
		map[string]string{"command": "LogEntryEvent", "decision": "error"}))
	assert.True(t, tracingSpy.HasSpanRecord("presence.entry.handle", "error"))
}
