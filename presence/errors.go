package presence

import (
	"errors"
	"fmt"
	"time"
)

// Infrastructure sentinels. Unexpected I/O failures are joined with one of
// these and propagate to the surrounding request handler unmodified; no retry
// logic lives in this engine.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed   = errors.New("building sql query failed")
	ErrQueryingFailed        = errors.New("database query execution failed")
	ErrExecFailed            = errors.New("database statement execution failed")
	ErrScanningRowFailed     = errors.New("scanning database row failed")
)

// ValidationError reports a missing or malformed request field. Nothing has
// been written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown tag, book, shelf, or an unknown or
// inactive reader.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// EntryEventSummary is the caller-facing summary of a prior entry event,
// carried inside RecentEntryConflict.
type EntryEventSummary struct {
	Type       EntryType
	OccurredAt time.Time
	AutoLogged bool
}

// RecentEntryConflict is returned when a user already has an entry event
// inside the debounce window and the caller did not confirm manually.
// It carries enough context for the caller to resubmit with confirmation.
type RecentEntryConflict struct {
	MinutesSince   int
	DebounceWindow int
	LastEvent      EntryEventSummary
}

func (e RecentEntryConflict) Error() string {
	return fmt.Sprintf("recent %s event exists: %d minutes ago, debounce window is %d minutes",
		e.LastEvent.Type, e.MinutesSince, e.DebounceWindow)
}

// ExitStillInZone is returned when an exit is requested from inside the outer
// geofence without manual confirmation.
type ExitStillInZone struct {
	DistanceMeters   float64
	RequiredDistance float64
}

func (e ExitStillInZone) Error() string {
	return fmt.Sprintf("still in zone: %.1f m from center, exit requires more than %.1f m",
		e.DistanceMeters, e.RequiredDistance)
}

// ConfidenceRejected is returned when the total score is below the auto
// threshold and no manual confirmation was supplied. The full breakdown and
// both thresholds are always included so the caller can decide to resubmit.
type ConfidenceRejected struct {
	Confidence      Confidence
	AutoThreshold   int
	ManualThreshold int
}

func (e ConfidenceRejected) Error() string {
	return fmt.Sprintf("confidence %d below auto threshold %d and no manual confirmation given",
		e.Confidence.Total, e.AutoThreshold)
}
