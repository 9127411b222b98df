package location

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const (
	logMsgScanRecorded   = "scan event recorded"
	logMsgScanSuppressed = "duplicate scan suppressed"
	logAttrTagID         = "tag_id"
	logAttrBookID        = "book_id"
	logAttrShelfID       = "shelf_id"
	logAttrMode          = "mode"
	logAttrElapsedSec    = "elapsed_seconds"
)

// Catalog is the persistent collaborator for tag, shelf and reader lookups.
// Lookups return nil (not an error) for unknown or inactive rows; only
// infrastructure failures are errors. Implemented by postgresengine.Store.
type Catalog interface {
	ActiveTagBinding(ctx context.Context, tagID string) (*presence.TagBinding, error)
	ShelfByID(ctx context.Context, shelfID uuid.UUID) (*presence.ShelfLocation, error)
	ActiveReaderShelf(ctx context.Context, readerID uuid.UUID) (*presence.ShelfLocation, error)
	RecordReaderScan(ctx context.Context, readerID uuid.UUID, scannedAt time.Time) error
}

// History is the persistent collaborator for the append-only location history.
// Implemented by postgresengine.Store.
type History interface {
	LatestScanForBook(ctx context.Context, bookID uuid.UUID) (*presence.ScanEvent, error)
	AppendScanEvent(ctx context.Context, event presence.ScanEvent) error
}

// Result is the outcome of a scan: the resolved book, its location, and the
// scan metadata, tagged with the mode that produced it. For a suppressed
// duplicate, Scan is the prior event and IsDuplicate is true; nothing was
// written.
type Result struct {
	Book        presence.TagBinding
	Location    presence.ShelfLocation
	Scan        presence.ScanEvent
	Mode        Mode
	IsDuplicate bool
}

// Resolver resolves RFID scans to books and shelves.
type Resolver struct {
	settings presence.SettingsReader
	catalog  Catalog
	history  History
	shelves  *ShelfCache
	logger   presence.Logger
	metrics  presence.MetricsCollector
	tracing  presence.TracingCollector
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for the Resolver.
func WithLogger(logger presence.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector for the Resolver. Every scan
// increments a result counter and records its duration, labeled by command
// type, mode and result.
func WithMetrics(collector presence.MetricsCollector) Option {
	return func(r *Resolver) {
		r.metrics = collector
	}
}

// WithTracing sets the tracing collector for the Resolver. Each scan runs
// inside a span carrying the command type and mode.
func WithTracing(collector presence.TracingCollector) Option {
	return func(r *Resolver) {
		r.tracing = collector
	}
}

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithShelfCache injects a pre-built reader-shelf cache, letting callers
// share it with whatever handles reader reconfiguration.
func WithShelfCache(cache *ShelfCache) Option {
	return func(r *Resolver) {
		r.shelves = cache
	}
}

// NewResolver creates a Resolver over the given settings source and collaborators.
func NewResolver(settings presence.SettingsReader, catalog Catalog, history History, options ...Option) *Resolver {
	r := &Resolver{
		settings: settings,
		catalog:  catalog,
		history:  history,
		now:      time.Now,
	}

	for _, option := range options {
		option(r)
	}

	if r.shelves == nil {
		r.shelves = NewShelfCache()
	}

	return r
}

// ShelfCache exposes the reader-shelf cache so external reader-configuration
// changes can call Invalidate instead of reaching into resolver state.
func (r *Resolver) ShelfCache() *ShelfCache {
	return r.shelves
}

// ActiveMode derives the scanning mode from configuration: automatic when
// production mode is enabled and demo mode is off, manual otherwise.
func (r *Resolver) ActiveMode(ctx context.Context) Mode {
	demoMode := r.settings.Bool(ctx, presence.KeyDemoMode, presence.DefaultDemoMode)
	productionMode := r.settings.Bool(ctx, presence.KeyProductionModeEnabled, presence.DefaultProductionModeEnabled)

	if productionMode && !demoMode {
		return ModeAutomatic
	}

	return ModeManual
}

// ScanTag resolves one reported scan:
//
//  1. validate the field the mode requires
//  2. resolve tag to book via the active-tag lookup
//  3. suppress duplicates (same reader inside the scan-debounce window)
//  4. resolve the shelf, directly in manual mode or through the reader-shelf
//     cache in automatic mode
//  5. append the scan event
//  6. in automatic mode, update the reader's scan telemetry
func (r *Resolver) ScanTag(ctx context.Context, mode Mode, command Command) (Result, error) {
	spanCtx, span := r.startSpan(ctx, mode, command)

	start := time.Now()
	result, err := r.scanTag(spanCtx, mode, command)
	duration := time.Since(start)

	r.recordOutcome(spanCtx, span, mode, command, result, err, duration)

	return result, err
}

func (r *Resolver) scanTag(ctx context.Context, mode Mode, command Command) (Result, error) {
	if validationErr := validateCommand(mode, command); validationErr != nil {
		return Result{}, validationErr
	}

	binding, bindingErr := r.catalog.ActiveTagBinding(ctx, command.TagID)
	if bindingErr != nil {
		return Result{}, bindingErr
	}
	if binding == nil {
		return Result{}, presence.NotFoundError{Kind: "tag", ID: command.TagID}
	}

	occurredAt := command.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = presence.ToOccurredAt(r.now())
	}

	lastScan, lastScanErr := r.history.LatestScanForBook(ctx, binding.BookID)
	if lastScanErr != nil {
		return Result{}, lastScanErr
	}

	if duplicate, result, duplicateErr := r.suppressDuplicate(ctx, mode, command, *binding, lastScan, occurredAt); duplicate {
		return result, duplicateErr
	}

	shelf, shelfErr := r.resolveShelf(ctx, mode, command)
	if shelfErr != nil {
		return Result{}, shelfErr
	}

	event := presence.ScanEvent{
		TagID:      command.TagID,
		BookID:     binding.BookID,
		ShelfID:    shelf.ShelfID,
		ScanMethod: presence.ScanMethodRFID,
		ScannedBy:  command.ScannedBy,
		OccurredAt: occurredAt,
	}
	if mode == ModeAutomatic {
		event.ReaderID = command.ReaderID
	}

	if appendErr := r.history.AppendScanEvent(ctx, event); appendErr != nil {
		return Result{}, appendErr
	}

	if mode == ModeAutomatic {
		if telemetryErr := r.catalog.RecordReaderScan(ctx, *command.ReaderID, occurredAt); telemetryErr != nil {
			return Result{}, telemetryErr
		}
	}

	if r.logger != nil {
		r.logger.Info(logMsgScanRecorded,
			logAttrTagID, command.TagID,
			logAttrBookID, binding.BookID.String(),
			logAttrShelfID, shelf.ShelfID.String(),
			logAttrMode, string(mode),
		)
	}

	return Result{Book: *binding, Location: shelf, Scan: event, Mode: mode}, nil
}

// suppressDuplicate short-circuits a repeat scan of the same book by the same
// reader inside the scan-debounce window. The prior event is acknowledged,
// nothing is written.
func (r *Resolver) suppressDuplicate(
	ctx context.Context,
	mode Mode,
	command Command,
	binding presence.TagBinding,
	lastScan *presence.ScanEvent,
	occurredAt time.Time,
) (bool, Result, error) {

	if lastScan == nil || lastScan.ReaderID == nil || command.ReaderID == nil {
		return false, Result{}, nil
	}

	if *lastScan.ReaderID != *command.ReaderID {
		return false, Result{}, nil
	}

	debounceSeconds := r.settings.Number(ctx, presence.KeyScanDebounceSeconds, presence.DefaultScanDebounceSeconds)
	elapsed := occurredAt.Sub(lastScan.OccurredAt)

	if elapsed >= time.Duration(debounceSeconds)*time.Second {
		return false, Result{}, nil
	}

	location := presence.ShelfLocation{ShelfID: lastScan.ShelfID}
	if shelf, shelfErr := r.catalog.ShelfByID(ctx, lastScan.ShelfID); shelfErr == nil && shelf != nil {
		location = *shelf
	}

	if r.logger != nil {
		r.logger.Debug(logMsgScanSuppressed,
			logAttrTagID, command.TagID,
			logAttrBookID, binding.BookID.String(),
			logAttrElapsedSec, int(elapsed.Seconds()),
		)
	}

	return true, Result{
		Book:        binding,
		Location:    location,
		Scan:        *lastScan,
		Mode:        mode,
		IsDuplicate: true,
	}, nil
}

// resolveShelf looks up the shelf directly in manual mode, or through the
// reader-shelf cache with a lazy refetch in automatic mode.
func (r *Resolver) resolveShelf(ctx context.Context, mode Mode, command Command) (presence.ShelfLocation, error) {
	if mode == ModeManual {
		shelf, shelfErr := r.catalog.ShelfByID(ctx, *command.ShelfID)
		if shelfErr != nil {
			return presence.ShelfLocation{}, shelfErr
		}
		if shelf == nil {
			return presence.ShelfLocation{}, presence.NotFoundError{Kind: "shelf", ID: command.ShelfID.String()}
		}

		return *shelf, nil
	}

	readerID := *command.ReaderID

	if cached, ok := r.shelves.Get(readerID); ok {
		return cached, nil
	}

	shelf, shelfErr := r.catalog.ActiveReaderShelf(ctx, readerID)
	if shelfErr != nil {
		return presence.ShelfLocation{}, shelfErr
	}
	if shelf == nil {
		return presence.ShelfLocation{}, presence.NotFoundError{Kind: "reader", ID: readerID.String()}
	}

	r.shelves.Set(readerID, *shelf)

	return *shelf, nil
}

func validateCommand(mode Mode, command Command) error {
	if command.TagID == "" {
		return presence.ValidationError{Field: "tagId", Reason: "must not be empty"}
	}

	switch mode {
	case ModeManual:
		if command.ShelfID == nil {
			return presence.ValidationError{Field: "shelfId", Reason: "required in manual mode"}
		}

	case ModeAutomatic:
		if command.ReaderID == nil {
			return presence.ValidationError{Field: "readerId", Reason: "required in automatic mode"}
		}

	default:
		return presence.ValidationError{Field: "mode", Reason: "must be manual or automatic"}
	}

	return nil
}
