package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/presence-engine/presence"
	"github.com/openshelf/presence-engine/presence/postgresengine/internal/adapters"
)

const (
	defaultConfigTableName          = "configuration"
	defaultEntryEventsTableName     = "entry_events"
	defaultLocationHistoryTableName = "location_history"
	defaultTagsTableName            = "rfid_tags"
	defaultReadersTableName         = "readers"
	defaultShelvesTableName         = "shelves"

	dialectPostgres = "postgres"

	logMsgDBQueryFailed = "database query execution failed"
	logMsgDBExecFailed  = "database statement execution failed"
	logMsgCloseFailed   = "failed to close database rows"
	logMsgScanFailed    = "failed to scan database row"
	logMsgSQLExecuted   = "executed sql for: "
	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
)

// TableNames holds the names of the tables the store operates on. The zero
// value of a field keeps its default.
type TableNames struct {
	Configuration   string
	EntryEvents     string
	LocationHistory string
	Tags            string
	Readers         string
	Shelves         string
}

// Store is the Postgres-backed persistent collaborator. It implements
// config.Backend, entry.EventLog, location.Catalog and location.History.
type Store struct {
	db               adapters.DBAdapter
	tables           TableNames
	logger           presence.Logger
	contextualLogger presence.ContextualLogger
	metrics          presence.MetricsCollector
	tracing          presence.TracingCollector
}

// Option defines a functional option for configuring the Store.
type Option func(*Store) error

// WithTableNames overrides table names; zero-value fields keep their defaults.
func WithTableNames(tables TableNames) Option {
	return func(s *Store) error {
		for _, override := range []struct {
			name   string
			target *string
		}{
			{tables.Configuration, &s.tables.Configuration},
			{tables.EntryEvents, &s.tables.EntryEvents},
			{tables.LocationHistory, &s.tables.LocationHistory},
			{tables.Tags, &s.tables.Tags},
			{tables.Readers, &s.tables.Readers},
			{tables.Shelves, &s.tables.Shelves},
		} {
			if override.name != "" {
				*override.target = override.name
			}
		}

		return nil
	}
}

// WithLogger sets the logger for the Store.
// Debug level carries SQL queries with execution timing (development use);
// Warn level carries non-critical issues like cleanup failures;
// Error level carries failures that cause operation failures.
func WithLogger(logger presence.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the Store. When set it
// takes precedence over the plain logger, so log lines carry trace correlation.
func WithContextualLogger(logger presence.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store. Query and statement
// executions record durations labeled by operation and status, and failures
// increment an error counter. A ContextualMetricsCollector is preferred when
// the collector implements it.
func WithMetrics(collector presence.MetricsCollector) Option {
	return func(s *Store) error {
		s.metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every query and
// statement execution runs inside a span carrying the operation name.
func WithTracing(collector presence.TracingCollector) Option {
	return func(s *Store) error {
		s.tracing = collector
		return nil
	}
}

// NewStoreFromPGXPool creates a Store using a pgx pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, presence.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, presence.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, presence.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db: db,
		tables: TableNames{
			Configuration:   defaultConfigTableName,
			EntryEvents:     defaultEntryEventsTableName,
			LocationHistory: defaultLocationHistoryTableName,
			Tags:            defaultTagsTableName,
			Readers:         defaultReadersTableName,
			Shelves:         defaultShelvesTableName,
		},
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// executeQuery runs a select inside a span, logs the SQL with its duration at
// debug level and records duration metrics labeled by operation and status.
func (s *Store) executeQuery(ctx context.Context, action string, sqlQuery string) (adapters.DBRows, error) {
	spanCtx, span := s.startSpan(ctx, spanNameQuery, action)

	start := time.Now()
	rows, queryErr := s.db.Query(spanCtx, sqlQuery)
	duration := time.Since(start)

	s.logQueryWithDuration(spanCtx, action, sqlQuery, duration)
	s.recordDurationMetrics(spanCtx, metricQueryDuration, duration, operationLabels(action, statusFor(queryErr)))

	if queryErr != nil {
		s.logDBError(spanCtx, logMsgDBQueryFailed, queryErr, sqlQuery)
		s.recordErrorMetrics(spanCtx, action, errorTypeQuery)
		s.finishSpan(span, statusError, duration)

		return nil, errors.Join(presence.ErrQueryingFailed, queryErr)
	}

	s.finishSpan(span, statusSuccess, duration)

	return rows, nil
}

// executeStatement runs an insert/update with the same instrumentation as
// executeQuery.
func (s *Store) executeStatement(ctx context.Context, action string, sqlQuery string) error {
	spanCtx, span := s.startSpan(ctx, spanNameExec, action)

	start := time.Now()
	_, execErr := s.db.Exec(spanCtx, sqlQuery)
	duration := time.Since(start)

	s.logQueryWithDuration(spanCtx, action, sqlQuery, duration)
	s.recordDurationMetrics(spanCtx, metricExecDuration, duration, operationLabels(action, statusFor(execErr)))

	if execErr != nil {
		s.logDBError(spanCtx, logMsgDBExecFailed, execErr, sqlQuery)
		s.recordErrorMetrics(spanCtx, action, errorTypeExec)
		s.finishSpan(span, statusError, duration)

		return errors.Join(presence.ErrExecFailed, execErr)
	}

	s.finishSpan(span, statusSuccess, duration)

	return nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseFailed, logAttrError, closeErr.Error())
		}
	}
}

func (s *Store) scanError(scanErr error) error {
	if s.logger != nil {
		s.logger.Error(logMsgScanFailed, logAttrError, scanErr.Error())
	}

	return errors.Join(presence.ErrScanningRowFailed, scanErr)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
