package config

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/openshelf/presence-engine/presence"
)

const (
	defaultSnapshotTTL = 5 * time.Minute

	logMsgReloadFailed       = "configuration reload failed, serving defaults"
	logMsgWriteThroughFailed = "configuration write-through failed, updating in-memory value only"
	logMsgSnapshotReloaded   = "configuration snapshot reloaded"
	logAttrError             = "error"
	logAttrKey               = "key"
	logAttrEntryCount        = "entry_count"
)

// ErrInvalidTTL is returned when a non-positive snapshot TTL is configured.
var ErrInvalidTTL = errors.New("snapshot ttl must be positive")

// Backend is the persistent collaborator the store loads from and writes
// through to. Implemented by postgresengine.Store.
type Backend interface {
	LoadAllConfig(ctx context.Context) ([]presence.ConfigEntry, error)
	SaveConfig(ctx context.Context, entry presence.ConfigEntry) error
}

// ModeInfo is the read-only passthrough of the two operating-mode flags.
type ModeInfo struct {
	DemoMode              bool
	ProductionModeEnabled bool
}

// snapshot is one immutable generation of the configuration cache. A reload
// or an in-memory update replaces the whole pointer; the maps inside are
// never mutated after publication.
type snapshot struct {
	values       map[string]any
	entries      map[string]presence.ConfigEntry
	loadedAt     time.Time
	fromDefaults bool
}

// Store is the cached configuration access component. The snapshot pointer is
// swapped atomically; concurrent expiry reloads each refetch independently
// and overwrite with an equivalent snapshot.
type Store struct {
	backend  Backend
	ttl      time.Duration
	now      func() time.Time
	logger   presence.Logger
	snapshot atomic.Pointer[snapshot]
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTTL overrides the default 5 minute snapshot TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}

		s.ttl = ttl

		return nil
	}
}

// WithLogger sets the logger for the Store.
func WithLogger(logger presence.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithClock injects the time source, used by tests to control TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		s.now = now
		return nil
	}
}

// NewStore creates a configuration store over the given backend.
func NewStore(backend Backend, options ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		ttl:     defaultSnapshotTTL,
		now:     time.Now,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Get returns the coerced value for a key, or defaultValue if the key is not
// present. Configuration unavailability is absorbed: on a failed reload the
// hardcoded default set is served and a warning is logged.
func (s *Store) Get(ctx context.Context, key string, defaultValue any) any {
	snap := s.fresh(ctx)

	if value, ok := snap.values[key]; ok {
		return value
	}

	return defaultValue
}

// GetMany returns the coerced values for the given keys; absent keys are
// omitted from the result.
func (s *Store) GetMany(ctx context.Context, keys ...string) map[string]any {
	snap := s.fresh(ctx)
	result := make(map[string]any, len(keys))

	for _, key := range keys {
		if value, ok := snap.values[key]; ok {
			result[key] = value
		}
	}

	return result
}

// GetAll returns a copy of the full coerced configuration set.
func (s *Store) GetAll(ctx context.Context) map[string]any {
	snap := s.fresh(ctx)
	result := make(map[string]any, len(snap.values))

	for key, value := range snap.values {
		result[key] = value
	}

	return result
}

// Set writes a value through to the backend and invalidates the snapshot so
// the next read reloads. If the write-through fails the in-memory value is
// updated anyway (soft-fail) and a warning is logged; entry logging must not
// be blocked by configuration unavailability. The stored value is returned.
func (s *Store) Set(ctx context.Context, key string, value any, updatedBy string) any {
	snap := s.fresh(ctx)

	valueType := presence.ValueTypeString
	if existing, ok := snap.entries[key]; ok {
		valueType = existing.ValueType
	} else {
		valueType = inferValueType(value)
	}

	raw, coerced := rawFromValue(value, valueType)

	entry := presence.ConfigEntry{
		Key:       key,
		RawValue:  raw,
		ValueType: valueType,
		UpdatedBy: updatedBy,
		UpdatedAt: s.now(),
	}

	if saveErr := s.backend.SaveConfig(ctx, entry); saveErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgWriteThroughFailed, logAttrKey, key, logAttrError, saveErr.Error())
		}

		s.publishValue(snap, key, entry, coerced)

		return coerced
	}

	s.Invalidate()

	return coerced
}

// Invalidate marks the snapshot stale so the next read reloads from the backend.
func (s *Store) Invalidate() {
	if snap := s.snapshot.Load(); snap != nil {
		stale := *snap
		stale.loadedAt = time.Time{}
		s.snapshot.Store(&stale)
	}
}

// Number returns the value for key coerced to float64, or defaultValue when
// the key is absent or not numeric.
func (s *Store) Number(ctx context.Context, key string, defaultValue float64) float64 {
	if number, ok := asNumber(s.Get(ctx, key, nil)); ok {
		return number
	}

	return defaultValue
}

// Bool returns the value for key coerced to bool, or defaultValue when the
// key is absent or not boolean.
func (s *Store) Bool(ctx context.Context, key string, defaultValue bool) bool {
	if flag, ok := asBool(s.Get(ctx, key, nil)); ok {
		return flag
	}

	return defaultValue
}

// String returns the value for key as a string, or defaultValue when the key
// is absent or not a string.
func (s *Store) String(ctx context.Context, key string, defaultValue string) string {
	if text, ok := s.Get(ctx, key, nil).(string); ok {
		return text
	}

	return defaultValue
}

// ModeInfo returns the current operating-mode flags.
func (s *Store) ModeInfo(ctx context.Context) ModeInfo {
	return ModeInfo{
		DemoMode:              s.Bool(ctx, presence.KeyDemoMode, presence.DefaultDemoMode),
		ProductionModeEnabled: s.Bool(ctx, presence.KeyProductionModeEnabled, presence.DefaultProductionModeEnabled),
	}
}

// fresh returns the current snapshot, reloading it first when it is missing
// or older than the TTL.
func (s *Store) fresh(ctx context.Context) *snapshot {
	snap := s.snapshot.Load()
	if snap != nil && s.now().Sub(snap.loadedAt) <= s.ttl {
		return snap
	}

	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) *snapshot {
	loaded, loadErr := s.backend.LoadAllConfig(ctx)
	if loadErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgReloadFailed, logAttrError, loadErr.Error())
		}

		snap := defaultsSnapshot(s.now())
		s.snapshot.Store(snap)

		return snap
	}

	values := make(map[string]any, len(loaded))
	entries := make(map[string]presence.ConfigEntry, len(loaded))

	for _, entry := range loaded {
		values[entry.Key] = coerceRaw(entry.RawValue, entry.ValueType)
		entries[entry.Key] = entry
	}

	snap := &snapshot{
		values:   values,
		entries:  entries,
		loadedAt: s.now(),
	}
	s.snapshot.Store(snap)

	if s.logger != nil {
		s.logger.Debug(logMsgSnapshotReloaded, logAttrEntryCount, len(loaded))
	}

	return snap
}

// publishValue replaces the snapshot with a copy holding the updated value,
// keeping the published maps immutable.
func (s *Store) publishValue(base *snapshot, key string, entry presence.ConfigEntry, value any) {
	values := make(map[string]any, len(base.values)+1)
	for k, v := range base.values {
		values[k] = v
	}
	values[key] = value

	entries := make(map[string]presence.ConfigEntry, len(base.entries)+1)
	for k, e := range base.entries {
		entries[k] = e
	}
	entries[key] = entry

	s.snapshot.Store(&snapshot{
		values:       values,
		entries:      entries,
		loadedAt:     base.loadedAt,
		fromDefaults: base.fromDefaults,
	})
}
