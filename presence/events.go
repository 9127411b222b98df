package presence

import (
	"time"

	"github.com/google/uuid"
)

// EntryType distinguishes entries into the library from exits out of it.
type EntryType string

const (
	EntryTypeEntry EntryType = "entry"
	EntryTypeExit  EntryType = "exit"
)

// ScanMethodRFID marks a location-history record produced by an RFID scan.
const ScanMethodRFID = "rfid"

// ToOccurredAt normalizes a timestamp to UTC with microsecond precision,
// matching what the persistent store keeps.
func ToOccurredAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// EntryEvent is one decided entry or exit of a user. Events are append-only;
// this engine never mutates or deletes them.
type EntryEvent struct {
	UserID            uuid.UUID
	Type              EntryType
	Coordinate        Coordinate
	WiFiSSID          *string
	SpeedKmh          *float64
	Confidence        Confidence
	AutoLogged        bool
	ManuallyConfirmed bool
	OccurredAt        time.Time
}

// ScanEvent is one recorded location-history entry for a book. Duplicate
// scans inside the debounce window are suppressed and never become events.
type ScanEvent struct {
	TagID      string
	BookID     uuid.UUID
	ShelfID    uuid.UUID
	ReaderID   *uuid.UUID
	ScanMethod string
	ScannedBy  uuid.UUID
	OccurredAt time.Time
}

// ShelfLocation is the resolved physical location of a shelf.
type ShelfLocation struct {
	ShelfID   uuid.UUID
	ShelfCode string
	Zone      string
	Section   string
}

// TagBinding maps an RFID tag to the book it is attached to.
type TagBinding struct {
	TagID  string
	BookID uuid.UUID
	Active bool
}

// ValueType tags how a raw configuration value is coerced when read.
type ValueType string

const (
	ValueTypeNumber  ValueType = "number"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeJSON    ValueType = "json"
	ValueTypeString  ValueType = "string"
)

// ConfigEntry is one persisted configuration row. RawValue is the stored text
// representation; coercion according to ValueType happens in the config store.
type ConfigEntry struct {
	Key       string
	RawValue  string
	ValueType ValueType
	UpdatedBy string
	UpdatedAt time.Time
}
