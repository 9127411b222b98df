package entry

import (
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const commandType = "LogEntryEvent"

// Command represents the intent to log an entry or exit for a user.
// WiFiSSID and SpeedKmh are optional signals; nil means "not reported".
// ManualConfirm marks that the caller has explicitly confirmed the event,
// overriding the debounce, exit and confidence gates.
type Command struct {
	UserID        uuid.UUID
	Type          presence.EntryType
	Coordinate    presence.Coordinate
	WiFiSSID      *string
	SpeedKmh      *float64
	ManualConfirm bool
	OccurredAt    time.Time
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with a normalized timestamp.
func BuildCommand(
	userID uuid.UUID,
	entryType presence.EntryType,
	coordinate presence.Coordinate,
	wifiSSID *string,
	speedKmh *float64,
	manualConfirm bool,
	occurredAt time.Time,
) Command {

	return Command{
		UserID:        userID,
		Type:          entryType,
		Coordinate:    coordinate,
		WiFiSSID:      wifiSSID,
		SpeedKmh:      speedKmh,
		ManualConfirm: manualConfirm,
		OccurredAt:    presence.ToOccurredAt(occurredAt),
	}
}
