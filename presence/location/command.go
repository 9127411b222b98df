package location

import (
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const commandType = "ScanTag"

// Mode selects how a scan's shelf location is supplied: by an operator
// (manual) or resolved from a fixed reader's shelf mapping (automatic).
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
)

// Command represents one reported RFID tag scan. ShelfID is required in
// manual mode, ReaderID in automatic mode.
type Command struct {
	TagID      string
	ShelfID    *uuid.UUID
	ReaderID   *uuid.UUID
	ScannedBy  uuid.UUID
	OccurredAt time.Time
}

// CommandType returns the type identifier for this command, used for observability.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with a normalized timestamp.
func BuildCommand(
	tagID string,
	shelfID *uuid.UUID,
	readerID *uuid.UUID,
	scannedBy uuid.UUID,
	occurredAt time.Time,
) Command {

	return Command{
		TagID:      tagID,
		ShelfID:    shelfID,
		ReaderID:   readerID,
		ScannedBy:  scannedBy,
		OccurredAt: presence.ToOccurredAt(occurredAt),
	}
}
