package postgresengine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const (
	colEntryUserID            = "user_id"
	colEntryType              = "entry_type"
	colEntryLatitude          = "latitude"
	colEntryLongitude         = "longitude"
	colEntryWiFiSSID          = "wifi_ssid"
	colEntrySpeedKmh          = "speed_kmh"
	colEntryGPSScore          = "gps_score"
	colEntryWiFiScore         = "wifi_score"
	colEntryMotionScore       = "motion_score"
	colEntryTotalScore        = "total_score"
	colEntryDistanceMeters    = "distance_meters"
	colEntryZone              = "zone"
	colEntryAutoLogged        = "auto_logged"
	colEntryManuallyConfirmed = "manually_confirmed"
	colEntryOccurredAt        = "occurred_at"

	logActionAppendEntryEvent = "append entry event"
	logActionLatestEntryEvent = "latest entry event for user"
)

// AppendEntryEvent writes one decided entry/exit to the append-only
// entry-event table. Implements entry.EventLog.
func (s *Store) AppendEntryEvent(ctx context.Context, event presence.EntryEvent) error {
	row := goqu.Record{
		colEntryUserID:            event.UserID.String(),
		colEntryType:              string(event.Type),
		colEntryLatitude:          event.Coordinate.Latitude,
		colEntryLongitude:         event.Coordinate.Longitude,
		colEntryWiFiSSID:          nullableString(event.WiFiSSID),
		colEntrySpeedKmh:          nullableFloat(event.SpeedKmh),
		colEntryGPSScore:          event.Confidence.GPS,
		colEntryWiFiScore:         event.Confidence.WiFi,
		colEntryMotionScore:       event.Confidence.Motion,
		colEntryTotalScore:        event.Confidence.Total,
		colEntryDistanceMeters:    event.Confidence.Details.DistanceMeters,
		colEntryZone:              string(event.Confidence.Details.Zone),
		colEntryAutoLogged:        event.AutoLogged,
		colEntryManuallyConfirmed: event.ManuallyConfirmed,
		colEntryOccurredAt:        event.OccurredAt,
	}

	sqlQuery, _, toSQLErr := s.builder().
		Insert(s.tables.EntryEvents).
		Rows(row).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	return s.executeStatement(ctx, logActionAppendEntryEvent, sqlQuery)
}

// LatestEntryEventForUser returns the most recent entry/exit event of a user,
// or nil when the user has none. Implements entry.EventLog.
func (s *Store) LatestEntryEventForUser(ctx context.Context, userID uuid.UUID) (*presence.EntryEvent, error) {
	sqlQuery, _, toSQLErr := s.builder().
		From(s.tables.EntryEvents).
		Select(
			colEntryUserID, colEntryType, colEntryLatitude, colEntryLongitude,
			colEntryWiFiSSID, colEntrySpeedKmh,
			colEntryGPSScore, colEntryWiFiScore, colEntryMotionScore, colEntryTotalScore,
			colEntryDistanceMeters, colEntryZone,
			colEntryAutoLogged, colEntryManuallyConfirmed, colEntryOccurredAt,
		).
		Where(goqu.Ex{colEntryUserID: userID.String()}).
		Order(goqu.I(colEntryOccurredAt).Desc()).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionLatestEntryEvent, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	var (
		rawUserID string
		entryType string
		latitude  float64
		longitude float64
		wifiSSID  sql.NullString
		speedKmh  sql.NullFloat64
		gps       int
		wifi      int
		motion    int
		total     int
		distance  float64
		zone      string
		auto      bool
		manual    bool
		occurred  sql.NullTime
	)

	scanErr := rows.Scan(
		&rawUserID, &entryType, &latitude, &longitude,
		&wifiSSID, &speedKmh,
		&gps, &wifi, &motion, &total,
		&distance, &zone,
		&auto, &manual, &occurred,
	)
	if scanErr != nil {
		return nil, s.scanError(scanErr)
	}

	parsedUserID, parseErr := uuid.Parse(rawUserID)
	if parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	event := presence.EntryEvent{
		UserID:     parsedUserID,
		Type:       presence.EntryType(entryType),
		Coordinate: presence.Coordinate{Latitude: latitude, Longitude: longitude},
		Confidence: presence.Confidence{
			GPS:    gps,
			WiFi:   wifi,
			Motion: motion,
			Total:  total,
			Details: presence.ConfidenceDetails{
				DistanceMeters: distance,
				Zone:           presence.Zone(zone),
			},
		},
		AutoLogged:        auto,
		ManuallyConfirmed: manual,
		OccurredAt:        occurred.Time,
	}

	if wifiSSID.Valid {
		event.WiFiSSID = &wifiSSID.String
	}

	if speedKmh.Valid {
		event.SpeedKmh = &speedKmh.Float64
	}

	return &event, nil
}

// goqu literalizes nil as SQL NULL; pointers must be dereferenced first.
func nullableString(value *string) any {
	if value == nil {
		return nil
	}

	return *value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}

	return *value
}
